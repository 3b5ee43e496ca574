package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends events to agent_audit_events. The table carries no
// UPDATE or DELETE path anywhere in the codebase.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO agent_audit_events
			(id, event_type, actor_user_id, actor_role, ip_address,
			 call_id, target_user_id, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), nullable(e.ActorUserID), nullable(e.ActorRole),
		nullable(e.IPAddress), nullable(e.CallID), nullable(e.TargetUserID),
		nullable(e.Message), nullable(e.Metadata), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: append event: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
