package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists the ledger in the agent_calls table.
// See migrations/0001_init.sql for the schema contract.
//
// Concurrency: UpdateStatusCAS is a single UPDATE guarded by
// "WHERE call_id = $1 AND status = $2", so two racing webhooks never
// double-apply terminal fields; the loser matches zero rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const callColumns = `id, user_id, call_id, phone_number, call_type, status,
       ended_reason, duration_seconds, transcript, summary, success,
       metadata, created_at, updated_at, ended_at`

const uniqueViolation = "23505"

func (s *PostgresStore) Insert(ctx context.Context, rec CallRecord) error {
	const q = `
INSERT INTO agent_calls (
  id, user_id, call_id, phone_number, call_type, status, metadata, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err := s.db.ExecContext(ctx, q,
		rec.ID,
		nullString(rec.UserID),
		rec.CallID,
		rec.PhoneNumber,
		rec.CallType,
		string(rec.Status),
		rec.Metadata,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateCallID
		}
		return err
	}
	return nil
}

func (s *PostgresStore) GetByCallID(ctx context.Context, callID string) (CallRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM agent_calls WHERE call_id = $1`, callColumns)
	rec, err := scanCall(s.db.QueryRowContext(ctx, q, callID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, err
	}
	return rec, nil
}

func (s *PostgresStore) UpdateStatusCAS(ctx context.Context, callID string, expect, next CallStatus, term TerminalFields, now time.Time) (CallRecord, bool, error) {
	var endedAt *time.Time
	if next == StatusEnded {
		endedAt = &now
	}

	q := fmt.Sprintf(`
UPDATE agent_calls SET
  status           = $3,
  updated_at       = $4,
  ended_at         = COALESCE(ended_at, $5),
  ended_reason     = COALESCE($6, ended_reason),
  duration_seconds = COALESCE($7, duration_seconds),
  transcript       = COALESCE($8, transcript),
  summary          = COALESCE($9, summary),
  success          = COALESCE($10, success)
WHERE call_id = $1 AND status = $2
RETURNING %s`, callColumns)

	rec, err := scanCall(s.db.QueryRowContext(ctx, q,
		callID,
		string(expect),
		string(next),
		now,
		endedAt,
		nullString(term.EndedReason),
		term.DurationSeconds,
		nullString(term.Transcript),
		nullString(term.Summary),
		term.Success,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race or the row vanished; the caller re-reads.
			return CallRecord{}, false, nil
		}
		return CallRecord{}, false, err
	}
	return rec, true, nil
}

func (s *PostgresStore) Amend(ctx context.Context, callID string, a Amendment, now time.Time) (CallRecord, error) {
	q := fmt.Sprintf(`
UPDATE agent_calls SET
  updated_at       = $2,
  ended_reason     = COALESCE($3, ended_reason),
  duration_seconds = COALESCE($4, duration_seconds),
  transcript       = COALESCE($5, transcript),
  summary          = COALESCE($6, summary),
  success          = COALESCE($7, success)
WHERE call_id = $1
RETURNING %s`, callColumns)

	rec, err := scanCall(s.db.QueryRowContext(ctx, q,
		callID,
		now,
		nullString(a.EndedReason),
		a.DurationSeconds,
		nullString(a.Transcript),
		nullString(a.Summary),
		a.Success,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecord{}, ErrNotFound
		}
		return CallRecord{}, err
	}
	return rec, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, f ListFilter) ([]CallRecord, error) {
	return s.list(ctx, "user_id = $1", []any{userID}, f)
}

func (s *PostgresStore) ListAll(ctx context.Context, f ListFilter) ([]CallRecord, error) {
	return s.list(ctx, "", nil, f)
}

func (s *PostgresStore) list(ctx context.Context, where string, args []any, f ListFilter) ([]CallRecord, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM agent_calls", callColumns)

	conds := make([]string, 0, 3)
	if where != "" {
		conds = append(conds, where)
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CallType != "" {
		args = append(args, f.CallType)
		conds = append(conds, fmt.Sprintf("call_type = $%d", len(args)))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallRecord, 0)
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (CallRecord, error) {
	var (
		rec         CallRecord
		userID      sql.NullString
		endedReason sql.NullString
		duration    sql.NullInt64
		transcript  sql.NullString
		summary     sql.NullString
		success     sql.NullBool
		endedAt     sql.NullTime
	)
	err := row.Scan(
		&rec.ID,
		&userID,
		&rec.CallID,
		&rec.PhoneNumber,
		&rec.CallType,
		&rec.Status,
		&endedReason,
		&duration,
		&transcript,
		&summary,
		&success,
		&rec.Metadata,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&endedAt,
	)
	if err != nil {
		return CallRecord{}, err
	}
	rec.UserID = userID.String
	rec.EndedReason = endedReason.String
	rec.Transcript = transcript.String
	rec.Summary = summary.String
	if duration.Valid {
		d := int(duration.Int64)
		rec.DurationSeconds = &d
	}
	if success.Valid {
		v := success.Bool
		rec.Success = &v
	}
	if endedAt.Valid {
		t := endedAt.Time
		rec.EndedAt = &t
	}
	return rec, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
