package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It MUST be append-only; no Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information. Audit records are internal-only
// and never exposed through the user-facing API.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogCallCreated records an orchestrator logging a new outbound call.
func (s *Service) LogCallCreated(ctx context.Context, actorUserID, actorRole, ip, callID, ownerUserID string) error {
	return s.Append(ctx, Event{
		Type:         EventTypeCallCreated,
		ActorUserID:  actorUserID,
		ActorRole:    actorRole,
		IPAddress:    ip,
		CallID:       callID,
		TargetUserID: ownerUserID,
		Message:      "call logged",
	})
}

// LogUserDeleted records a user removal, which detaches their call history.
func (s *Service) LogUserDeleted(ctx context.Context, actorUserID, actorRole, ip, targetUserID string) error {
	return s.Append(ctx, Event{
		Type:         EventTypeUserDeleted,
		ActorUserID:  actorUserID,
		ActorRole:    actorRole,
		IPAddress:    ip,
		TargetUserID: targetUserID,
		Message:      "user deleted, calls detached",
	})
}
