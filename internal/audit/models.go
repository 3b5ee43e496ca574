package audit

import "time"

// Event is an immutable, append-only record of a privileged action.
//
// Invariants:
//   - Events are never updated or deleted.
//   - Actor and IP capture are best-effort; never block the primary flow on
//     audit failures.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type is the business category of the record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated principal causing the event, empty for
	// the service role.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers, filled per event type.
	CallID       string `json:"call_id,omitempty" db:"call_id"`
	TargetUserID string `json:"target_user_id,omitempty" db:"target_user_id"`

	// Message is a short description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON with full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallCreated EventType = "call_created"
	EventTypeUserDeleted EventType = "user_deleted"
)
