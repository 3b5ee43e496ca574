package ledger

import (
	"errors"
	"time"
)

// CallRecord is one row in the agent_calls ledger: a single outbound call
// attempt placed through the voice provider.
//
// Audit invariant: records are never physically deleted. When the owning
// user is removed, UserID is nullified and the record becomes ownerless.
//
// Immutable after insert: ID, CallID, PhoneNumber, CreatedAt.
type CallRecord struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id,omitempty" db:"user_id"` // empty = ownerless

	// CallID is the provider-assigned call identifier and the external
	// correlation key. Unique across all records.
	CallID string `json:"call_id" db:"call_id"`

	PhoneNumber string `json:"phone_number" db:"phone_number"`

	// CallType is a free-form classification tag, e.g. "restaurant_reservation".
	CallType string `json:"call_type" db:"call_type"`

	Status CallStatus `json:"status" db:"status"`

	// Terminal fields. Set if and only if Status is terminal.
	EndedReason     string `json:"ended_reason,omitempty" db:"ended_reason"`
	DurationSeconds *int   `json:"duration_seconds,omitempty" db:"duration_seconds"`

	// Transcript may arrive incrementally or with the final webhook.
	Transcript string `json:"transcript,omitempty" db:"transcript"`
	Summary    string `json:"summary,omitempty" db:"summary"`

	// Success is the semantic outcome of the call's purpose, not "did it
	// connect". Unknown (nil) until termination.
	Success *bool `json:"success,omitempty" db:"success"`

	// Metadata is open-ended JSON (store as JSONB in Postgres).
	Metadata string `json:"metadata" db:"metadata"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// Ended reports whether the record has reached the terminal status.
func (r CallRecord) Ended() bool { return r.Status == StatusEnded }

// DefaultCallType is applied when the orchestrator does not classify the call.
const DefaultCallType = "general"

var (
	// ErrDuplicateCallID: insert collision on the provider call identifier.
	// The orchestrator must not retry with the same identifier.
	ErrDuplicateCallID = errors.New("ledger: duplicate call_id")

	// ErrNotFound: lookup or update on an unknown (or invisible) call_id.
	ErrNotFound = errors.New("ledger: call not found")

	// ErrInvalidTransition: attempted backward or repeated status move.
	// Non-fatal; the losing concurrent writer discards its update.
	ErrInvalidTransition = errors.New("ledger: invalid status transition")

	// ErrValidation: malformed field rejected before persistence.
	ErrValidation = errors.New("ledger: invalid field")

	// ErrActiveCallLimit: the per-user cap on concurrently active calls is reached.
	ErrActiveCallLimit = errors.New("ledger: active call limit reached")
)
