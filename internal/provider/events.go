package provider

import (
	"time"

	"call-ledger/internal/ledger"
)

// Lifecycle events are the provider-agnostic shape handed to the ledger.
//
// Rules:
// - No provider SDK calls outside this package.
// - Business logic (transition validity) stays in the ledger; this package
//   only translates payloads.

// StatusEvent is a provider lifecycle notification for one call.
type StatusEvent struct {
	// CallID is the provider's identifier, the ledger correlation key.
	CallID string `json:"call_id"`

	Status ledger.CallStatus `json:"status"`

	// Terminal data, populated on end-of-call events.
	Terminal ledger.TerminalFields `json:"terminal"`

	// Final reports the event as the provider's end-of-call report, which may
	// arrive after the status has already been moved to ended.
	Final bool `json:"final"`

	// OccurredAt is the provider event time when supplied.
	OccurredAt time.Time `json:"occurred_at,omitzero"`

	// RawPayload is kept for debugging/audit; store as JSON string.
	RawPayload string `json:"raw_payload,omitempty"`
}

// mapStatus translates provider statuses to the ledger lifecycle.
// The provider emits a few states the ledger folds together.
func mapStatus(s string) (ledger.CallStatus, bool) {
	switch s {
	case "queued", "scheduled", "initiated":
		return ledger.StatusInitiated, true
	case "ringing":
		return ledger.StatusRinging, true
	case "in-progress", "forwarding":
		return ledger.StatusInProgress, true
	case "ended":
		return ledger.StatusEnded, true
	default:
		return "", false
	}
}
