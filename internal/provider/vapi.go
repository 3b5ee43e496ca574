package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"call-ledger/internal/ledger"
)

// Vapi delivers all server events as a JSON envelope with a typed message.
// Only status-update and end-of-call-report matter to the ledger; everything
// else is acknowledged and ignored.

const (
	vapiMessageStatusUpdate = "status-update"
	vapiMessageEndOfCall    = "end-of-call-report"
)

type vapiEnvelope struct {
	Message vapiMessage `json:"message"`
}

type vapiMessage struct {
	Type   string   `json:"type"`
	Status string   `json:"status"`
	Call   vapiCall `json:"call"`

	// end-of-call-report fields
	EndedReason     string          `json:"endedReason"`
	DurationSeconds *float64        `json:"durationSeconds"`
	Transcript      string          `json:"transcript"`
	Summary         string          `json:"summary"`
	Analysis        vapiAnalysis    `json:"analysis"`
	Timestamp       json.RawMessage `json:"timestamp"`
}

type vapiCall struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type vapiAnalysis struct {
	Summary string `json:"summary"`
	// SuccessEvaluation arrives as a bool or as the strings "true"/"false",
	// depending on the assistant's rubric.
	SuccessEvaluation json.RawMessage `json:"successEvaluation"`
}

var errIgnoredEvent = errors.New("provider: event type not ledger-relevant")

// IsIgnored reports whether a parse error just means "not for us".
func IsIgnored(err error) bool { return errors.Is(err, errIgnoredEvent) }

// ParseVapiEvent converts a raw webhook body into a StatusEvent.
func ParseVapiEvent(body []byte) (StatusEvent, error) {
	var env vapiEnvelope
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&env); err != nil {
		return StatusEvent{}, fmt.Errorf("provider: malformed webhook payload: %w", err)
	}

	msg := env.Message
	if msg.Call.ID == "" {
		return StatusEvent{}, errors.New("provider: webhook missing call id")
	}

	switch msg.Type {
	case vapiMessageStatusUpdate:
		mapped, ok := mapStatus(msg.Status)
		if !ok {
			return StatusEvent{}, fmt.Errorf("provider: unknown call status %q", msg.Status)
		}
		ev := StatusEvent{
			CallID:     msg.Call.ID,
			Status:     mapped,
			OccurredAt: parseTimestamp(msg.Timestamp),
			RawPayload: string(body),
		}
		if mapped == ledger.StatusEnded && msg.EndedReason != "" {
			ev.Terminal.EndedReason = msg.EndedReason
		}
		return ev, nil

	case vapiMessageEndOfCall:
		ev := StatusEvent{
			CallID:     msg.Call.ID,
			Status:     ledger.StatusEnded,
			Final:      true,
			OccurredAt: parseTimestamp(msg.Timestamp),
			RawPayload: string(body),
		}
		ev.Terminal.EndedReason = msg.EndedReason
		ev.Terminal.Transcript = msg.Transcript
		ev.Terminal.Summary = msg.Summary
		if ev.Terminal.Summary == "" {
			ev.Terminal.Summary = msg.Analysis.Summary
		}
		if msg.DurationSeconds != nil {
			d := int(*msg.DurationSeconds)
			ev.Terminal.DurationSeconds = &d
		}
		ev.Terminal.Success = parseSuccessEvaluation(msg.Analysis.SuccessEvaluation)
		return ev, nil

	default:
		return StatusEvent{}, errIgnoredEvent
	}
}

// parseTimestamp accepts the two timestamp shapes the provider emits:
// epoch milliseconds or an RFC3339 string. Zero time when absent or odd.
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseSuccessEvaluation(raw json.RawMessage) *bool {
	if len(raw) == 0 {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return nil
		}
		return &v
	}
	return nil
}
