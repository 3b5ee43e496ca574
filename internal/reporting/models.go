package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// zero range means "no time bound"; callers opt into windows explicitly.
func (r TimeRange) bounded() bool { return !r.From.IsZero() || !r.To.IsZero() }

func (r TimeRange) valid() bool {
	if !r.bounded() {
		return true
	}
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

func (r TimeRange) contains(t time.Time) bool {
	if !r.bounded() {
		return true
	}
	return !t.Before(r.From) && t.Before(r.To)
}

// CallStatsRequest requests aggregated call metrics for one user, or for the
// whole ledger when issued by the service role with UserID left empty.
type CallStatsRequest struct {
	UserID   string    `json:"user_id,omitempty"`
	Range    TimeRange `json:"range"`
	CallType string    `json:"call_type,omitempty"`
}

type CallStats struct {
	UserID   string `json:"user_id,omitempty"`
	CallType string `json:"call_type,omitempty"`

	TotalCalls   int `json:"total_calls"`
	EndedCalls   int `json:"ended_calls"`
	ActiveCalls  int `json:"active_calls"`
	SuccessCalls int `json:"successful_calls"`
	FailedCalls  int `json:"failed_calls"`

	// SuccessRate is successful over evaluated (ended calls with an outcome).
	SuccessRate float64 `json:"success_rate"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	ByCallType map[string]TypeStats `json:"by_call_type,omitempty"`
}

// TypeStats is the per-call-type slice of the same metrics.
type TypeStats struct {
	TotalCalls   int `json:"total_calls"`
	SuccessCalls int `json:"successful_calls"`
	FailedCalls  int `json:"failed_calls"`
}
