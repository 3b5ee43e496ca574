package ledger

// CallStatus is the lifecycle state of a call.
//
// Lifecycle: initiated -> ringing -> in-progress -> ended.
// Transitions only move forward; any state may short-circuit straight to
// ended (e.g. immediate connect failure). ended is terminal.
type CallStatus string

const (
	StatusInitiated  CallStatus = "initiated"
	StatusRinging    CallStatus = "ringing"
	StatusInProgress CallStatus = "in-progress"
	StatusEnded      CallStatus = "ended"
)

// statusRank orders the lifecycle. Unknown statuses rank negative.
func statusRank(s CallStatus) int {
	switch s {
	case StatusInitiated:
		return 0
	case StatusRinging:
		return 1
	case StatusInProgress:
		return 2
	case StatusEnded:
		return 3
	default:
		return -1
	}
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s CallStatus) bool { return statusRank(s) >= 0 }

// CanTransition reports whether a record may move from cur to next.
// Forward skips are allowed; repeats and regressions are not, and nothing
// leaves ended.
func CanTransition(cur, next CallStatus) bool {
	cr, nr := statusRank(cur), statusRank(next)
	if cr < 0 || nr < 0 {
		return false
	}
	return nr > cr
}
