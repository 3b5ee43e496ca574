package ledger

import "testing"

func TestCanTransition_ForwardOnly(t *testing.T) {
	cases := []struct {
		cur, next CallStatus
		want      bool
	}{
		{StatusInitiated, StatusRinging, true},
		{StatusInitiated, StatusInProgress, true},
		{StatusInitiated, StatusEnded, true},
		{StatusRinging, StatusInProgress, true},
		{StatusRinging, StatusEnded, true},
		{StatusInProgress, StatusEnded, true},

		// repeats
		{StatusInitiated, StatusInitiated, false},
		{StatusEnded, StatusEnded, false},

		// regressions
		{StatusRinging, StatusInitiated, false},
		{StatusInProgress, StatusRinging, false},

		// nothing leaves ended
		{StatusEnded, StatusRinging, false},
		{StatusEnded, StatusInProgress, false},
		{StatusEnded, StatusInitiated, false},

		// unknown states
		{StatusInitiated, CallStatus("queued"), false},
		{CallStatus(""), StatusRinging, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.cur, tc.next); got != tc.want {
			t.Fatalf("CanTransition(%q, %q) = %v, want %v", tc.cur, tc.next, got, tc.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []CallStatus{StatusInitiated, StatusRinging, StatusInProgress, StatusEnded} {
		if !ValidStatus(s) {
			t.Fatalf("expected %q valid", s)
		}
	}
	if ValidStatus("completed") {
		t.Fatalf("unknown status must be invalid")
	}
}
