package provider

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"call-ledger/internal/ledger"
)

func TestParseVapiEvent_StatusUpdate(t *testing.T) {
	body := []byte(`{"message":{"type":"status-update","status":"ringing","call":{"id":"vapi-abc"}}}`)

	ev, err := ParseVapiEvent(body)
	if err != nil {
		t.Fatalf("ParseVapiEvent: %v", err)
	}
	if ev.CallID != "vapi-abc" {
		t.Errorf("call id = %q, want vapi-abc", ev.CallID)
	}
	if ev.Status != ledger.StatusRinging {
		t.Errorf("status = %q, want ringing", ev.Status)
	}
	if ev.Final {
		t.Error("status-update should not be final")
	}
}

func TestParseVapiEvent_StatusMapping(t *testing.T) {
	cases := map[string]ledger.CallStatus{
		"queued":      ledger.StatusInitiated,
		"scheduled":   ledger.StatusInitiated,
		"ringing":     ledger.StatusRinging,
		"in-progress": ledger.StatusInProgress,
		"forwarding":  ledger.StatusInProgress,
		"ended":       ledger.StatusEnded,
	}
	for raw, want := range cases {
		body := []byte(`{"message":{"type":"status-update","status":"` + raw + `","call":{"id":"c1"}}}`)
		ev, err := ParseVapiEvent(body)
		if err != nil {
			t.Fatalf("status %q: %v", raw, err)
		}
		if ev.Status != want {
			t.Errorf("status %q mapped to %q, want %q", raw, ev.Status, want)
		}
	}
}

func TestParseVapiEvent_UnknownStatusRejected(t *testing.T) {
	body := []byte(`{"message":{"type":"status-update","status":"teleporting","call":{"id":"c1"}}}`)
	if _, err := ParseVapiEvent(body); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestParseVapiEvent_EndOfCallReport(t *testing.T) {
	body := []byte(`{
		"message": {
			"type": "end-of-call-report",
			"call": {"id": "vapi-123"},
			"endedReason": "customer-ended-call",
			"durationSeconds": 42.7,
			"transcript": "AI: Hello...",
			"analysis": {"summary": "Reservation confirmed.", "successEvaluation": "true"}
		}
	}`)

	ev, err := ParseVapiEvent(body)
	if err != nil {
		t.Fatalf("ParseVapiEvent: %v", err)
	}
	if !ev.Final || ev.Status != ledger.StatusEnded {
		t.Fatalf("final=%v status=%q, want final ended", ev.Final, ev.Status)
	}
	if ev.Terminal.EndedReason != "customer-ended-call" {
		t.Errorf("ended reason = %q", ev.Terminal.EndedReason)
	}
	if ev.Terminal.DurationSeconds == nil || *ev.Terminal.DurationSeconds != 42 {
		t.Errorf("duration = %v, want 42", ev.Terminal.DurationSeconds)
	}
	// Top-level summary absent; analysis summary fills in.
	if ev.Terminal.Summary != "Reservation confirmed." {
		t.Errorf("summary = %q", ev.Terminal.Summary)
	}
	if ev.Terminal.Success == nil || !*ev.Terminal.Success {
		t.Errorf("success = %v, want true", ev.Terminal.Success)
	}
}

func TestParseVapiEvent_IgnoredTypes(t *testing.T) {
	for _, typ := range []string{"transcript", "speech-update", "hang", "conversation-update"} {
		body := []byte(`{"message":{"type":"` + typ + `","call":{"id":"c1"}}}`)
		_, err := ParseVapiEvent(body)
		if !IsIgnored(err) {
			t.Errorf("type %q: err = %v, want ignored", typ, err)
		}
	}
}

func TestParseVapiEvent_MissingCallID(t *testing.T) {
	body := []byte(`{"message":{"type":"status-update","status":"ringing"}}`)
	if _, err := ParseVapiEvent(body); err == nil || IsIgnored(err) {
		t.Fatalf("err = %v, want hard error", err)
	}
}

func TestParseSuccessEvaluation(t *testing.T) {
	tr, fa := true, false
	cases := []struct {
		raw  string
		want *bool
	}{
		{`true`, &tr},
		{`false`, &fa},
		{`"true"`, &tr},
		{`"False"`, &fa},
		{`"n/a"`, nil},
		{``, nil},
		{`7.5`, nil},
	}
	for _, tc := range cases {
		got := parseSuccessEvaluation([]byte(tc.raw))
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("raw %q: got %v, want nil", tc.raw, *got)
		case tc.want != nil && (got == nil || *got != *tc.want):
			t.Errorf("raw %q: got %v, want %v", tc.raw, got, *tc.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	if got := parseTimestamp([]byte(`1710000000000`)); got.Unix() != 1710000000 {
		t.Errorf("epoch millis: got %v", got)
	}
	if got := parseTimestamp([]byte(`"2024-03-09T17:20:00Z"`)); got.IsZero() {
		t.Error("RFC3339 string should parse")
	}
	if got := parseTimestamp(nil); !got.IsZero() {
		t.Errorf("absent timestamp: got %v", got)
	}
	if got := parseTimestamp([]byte(`"soon"`)); !got.IsZero() {
		t.Errorf("garbage timestamp: got %v", got)
	}
}

func TestStatusEventMarshalOmitsZeroTimestamp(t *testing.T) {
	b, err := json.Marshal(StatusEvent{CallID: "c1", Status: ledger.StatusRinging})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "occurred_at") {
		t.Errorf("zero timestamp should be omitted: %s", b)
	}

	ev := StatusEvent{CallID: "c1", OccurredAt: time.Unix(1710000000, 0).UTC()}
	b, err = json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "occurred_at") {
		t.Errorf("set timestamp should be present: %s", b)
	}
}

func TestEndedReasonMessage(t *testing.T) {
	if got := EndedReasonMessage("customer-busy"); got != "The line was busy." {
		t.Errorf("known code: %q", got)
	}
	if got := EndedReasonMessage("some-new-code"); got != "some-new-code" {
		t.Errorf("unknown code should pass through, got %q", got)
	}
	if got := EndedReasonMessage(""); got != "" {
		t.Errorf("empty code: %q", got)
	}
}
