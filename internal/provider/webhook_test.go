package provider

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"call-ledger/internal/access"
	"call-ledger/internal/ledger"
)

func newWebhookRig(t *testing.T, secret string) (*gin.Engine, *ledger.Service, *ledger.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, nil)
	wh := NewWebhook(svc, secret, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := gin.New()
	r.POST("/webhooks/vapi", wh.Handle)
	return r, svc, store
}

func post(r *gin.Engine, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/vapi", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretHeader, secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedCall(t *testing.T, svc *ledger.Service, callID string) {
	t.Helper()
	_, err := svc.CreateCall(context.Background(), ledger.CreateCallRequest{
		UserID:      "u1",
		CallID:      callID,
		PhoneNumber: "+15550001111",
	})
	if err != nil {
		t.Fatalf("seed call: %v", err)
	}
}

func TestWebhook_RejectsBadSecret(t *testing.T) {
	r, _, _ := newWebhookRig(t, "s3cret")

	if w := post(r, `{}`, "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status %d, want 401", w.Code)
	}
	if w := post(r, `{}`, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing secret: status %d, want 401", w.Code)
	}
}

func TestWebhook_StatusUpdateAdvancesCall(t *testing.T) {
	r, svc, _ := newWebhookRig(t, "s3cret")
	seedCall(t, svc, "vapi-1")

	w := post(r, `{"message":{"type":"status-update","status":"ringing","call":{"id":"vapi-1"}}}`, "s3cret")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body)
	}

	rec, err := svc.GetByCallID(context.Background(), access.ServiceIdentity(), "vapi-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != ledger.StatusRinging {
		t.Errorf("status = %q, want ringing", rec.Status)
	}
}

func TestWebhook_EndOfCallReportEndsCall(t *testing.T) {
	r, svc, _ := newWebhookRig(t, "")
	seedCall(t, svc, "vapi-2")

	body := `{"message":{"type":"end-of-call-report","call":{"id":"vapi-2"},
		"endedReason":"customer-ended-call","durationSeconds":30,
		"transcript":"hi","analysis":{"summary":"done","successEvaluation":true}}}`
	if w := post(r, body, ""); w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body)
	}

	rec, err := svc.GetByCallID(context.Background(), access.ServiceIdentity(), "vapi-2")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != ledger.StatusEnded {
		t.Fatalf("status = %q, want ended", rec.Status)
	}
	if rec.EndedAt == nil || rec.EndedReason != "customer-ended-call" || rec.Transcript != "hi" {
		t.Errorf("terminal fields not applied: %+v", rec)
	}
	if rec.Success == nil || !*rec.Success {
		t.Errorf("success = %v, want true", rec.Success)
	}
}

func TestWebhook_FinalReportAfterEndedAmends(t *testing.T) {
	r, svc, _ := newWebhookRig(t, "")
	seedCall(t, svc, "vapi-3")

	// status-update already moved the call to ended, without artifacts.
	end := `{"message":{"type":"status-update","status":"ended","call":{"id":"vapi-3"},"endedReason":"customer-ended-call"}}`
	if w := post(r, end, ""); w.Code != http.StatusOK {
		t.Fatalf("end update: status %d", w.Code)
	}

	report := `{"message":{"type":"end-of-call-report","call":{"id":"vapi-3"},
		"endedReason":"assistant-ended-call","durationSeconds":42,
		"transcript":"full transcript",
		"analysis":{"summary":"booked","successEvaluation":"true"}}}`
	if w := post(r, report, ""); w.Code != http.StatusOK {
		t.Fatalf("report: status %d, body %s", w.Code, w.Body)
	}

	rec, err := svc.GetByCallID(context.Background(), access.ServiceIdentity(), "vapi-3")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != ledger.StatusEnded {
		t.Fatalf("status = %q", rec.Status)
	}
	if rec.Transcript != "full transcript" || rec.Summary != "booked" {
		t.Errorf("amendment not applied: transcript=%q summary=%q", rec.Transcript, rec.Summary)
	}
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 42 {
		t.Errorf("duration = %v, want 42", rec.DurationSeconds)
	}
	if rec.EndedReason != "assistant-ended-call" {
		t.Errorf("ended reason = %q, want assistant-ended-call", rec.EndedReason)
	}
}

func TestWebhook_UnknownCallDropped(t *testing.T) {
	r, _, _ := newWebhookRig(t, "")

	w := post(r, `{"message":{"type":"status-update","status":"ringing","call":{"id":"nope"}}}`, "")
	if w.Code != http.StatusOK {
		t.Errorf("unknown call: status %d, want 200", w.Code)
	}
}

func TestWebhook_UnknownCallLogsEventContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, nil)
	wh := NewWebhook(svc, "", slog.New(slog.NewJSONHandler(&buf, nil)))

	r := gin.New()
	r.POST("/webhooks/vapi", wh.Handle)

	body := `{"message":{"type":"status-update","status":"ringing","timestamp":1700000000000,"call":{"id":"ghost-1"}}}`
	if w := post(r, body, ""); w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body)
	}

	logged := buf.String()
	for _, want := range []string{"ghost-1", "occurred_at", "payload", "status-update"} {
		if !strings.Contains(logged, want) {
			t.Errorf("log line missing %q: %s", want, logged)
		}
	}
}

func TestWebhook_StaleUpdateAcknowledged(t *testing.T) {
	r, svc, _ := newWebhookRig(t, "")
	seedCall(t, svc, "vapi-4")

	if w := post(r, `{"message":{"type":"status-update","status":"in-progress","call":{"id":"vapi-4"}}}`, ""); w.Code != http.StatusOK {
		t.Fatalf("first update: %d", w.Code)
	}
	// Late ringing event; dropped, still acknowledged.
	if w := post(r, `{"message":{"type":"status-update","status":"ringing","call":{"id":"vapi-4"}}}`, ""); w.Code != http.StatusOK {
		t.Errorf("stale update: status %d, want 200", w.Code)
	}

	rec, _ := svc.GetByCallID(context.Background(), access.ServiceIdentity(), "vapi-4")
	if rec.Status != ledger.StatusInProgress {
		t.Errorf("status = %q, want in-progress preserved", rec.Status)
	}
}

func TestWebhook_IgnoredEventTypeAcknowledged(t *testing.T) {
	r, _, _ := newWebhookRig(t, "")

	w := post(r, `{"message":{"type":"speech-update","call":{"id":"vapi-5"}}}`, "")
	if w.Code != http.StatusOK {
		t.Errorf("ignored type: status %d, want 200", w.Code)
	}
}

func TestWebhook_MalformedBodyRejected(t *testing.T) {
	r, _, _ := newWebhookRig(t, "")

	if w := post(r, `{not json`, ""); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status %d, want 400", w.Code)
	}
}
