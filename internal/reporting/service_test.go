package reporting

import (
	"context"
	"testing"
	"time"

	"call-ledger/internal/access"
	"call-ledger/internal/ledger"
)

// fakeSource hands back canned rows, pre-filtered by call type the way the
// real ledger would.
type fakeSource struct {
	byUser map[string][]ledger.CallRecord
	all    []ledger.CallRecord
}

func filterType(rows []ledger.CallRecord, callType string) []ledger.CallRecord {
	if callType == "" {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if r.CallType == callType {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeSource) ListByUser(_ context.Context, id access.Identity, userID string, lf ledger.ListFilter) ([]ledger.CallRecord, error) {
	if userID == "" {
		userID = id.UserID
	}
	if !id.Service() && id.UserID != userID {
		return []ledger.CallRecord{}, nil
	}
	return filterType(f.byUser[userID], lf.CallType), nil
}

func (f *fakeSource) ListAll(_ context.Context, id access.Identity, lf ledger.ListFilter) ([]ledger.CallRecord, error) {
	if !id.Service() {
		return f.ListByUser(context.Background(), id, id.UserID, lf)
	}
	return filterType(f.all, lf.CallType), nil
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func call(userID, callType string, status ledger.CallStatus, dur *int, success *bool, created time.Time) ledger.CallRecord {
	return ledger.CallRecord{
		UserID:          userID,
		CallType:        callType,
		Status:          status,
		DurationSeconds: dur,
		Success:         success,
		CreatedAt:       created,
	}
}

func testSource() *fakeSource {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	u1 := []ledger.CallRecord{
		call("u1", "restaurant_reservation", ledger.StatusEnded, intPtr(60), boolPtr(true), base),
		call("u1", "restaurant_reservation", ledger.StatusEnded, intPtr(30), boolPtr(false), base.Add(time.Hour)),
		call("u1", "general", ledger.StatusEnded, intPtr(90), boolPtr(true), base.Add(2*time.Hour)),
		call("u1", "general", ledger.StatusInProgress, nil, nil, base.Add(3*time.Hour)),
	}
	u2 := []ledger.CallRecord{
		call("u2", "general", ledger.StatusEnded, intPtr(10), boolPtr(true), base),
	}
	return &fakeSource{
		byUser: map[string][]ledger.CallRecord{"u1": u1, "u2": u2},
		all:    append(append([]ledger.CallRecord{}, u1...), u2...),
	}
}

func TestCallStats_OwnCalls(t *testing.T) {
	svc := NewService(testSource())
	id := access.Identity{UserID: "u1", Role: access.RoleUser}

	got, err := svc.CallStats(context.Background(), id, CallStatsRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("CallStats: %v", err)
	}

	if got.TotalCalls != 4 || got.EndedCalls != 3 || got.ActiveCalls != 1 {
		t.Errorf("counts = total %d ended %d active %d", got.TotalCalls, got.EndedCalls, got.ActiveCalls)
	}
	if got.SuccessCalls != 2 || got.FailedCalls != 1 {
		t.Errorf("outcomes = success %d failed %d", got.SuccessCalls, got.FailedCalls)
	}
	// 2 of 3 evaluated calls succeeded.
	if want := 2.0 / 3.0; got.SuccessRate != want {
		t.Errorf("success rate = %v, want %v", got.SuccessRate, want)
	}
	if got.TotalDurationSeconds != 180 || got.AverageDurationSeconds != 60 {
		t.Errorf("durations = total %d avg %d", got.TotalDurationSeconds, got.AverageDurationSeconds)
	}

	res := got.ByCallType["restaurant_reservation"]
	if res.TotalCalls != 2 || res.SuccessCalls != 1 || res.FailedCalls != 1 {
		t.Errorf("restaurant_reservation stats = %+v", res)
	}
}

func TestCallStats_CallTypeFilter(t *testing.T) {
	svc := NewService(testSource())
	id := access.Identity{UserID: "u1", Role: access.RoleUser}

	got, err := svc.CallStats(context.Background(), id, CallStatsRequest{UserID: "u1", CallType: "general"})
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalCalls != 2 {
		t.Errorf("total = %d, want 2", got.TotalCalls)
	}
	if len(got.ByCallType) != 1 {
		t.Errorf("breakdown keys = %v, want only general", got.ByCallType)
	}
}

func TestCallStats_ServiceSpansLedger(t *testing.T) {
	svc := NewService(testSource())

	got, err := svc.CallStats(context.Background(), access.ServiceIdentity(), CallStatsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalCalls != 5 {
		t.Errorf("total = %d, want 5", got.TotalCalls)
	}
}

func TestCallStats_StrangerSeesNothing(t *testing.T) {
	svc := NewService(testSource())
	id := access.Identity{UserID: "u2", Role: access.RoleUser}

	got, err := svc.CallStats(context.Background(), id, CallStatsRequest{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalCalls != 0 {
		t.Errorf("total = %d, want 0 (invisible rows behave as absent)", got.TotalCalls)
	}
	if got.ByCallType != nil {
		t.Errorf("empty stats should omit breakdown, got %v", got.ByCallType)
	}
}

func TestCallStats_TimeWindow(t *testing.T) {
	svc := NewService(testSource())
	id := access.Identity{UserID: "u1", Role: access.RoleUser}

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got, err := svc.CallStats(context.Background(), id, CallStatsRequest{
		UserID: "u1",
		Range:  TimeRange{From: base.Add(30 * time.Minute), To: base.Add(150 * time.Minute)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalCalls != 2 {
		t.Errorf("windowed total = %d, want 2", got.TotalCalls)
	}
}

func TestCallStats_InvalidRange(t *testing.T) {
	svc := NewService(testSource())
	id := access.Identity{UserID: "u1", Role: access.RoleUser}

	_, err := svc.CallStats(context.Background(), id, CallStatsRequest{
		UserID: "u1",
		Range:  TimeRange{From: time.Now()}, // missing To
	})
	if err != ErrInvalidRequest {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}
