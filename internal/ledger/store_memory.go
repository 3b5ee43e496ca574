package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and early development.
// The mutex provides the row-level atomicity the Postgres store gets from
// single-statement compare-and-swap updates.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]CallRecord // keyed by call_id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]CallRecord)}
}

func (m *MemoryStore) Insert(ctx context.Context, rec CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rows[rec.CallID]; exists {
		return ErrDuplicateCallID
	}
	m.rows[rec.CallID] = rec
	return nil
}

func (m *MemoryStore) GetByCallID(ctx context.Context, callID string) (CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[callID]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) UpdateStatusCAS(ctx context.Context, callID string, expect, next CallStatus, term TerminalFields, now time.Time) (CallRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[callID]
	if !ok {
		return CallRecord{}, false, ErrNotFound
	}
	if rec.Status != expect {
		return CallRecord{}, false, nil
	}

	rec.Status = next
	rec.UpdatedAt = now
	if next == StatusEnded {
		if rec.EndedAt == nil {
			t := now
			rec.EndedAt = &t
		}
		if term.EndedReason != "" {
			rec.EndedReason = term.EndedReason
		}
		if term.DurationSeconds != nil {
			rec.DurationSeconds = term.DurationSeconds
		}
		if term.Transcript != "" {
			rec.Transcript = term.Transcript
		}
		if term.Summary != "" {
			rec.Summary = term.Summary
		}
		if term.Success != nil {
			rec.Success = term.Success
		}
	}
	m.rows[callID] = rec
	return rec, true, nil
}

func (m *MemoryStore) Amend(ctx context.Context, callID string, a Amendment, now time.Time) (CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[callID]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	if a.EndedReason != "" {
		rec.EndedReason = a.EndedReason
	}
	if a.DurationSeconds != nil {
		rec.DurationSeconds = a.DurationSeconds
	}
	if a.Transcript != "" {
		rec.Transcript = a.Transcript
	}
	if a.Summary != "" {
		rec.Summary = a.Summary
	}
	if a.Success != nil {
		rec.Success = a.Success
	}
	rec.UpdatedAt = now
	m.rows[callID] = rec
	return rec, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string, f ListFilter) ([]CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, 0)
	for _, rec := range m.rows {
		if rec.UserID != userID {
			continue
		}
		if !matches(rec, f) {
			continue
		}
		out = append(out, rec)
	}
	sortNewestFirst(out)
	return clip(out, f.Limit), nil
}

func (m *MemoryStore) ListAll(ctx context.Context, f ListFilter) ([]CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, 0, len(m.rows))
	for _, rec := range m.rows {
		if !matches(rec, f) {
			continue
		}
		out = append(out, rec)
	}
	sortNewestFirst(out)
	return clip(out, f.Limit), nil
}

// NullifyUser detaches all records owned by userID (owner removed).
// Mirrors the FK ON DELETE SET NULL behavior of the Postgres schema.
func (m *MemoryStore) NullifyUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, rec := range m.rows {
		if rec.UserID == userID {
			rec.UserID = ""
			m.rows[key] = rec
		}
	}
	return nil
}

func matches(rec CallRecord, f ListFilter) bool {
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.CallType != "" && rec.CallType != f.CallType {
		return false
	}
	return true
}

func sortNewestFirst(rows []CallRecord) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CallID > rows[j].CallID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

func clip(rows []CallRecord, limit int) []CallRecord {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
