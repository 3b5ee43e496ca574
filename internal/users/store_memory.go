package users

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests.
//
// OnDelete, when set, runs after a user row is removed; tests wire it to the
// ledger's NullifyUser to mirror the schema's ON DELETE SET NULL.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]User // keyed by id

	OnDelete func(ctx context.Context, userID string) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]User)}
}

func (m *MemoryStore) GetByExternalID(ctx context.Context, externalID string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) Insert(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[u.ID] = u
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[u.ID]; !ok {
		return ErrNotFound
	}
	m.rows[u.ID] = u
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.rows[id]; !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.rows, id)
	hook := m.OnDelete
	m.mu.Unlock()

	if hook != nil {
		return hook(ctx, id)
	}
	return nil
}
