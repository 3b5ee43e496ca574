package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence contract for users.
//
// Delete must detach, not cascade: the agent_calls rows owned by the user
// keep existing with a nullified user reference (audit trail).
type Store interface {
	GetByExternalID(ctx context.Context, externalID string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	Insert(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error
	Delete(ctx context.Context, id string) error
}

// Profile is the externally-sourced identity snapshot carried by each
// inbound request (chat message, API call).
type Profile struct {
	ExternalID string `json:"external_id"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
}

type Service struct {
	store Store
	clock func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: time.Now}
}

// GetOrCreate resolves the user for an external identity, creating the row
// on first contact and refreshing profile fields that changed since.
func (s *Service) GetOrCreate(ctx context.Context, p Profile) (User, error) {
	if strings.TrimSpace(p.ExternalID) == "" {
		return User{}, ErrInvalidArgument
	}

	u, err := s.store.GetByExternalID(ctx, p.ExternalID)
	if err == nil {
		changed := false
		if p.Username != "" && u.Username != p.Username {
			u.Username = p.Username
			changed = true
		}
		if p.FirstName != "" && u.FirstName != p.FirstName {
			u.FirstName = p.FirstName
			changed = true
		}
		if p.LastName != "" && u.LastName != p.LastName {
			u.LastName = p.LastName
			changed = true
		}
		if changed {
			u.UpdatedAt = s.clock().UTC()
			if err := s.store.Update(ctx, u); err != nil {
				return User{}, err
			}
		}
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	now := s.clock().UTC()
	u = User{
		ID:          uuid.NewString(),
		ExternalID:  p.ExternalID,
		Username:    p.Username,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Preferences: "{}",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	return s.store.GetByID(ctx, id)
}

// Delete removes the identity row. Call records owned by the user survive
// as ownerless rows.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	return s.store.Delete(ctx, id)
}
