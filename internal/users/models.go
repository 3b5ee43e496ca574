package users

import (
	"errors"
	"time"
)

// User is the agent_users identity row. Calls reference it weakly: removing
// a user detaches (nullifies) their call records, it never deletes them.
type User struct {
	ID string `json:"id" db:"id"`

	// ExternalID is the chat-channel identity the user arrives with
	// (e.g. a Telegram user id). Unique.
	ExternalID string `json:"external_id" db:"external_id"`

	Username  string `json:"username,omitempty" db:"username"`
	FirstName string `json:"first_name,omitempty" db:"first_name"`
	LastName  string `json:"last_name,omitempty" db:"last_name"`

	// Preferences is open-ended JSON (JSONB in Postgres).
	Preferences string `json:"preferences" db:"preferences"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var (
	ErrNotFound        = errors.New("users: not found")
	ErrInvalidArgument = errors.New("users: invalid argument")
)
