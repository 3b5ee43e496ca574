package users

import (
	"context"
	"database/sql"
	"errors"

	"call-ledger/pkg/utils"
)

// PostgresStore persists users in agent_users.
// Detach-on-delete is enforced by the schema: agent_calls.user_id carries
// REFERENCES agent_users(id) ON DELETE SET NULL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const userColumns = `id, external_id, username, first_name, last_name, preferences, created_at, updated_at`

func (s *PostgresStore) GetByExternalID(ctx context.Context, externalID string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM agent_users WHERE external_id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, externalID))
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM agent_users WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) Insert(ctx context.Context, u User) error {
	const q = `
INSERT INTO agent_users (id, external_id, username, first_name, last_name, preferences, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := s.db.ExecContext(ctx, q,
		u.ID, u.ExternalID, nullable(u.Username), nullable(u.FirstName), nullable(u.LastName),
		u.Preferences, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, u User) error {
	const q = `
UPDATE agent_users
SET username = $2, first_name = $3, last_name = $4, preferences = $5, updated_at = $6
WHERE id = $1
`
	res, err := s.db.ExecContext(ctx, q,
		u.ID, nullable(u.Username), nullable(u.FirstName), nullable(u.LastName), u.Preferences, u.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete detaches the user's calls and removes the row in one transaction.
// The FK's ON DELETE SET NULL covers out-of-band deletes; detaching here keeps
// both statements visible at the same instant.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE agent_calls SET user_id = NULL WHERE user_id = $1`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM agent_users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *PostgresStore) scanOne(row *sql.Row) (User, error) {
	var (
		u         User
		username  sql.NullString
		firstName sql.NullString
		lastName  sql.NullString
	)
	err := row.Scan(&u.ID, &u.ExternalID, &username, &firstName, &lastName, &u.Preferences, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.Username = username.String
	u.FirstName = firstName.String
	u.LastName = lastName.String
	return u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
