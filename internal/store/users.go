package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, password_hash, role, created_at`

// GetUserByEmail returns the user matching the (lowercased) email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = lower($1)`, email)
	if err != nil {
		return User{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[User])
}

// GetUserByID returns a single user.
func (s *Store) GetUserByID(ctx context.Context, id pgtype.UUID) (User, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1`, id)
	if err != nil {
		return User{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[User])
}

// CreateUser inserts a user record and returns the stored row.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	if !u.ID.Valid {
		u.ID = NewUUID()
	}
	if u.Role == "" {
		u.Role = "customer"
	}
	rows, err := s.Pool.Query(ctx, `
		INSERT INTO users (id, email, password_hash, role)
		VALUES ($1, lower($2), $3, $4)
		RETURNING `+userColumns, u.ID, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		return User{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[User])
}

// CountUsers returns the total number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CountUsersCreatedBetween counts users registered inside the bounds (either may be NULL).
func (s *Store) CountUsersCreatedBetween(ctx context.Context, from, to pgtype.Timestamptz) (int64, error) {
	var count int64
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM users
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)`, from, to).Scan(&count)
	return count, err
}
