package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"astba/training/internal/model"
	"astba/training/internal/store"
)

const userColumns = `id, name, email, password_hash, role, status, profile_image, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.ProfileImage,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, mapErr(err)
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Status, user.ProfileImage, user.CreatedAt, user.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (s *Store) ListUsers(ctx context.Context, filter store.UserFilter) ([]model.User, error) {
	var a args
	var where []string
	if filter.Role != nil {
		where = append(where, "role = "+a.add(*filter.Role))
	}
	if filter.Status != nil {
		where = append(where, "status = "+a.add(*filter.Status))
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, seq DESC`

	rows, err := s.q.Query(ctx, query, a...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, user model.User) error {
	return affected(s.q.Exec(ctx, `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, role = $5, status = $6, profile_image = $7, updated_at = $8
		WHERE id = $1
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Status, user.ProfileImage, user.UpdatedAt))
}
