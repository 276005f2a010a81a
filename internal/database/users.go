package database

import (
	"context"

	"github.com/google/uuid"
)

const getUserByUsername = `
SELECT id, username, full_name, hashed_password, roles, is_active, created_at
FROM users
WHERE username = $1 AND is_active = true
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByUsername, username)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.HashedPassword, &u.Roles, &u.IsActive, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, username, full_name, hashed_password, roles, is_active, created_at
FROM users
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.HashedPassword, &u.Roles, &u.IsActive, &u.CreatedAt)
	return u, err
}
