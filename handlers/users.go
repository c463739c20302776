// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/danielhkuo/mlm-members/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, password_hash, first_name, last_name, display_name, phone, role, created_at`

func getUser(ctx context.Context, q execer, where string, arg any) (models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.DisplayName, &u.Phone, &u.Role, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUser loads an identity record by ID
func GetUser(ctx context.Context, conn *sql.DB, userID string) (models.User, error) {
	return getUser(ctx, conn, `id = $1`, userID)
}

// GetUserByEmail loads an identity record by e-mail, ignoring case
func GetUserByEmail(ctx context.Context, conn *sql.DB, email string) (models.User, error) {
	return getUser(ctx, conn, `LOWER(email) = $1`, strings.ToLower(strings.TrimSpace(email)))
}

// emailTaken reports whether an identity record already uses the address
func emailTaken(ctx context.Context, q execer, email, exceptUserID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE LOWER(email) = $1 AND id <> $2`,
		strings.ToLower(strings.TrimSpace(email)), exceptUserID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}
