package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateUser inserts a user. An empty role defaults to RoleUser.
func (d *Database) CreateUser(ctx context.Context, username, role string, profilePictureURL *string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_user", start, err) }()

	if role == "" {
		role = RoleUser
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		INSERT INTO users (username, role, profile_picture_url, created_at) VALUES (?, ?, ?, ?)
	`, username, role, profilePictureURL, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}

	var id int64
	if id, err = result.LastInsertId(); err != nil {
		return nil, err
	}

	return &User{
		ID:                id,
		Username:          username,
		Role:              role,
		ProfilePictureURL: profilePictureURL,
		CreatedAt:         now,
	}, nil
}

// GetUser returns the user with the given id, or ErrUserNotFound.
func (d *Database) GetUser(ctx context.Context, id int64) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_user", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user *User
	user, err = d.getUser(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		err = nil
		return nil, ErrUserNotFound
	}
	return user, err
}

// getUser expects the caller to hold d.mu.
func (d *Database) getUser(ctx context.Context, id int64) (*User, error) {
	var (
		u         User
		avatar    sql.NullString
		createdAt int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, username, role, profile_picture_url, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Username, &u.Role, &avatar, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if avatar.Valid {
		u.ProfilePictureURL = &avatar.String
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}
