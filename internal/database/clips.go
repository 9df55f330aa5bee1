package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const clipColumns = `id, user_id, filename, file_path, file_size, duration, title,
	description, thumbnail_path, private, uploaded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClip(row rowScanner) (*Clip, error) {
	var (
		c           Clip
		duration    sql.NullInt64
		description sql.NullString
		thumbnail   sql.NullString
		uploadedAt  int64
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Filename, &c.FilePath, &c.FileSize, &duration,
		&c.Title, &description, &thumbnail, &c.Private, &uploadedAt)
	if err != nil {
		return nil, err
	}

	if duration.Valid {
		c.Duration = &duration.Int64
	}
	if description.Valid {
		c.Description = &description.String
	}
	if thumbnail.Valid {
		c.ThumbnailPath = &thumbnail.String
	}
	c.UploadedAt = time.Unix(uploadedAt, 0).UTC()
	return &c, nil
}

// CreateClip inserts a clip record with no thumbnail and returns it.
func (d *Database) CreateClip(ctx context.Context, nc NewClip) (*Clip, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_clip", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		INSERT INTO clips (user_id, filename, file_path, file_size, duration, title, description, private, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, nc.UserID, nc.Filename, nc.FilePath, nc.FileSize, nc.Duration, nc.Title, nc.Description, nc.Private, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert clip: %w", err)
	}

	var id int64
	id, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &Clip{
		ID:          id,
		UserID:      nc.UserID,
		Filename:    nc.Filename,
		FilePath:    nc.FilePath,
		FileSize:    nc.FileSize,
		Duration:    nc.Duration,
		Title:       nc.Title,
		Description: nc.Description,
		Private:     nc.Private,
		UploadedAt:  now,
	}, nil
}

// GetClip returns the clip with the given id, or ErrClipNotFound.
func (d *Database) GetClip(ctx context.Context, id int64) (*Clip, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_clip", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var clip *Clip
	clip, err = scanClip(d.db.QueryRowContext(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrClipNotFound
	}
	if err != nil {
		return nil, err
	}
	return clip, nil
}

// SetThumbnailPath records the clip's thumbnail in a single conditional
// UPDATE. It reports false, without error, when the clip no longer exists;
// it never creates a record.
func (d *Database) SetThumbnailPath(ctx context.Context, id int64, path string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_thumbnail_path", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `UPDATE clips SET thumbnail_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return false, fmt.Errorf("failed to update thumbnail for clip %d: %w", id, err)
	}

	var rows int64
	rows, err = result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ClearThumbnailPath resets the clip to having no thumbnail.
func (d *Database) ClearThumbnailPath(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("clear_thumbnail_path", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `UPDATE clips SET thumbnail_path = NULL WHERE id = ?`, id)
	return err
}

// GetClipOwner returns the user who uploaded the clip. It returns
// ErrClipNotFound if the clip is gone and ErrUserNotFound if the owner is.
func (d *Database) GetClipOwner(ctx context.Context, clipID int64) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_clip_owner", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var userID sql.NullInt64
	err = d.db.QueryRowContext(ctx, `
		SELECT u.id
		FROM clips c LEFT JOIN users u ON u.id = c.user_id
		WHERE c.id = ?
	`, clipID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrClipNotFound
	}
	if err != nil {
		return nil, err
	}
	if !userID.Valid {
		return nil, ErrUserNotFound
	}

	var user *User
	user, err = d.getUser(ctx, userID.Int64)
	return user, err
}

// DeleteClip removes the clip record. It returns ErrClipNotFound if there
// was nothing to delete.
func (d *Database) DeleteClip(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_clip", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `DELETE FROM clips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clip %d: %w", id, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrClipNotFound
	}
	return nil
}

// ListClipsWithoutThumbnail returns up to limit clips that have no recorded
// thumbnail, oldest first.
func (d *Database) ListClipsWithoutThumbnail(ctx context.Context, limit int) ([]Clip, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_without_thumbnail", start, err) }()

	if limit <= 0 {
		limit = 100
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE thumbnail_path IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []Clip
	for rows.Next() {
		var c *Clip
		c, err = scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, *c)
	}
	err = rows.Err()
	return clips, err
}
