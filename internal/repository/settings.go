package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/oszuidwest/zwfm-rotator/internal/database"
)

// Setting keys used by the rotation engine.
const (
	// SettingArtistRepeatBlock is the artist repeat-block window size.
	SettingArtistRepeatBlock = "artist_repeat_block"
	// SettingTitleRepeatBlock is the title repeat-block window size.
	SettingTitleRepeatBlock = "title_repeat_block"
)

// Default window sizes applied when a setting row is missing.
const (
	DefaultArtistRepeatBlock = 6
	DefaultTitleRepeatBlock  = 2
)

// Settings provides access to the key/value settings table.
type Settings struct {
	conn *database.Conn
}

// NewSettings creates a settings repository.
func NewSettings(conn *database.Conn) *Settings {
	return &Settings{conn: conn}
}

// Get returns the value for key, or an empty string when unset.
func (r *Settings) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.conn.DB().GetContext(ctx, &value, `
		SELECT value FROM settings WHERE name = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// GetInt returns the integer value for key, or defaultValue when the key
// is unset or not a valid integer.
func (r *Settings) GetInt(ctx context.Context, key string, defaultValue int) (int, error) {
	value, err := r.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return settingInt(value, defaultValue), nil
}

// settingInt parses a stored setting value, falling back to defaultValue
// for a missing row (empty string) or a value that is not an integer.
func settingInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// Set stores the value for key, inserting or updating as needed.
func (r *Settings) Set(ctx context.Context, key, value string) error {
	if _, err := r.conn.DB().ExecContext(ctx, `
		INSERT INTO settings (name, value)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`, key, value); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}
