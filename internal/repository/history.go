package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/oszuidwest/zwfm-rotator/internal/database"
	"github.com/oszuidwest/zwfm-rotator/internal/models"
)

// History provides access to the append-only play log.
type History struct {
	conn *database.Conn
}

// NewHistory creates a play history repository.
func NewHistory(conn *database.Conn) *History {
	return &History{conn: conn}
}

// Recent returns the most recent limit entries, newest first, joined with
// the song fields the repeat-blocking checks need.
func (r *History) Recent(ctx context.Context, limit int) ([]models.PlayHistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	var entries []models.PlayHistoryEntry
	err := r.conn.DB().SelectContext(ctx, &entries, `
		SELECT h.id, h.song_id, h.started_at, s.artist_id, s.title
		FROM play_history h
		JOIN songs s ON s.id = h.song_id
		ORDER BY h.started_at DESC, h.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent play history: %w", err)
	}
	return entries, nil
}

// Append records that a song started playing at the given time.
func (r *History) Append(ctx context.Context, songID int64, startedAt time.Time) error {
	if _, err := r.conn.DB().ExecContext(ctx, `
		INSERT INTO play_history (song_id, started_at)
		VALUES (?, ?)`, songID, startedAt); err != nil {
		return fmt.Errorf("failed to append play history for song %d: %w", songID, err)
	}
	return nil
}
