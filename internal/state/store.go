// Package state owns the singleton rotation_state row: the single source
// of truth for what is actually on air. All reads and writes funnel through
// the Store so the playback advancer and the boundary watcher never touch
// the row ad hoc.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/oszuidwest/zwfm-rotator/internal/database"
	"github.com/oszuidwest/zwfm-rotator/internal/models"
)

// stateRowID pins the singleton row. There is exactly one rotation state.
const stateRowID = 1

// Store is the typed accessor for the rotation state row. Mutators are
// serialized in-process; the watcher only reads.
type Store struct {
	conn *database.Conn
	mu   sync.Mutex
}

// NewStore creates a rotation state store.
func NewStore(conn *database.Conn) *Store {
	return &Store{conn: conn}
}

// Get returns the current rotation state, creating the row with defaults
// on first use.
func (s *Store) Get(ctx context.Context) (*models.RotationState, error) {
	if err := s.ensureRow(ctx); err != nil {
		return nil, err
	}
	var st models.RotationState
	err := s.conn.DB().GetContext(ctx, &st, `
		SELECT id, current_playlist_id, is_playing, is_emergency,
		       current_position, current_cycle, playback_offset_ms,
		       songs_since_jingle, last_artist_ids, updated_at
		FROM rotation_state WHERE id = ?`, stateRowID)
	if err != nil {
		return nil, fmt.Errorf("failed to read rotation state: %w", err)
	}
	return &st, nil
}

// SetActivePlaylist designates the playlist playback should draw from and
// resets the position pointer for the new program.
func (s *Store) SetActivePlaylist(ctx context.Context, playlistID int64) error {
	return s.update(ctx, `
		UPDATE rotation_state
		SET current_playlist_id = ?, current_position = 0, playback_offset_ms = 0
		WHERE id = ?`, playlistID, stateRowID)
}

// SetPlaying flips the is-playing flag.
func (s *Store) SetPlaying(ctx context.Context, playing bool) error {
	return s.update(ctx, `
		UPDATE rotation_state SET is_playing = ? WHERE id = ?`, playing, stateRowID)
}

// SetEmergency flips the emergency override flag.
func (s *Store) SetEmergency(ctx context.Context, emergency bool) error {
	return s.update(ctx, `
		UPDATE rotation_state SET is_emergency = ? WHERE id = ?`, emergency, stateRowID)
}

// AdvancePosition moves the position pointer to the row now playing and
// resets the playback offset.
func (s *Store) AdvancePosition(ctx context.Context, position int) error {
	return s.update(ctx, `
		UPDATE rotation_state
		SET current_position = ?, playback_offset_ms = 0
		WHERE id = ?`, position, stateRowID)
}

// SetPlaybackOffset records how far into the current song playback is.
func (s *Store) SetPlaybackOffset(ctx context.Context, offsetMS int64) error {
	return s.update(ctx, `
		UPDATE rotation_state SET playback_offset_ms = ? WHERE id = ?`, offsetMS, stateRowID)
}

// IncrementCycle bumps the cycle counter at a cycle boundary.
func (s *Store) IncrementCycle(ctx context.Context) error {
	return s.update(ctx, `
		UPDATE rotation_state SET current_cycle = current_cycle + 1 WHERE id = ?`, stateRowID)
}

// IncrementSongsSinceJingle counts one more song since the last jingle.
func (s *Store) IncrementSongsSinceJingle(ctx context.Context) error {
	return s.update(ctx, `
		UPDATE rotation_state SET songs_since_jingle = songs_since_jingle + 1 WHERE id = ?`, stateRowID)
}

// ResetJingleCounter zeroes the jingle counter after a jingle aired.
func (s *Store) ResetJingleCounter(ctx context.Context) error {
	return s.update(ctx, `
		UPDATE rotation_state SET songs_since_jingle = 0 WHERE id = ?`, stateRowID)
}

// RecordArtistPlayed appends the artist to the recent-artist ring, trimmed
// to keep, oldest first out. The ring feeds the external repeat-blocking
// checks.
func (s *Store) RecordArtistPlayed(ctx context.Context, artistID int64, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Get(ctx)
	if err != nil {
		return err
	}
	encoded, err := encodeArtistRing(st.LastArtists(), artistID, keep)
	if err != nil {
		return fmt.Errorf("failed to encode artist ring: %w", err)
	}
	if _, err := s.conn.DB().ExecContext(ctx, `
		UPDATE rotation_state SET last_artist_ids = ? WHERE id = ?`, string(encoded), stateRowID); err != nil {
		return fmt.Errorf("failed to update rotation state: %w", err)
	}
	return nil
}

// encodeArtistRing appends the artist to the ring and trims it to the
// newest keep entries. A keep of zero or less disables trimming.
func encodeArtistRing(ids []int64, artistID int64, keep int) (string, error) {
	ids = append(ids, artistID)
	if keep > 0 && len(ids) > keep {
		ids = ids[len(ids)-keep:]
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (s *Store) update(ctx context.Context, query string, args ...any) error {
	if err := s.ensureRow(ctx); err != nil {
		return err
	}
	if _, err := s.conn.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update rotation state: %w", err)
	}
	return nil
}

// ensureRow creates the singleton row with defaults when it is missing.
func (s *Store) ensureRow(ctx context.Context) error {
	if _, err := s.conn.DB().ExecContext(ctx, `
		INSERT IGNORE INTO rotation_state
			(id, current_playlist_id, is_playing, is_emergency,
			 current_position, current_cycle, playback_offset_ms,
			 songs_since_jingle, last_artist_ids)
		VALUES (?, NULL, 0, 0, 0, 1, 0, 0, '[]')`, stateRowID); err != nil {
		return fmt.Errorf("failed to initialize rotation state: %w", err)
	}
	return nil
}
