// Package repository provides data access for the rotator's owned tables.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/oszuidwest/zwfm-rotator/internal/database"
	"github.com/oszuidwest/zwfm-rotator/internal/models"
)

// parkOffset shifts positions far into negative space during phase one of
// a rewrite. Final positions are small positives, so a parked value can
// never collide with a value written in phase two.
const parkOffset = 1_000_000

// PlaylistSongs provides access to playlist membership and the two-phase
// position rewrite used by the rotation engine.
type PlaylistSongs struct {
	conn *database.Conn
}

// NewPlaylistSongs creates a playlist songs repository.
func NewPlaylistSongs(conn *database.Conn) *PlaylistSongs {
	return &PlaylistSongs{conn: conn}
}

const rotationSongColumns = `
		ps.song_id,
		s.artist_id,
		s.category_id,
		s.title,
		s.rotation_weight * c.rotation_weight AS effective_weight`

// ActiveRotationSongs loads every active song in the playlist with its
// effective weight (song weight times category weight).
func (r *PlaylistSongs) ActiveRotationSongs(ctx context.Context, playlistID int64) ([]models.RotationSong, error) {
	var songs []models.RotationSong
	err := r.conn.DB().SelectContext(ctx, &songs, `
		SELECT`+rotationSongColumns+`
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		JOIN categories c ON c.id = s.category_id
		WHERE ps.playlist_id = ? AND s.is_active = 1
		ORDER BY ps.position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist %d songs: %w", playlistID, err)
	}
	return songs, nil
}

// UnplayedRotationSongs is like ActiveRotationSongs restricted to songs not
// yet marked played in the current cycle.
func (r *PlaylistSongs) UnplayedRotationSongs(ctx context.Context, playlistID int64) ([]models.RotationSong, error) {
	var songs []models.RotationSong
	err := r.conn.DB().SelectContext(ctx, &songs, `
		SELECT`+rotationSongColumns+`
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		JOIN categories c ON c.id = s.category_id
		WHERE ps.playlist_id = ? AND s.is_active = 1 AND ps.played_in_cycle = 0
		ORDER BY ps.position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist %d unplayed songs: %w", playlistID, err)
	}
	return songs, nil
}

// InactiveSongIDs returns membership rows whose song has been deactivated,
// in position order. Deactivated songs drop out of the shuffle but their
// rows keep holding positions, so every rewrite must relocate them too or
// phase two would collide with them.
func (r *PlaylistSongs) InactiveSongIDs(ctx context.Context, playlistID int64) ([]int64, error) {
	var ids []int64
	err := r.conn.DB().SelectContext(ctx, &ids, `
		SELECT ps.song_id
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id = ? AND s.is_active = 0
		ORDER BY ps.position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist %d inactive songs: %w", playlistID, err)
	}
	return ids, nil
}

// UnplayedInactiveSongIDs is like InactiveSongIDs restricted to rows not
// yet marked played in the current cycle.
func (r *PlaylistSongs) UnplayedInactiveSongIDs(ctx context.Context, playlistID int64) ([]int64, error) {
	var ids []int64
	err := r.conn.DB().SelectContext(ctx, &ids, `
		SELECT ps.song_id
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id = ? AND s.is_active = 0 AND ps.played_in_cycle = 0
		ORDER BY ps.position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist %d unplayed inactive songs: %w", playlistID, err)
	}
	return ids, nil
}

// MaxPlayedPosition returns the highest position among songs already played
// this cycle, or 0 when none have played yet.
func (r *PlaylistSongs) MaxPlayedPosition(ctx context.Context, playlistID int64) (int, error) {
	var maxPos sql.NullInt64
	err := r.conn.DB().GetContext(ctx, &maxPos, `
		SELECT MAX(position)
		FROM playlist_songs
		WHERE playlist_id = ? AND played_in_cycle = 1`, playlistID)
	if err != nil {
		return 0, fmt.Errorf("failed to find max played position for playlist %d: %w", playlistID, err)
	}
	return int(maxPos.Int64), nil
}

// AllPlayed reports whether every song in the playlist has been played
// this cycle. An empty playlist counts as fully played.
func (r *PlaylistSongs) AllPlayed(ctx context.Context, playlistID int64) (bool, error) {
	var remaining int
	err := r.conn.DB().GetContext(ctx, &remaining, `
		SELECT COUNT(*)
		FROM playlist_songs
		WHERE playlist_id = ? AND played_in_cycle = 0`, playlistID)
	if err != nil {
		return false, fmt.Errorf("failed to count unplayed songs for playlist %d: %w", playlistID, err)
	}
	return remaining == 0, nil
}

// PersistOrder writes a new play order for the given songs in one
// transaction. startAt is the first position to assign; songs receive
// consecutive positions from there in slice order.
func (r *PlaylistSongs) PersistOrder(ctx context.Context, playlistID int64, songIDs []int64, startAt int) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		return writeOrder(ctx, &txPositionWriter{tx: tx}, playlistID, songIDs, startAt)
	})
}

// RestartCycle clears every played_in_cycle flag and writes a fresh full
// order in the same transaction, so a cycle boundary is atomic.
func (r *PlaylistSongs) RestartCycle(ctx context.Context, playlistID int64, songIDs []int64) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE playlist_songs SET played_in_cycle = 0
			WHERE playlist_id = ?`, playlistID); err != nil {
			return fmt.Errorf("failed to reset cycle flags for playlist %d: %w", playlistID, err)
		}
		return writeOrder(ctx, &txPositionWriter{tx: tx}, playlistID, songIDs, 1)
	})
}

func (r *PlaylistSongs) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.conn.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// positionWriter is the minimal write surface the two-phase rewrite needs.
type positionWriter interface {
	// parkPositions moves the named rows out of positive position space.
	parkPositions(ctx context.Context, playlistID int64, songIDs []int64) error
	// setPosition writes a row's final position.
	setPosition(ctx context.Context, playlistID, songID int64, position int) error
}

// writeOrder performs the two-phase position rewrite: park every touched
// row in negative space first, then write final positions one by one.
// Positions are unique per playlist, so skipping phase one would collide
// whenever a new position is still held by a not-yet-rewritten row.
// The caller must include every row currently holding a position at or
// above startAt, inactive memberships included; a row left out keeps its
// old position and phase two would collide with it.
func writeOrder(ctx context.Context, w positionWriter, playlistID int64, songIDs []int64, startAt int) error {
	if len(songIDs) == 0 {
		return nil
	}
	if err := w.parkPositions(ctx, playlistID, songIDs); err != nil {
		return err
	}
	for i, songID := range songIDs {
		if err := w.setPosition(ctx, playlistID, songID, startAt+i); err != nil {
			return err
		}
	}
	return nil
}

// txPositionWriter implements positionWriter against a live transaction.
type txPositionWriter struct {
	tx *sqlx.Tx
}

func (w *txPositionWriter) parkPositions(ctx context.Context, playlistID int64, songIDs []int64) error {
	query, args, err := sqlx.In(`
		UPDATE playlist_songs SET position = -(position + ?)
		WHERE playlist_id = ? AND song_id IN (?)`, parkOffset, playlistID, songIDs)
	if err != nil {
		return fmt.Errorf("failed to build park query: %w", err)
	}
	if _, err := w.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to park positions for playlist %d: %w", playlistID, err)
	}
	return nil
}

func (w *txPositionWriter) setPosition(ctx context.Context, playlistID, songID int64, position int) error {
	if _, err := w.tx.ExecContext(ctx, `
		UPDATE playlist_songs SET position = ?
		WHERE playlist_id = ? AND song_id = ?`, position, playlistID, songID); err != nil {
		return fmt.Errorf("failed to set position %d for song %d: %w", position, songID, err)
	}
	return nil
}
