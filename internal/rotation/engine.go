package rotation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-rotator/internal/config"
	"github.com/oszuidwest/zwfm-rotator/internal/models"
	"github.com/oszuidwest/zwfm-rotator/internal/repository"
	"github.com/oszuidwest/zwfm-rotator/pkg/logger"
)

// SongSource provides playlist membership reads and the two-phase
// position writes the engine persists through.
type SongSource interface {
	ActiveRotationSongs(ctx context.Context, playlistID int64) ([]models.RotationSong, error)
	UnplayedRotationSongs(ctx context.Context, playlistID int64) ([]models.RotationSong, error)
	InactiveSongIDs(ctx context.Context, playlistID int64) ([]int64, error)
	UnplayedInactiveSongIDs(ctx context.Context, playlistID int64) ([]int64, error)
	MaxPlayedPosition(ctx context.Context, playlistID int64) (int, error)
	AllPlayed(ctx context.Context, playlistID int64) (bool, error)
	PersistOrder(ctx context.Context, playlistID int64, songIDs []int64, startAt int) error
	RestartCycle(ctx context.Context, playlistID int64, songIDs []int64) error
}

// HistorySource provides the recent slice of the play log.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]models.PlayHistoryEntry, error)
}

// SettingsSource provides tunables stored in the settings table.
type SettingsSource interface {
	GetInt(ctx context.Context, key string, defaultValue int) (int, error)
}

// Engine produces and persists constraint-satisfying play orders for
// playlists. Each reshuffle is serialized per playlist: two concurrent
// rewrites of the same playlist would interleave the two write phases
// destructively.
type Engine struct {
	songs    SongSource
	history  HistorySource
	settings SettingsSource

	artistGap   int
	categoryGap int
	titleGap    int

	mu  sync.Mutex
	rng *rand.Rand

	locks playlistLocks
}

// NewEngine creates a rotation engine using the configured separation gaps.
func NewEngine(songs SongSource, history HistorySource, settings SettingsSource, cfg config.RotationConfig) *Engine {
	artistGap := cfg.ArtistGap
	if artistGap < 1 {
		artistGap = DefaultArtistGap
	}
	categoryGap := cfg.CategoryGap
	if categoryGap < 1 {
		categoryGap = DefaultCategoryGap
	}
	titleGap := cfg.TitleGap
	if titleGap < 1 {
		titleGap = DefaultTitleGap
	}
	return &Engine{
		songs:       songs,
		history:     history,
		settings:    settings,
		artistGap:   artistGap,
		categoryGap: categoryGap,
		titleGap:    titleGap,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 - shuffle bias, not crypto
	}
}

// GenerateCycleOrder reshuffles the playlist's full active song set and
// persists the new order starting at position 1. A playlist with no active
// songs is a no-op.
func (e *Engine) GenerateCycleOrder(ctx context.Context, playlistID int64) error {
	unlock := e.locks.lock(playlistID)
	defer unlock()

	songs, err := e.songs.ActiveRotationSongs(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		logger.Debug("playlist %d has no active songs, skipping reshuffle", playlistID)
		return nil
	}

	e.order(songs)

	// Rows of deactivated songs still hold positions. They are relocated
	// past the active range in the same rewrite so the fresh order cannot
	// land on a position one of them occupies.
	inactive, err := e.songs.InactiveSongIDs(ctx, playlistID)
	if err != nil {
		return err
	}

	if err := e.songs.PersistOrder(ctx, playlistID, append(songIDs(songs), inactive...), 1); err != nil {
		return fmt.Errorf("failed to persist cycle order for playlist %d: %w", playlistID, err)
	}
	logger.Info("generated new cycle order for playlist %d (%d songs)", playlistID, len(songs))
	return nil
}

// ShuffleRemaining reshuffles only the songs not yet played this cycle.
// Already-played songs keep their positions; the new order is appended
// directly after the highest played position.
func (e *Engine) ShuffleRemaining(ctx context.Context, playlistID int64) error {
	unlock := e.locks.lock(playlistID)
	defer unlock()

	songs, err := e.songs.UnplayedRotationSongs(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		logger.Debug("playlist %d has no unplayed songs, skipping reshuffle", playlistID)
		return nil
	}

	startAt, err := e.songs.MaxPlayedPosition(ctx, playlistID)
	if err != nil {
		return err
	}

	e.order(songs)

	// Unplayed rows of deactivated songs may occupy positions above the
	// played block; relocate them behind the reshuffled songs.
	inactive, err := e.songs.UnplayedInactiveSongIDs(ctx, playlistID)
	if err != nil {
		return err
	}

	if err := e.songs.PersistOrder(ctx, playlistID, append(songIDs(songs), inactive...), startAt+1); err != nil {
		return fmt.Errorf("failed to persist remaining order for playlist %d: %w", playlistID, err)
	}
	logger.Info("reshuffled %d remaining songs for playlist %d", len(songs), playlistID)
	return nil
}

// CompleteCycleIfDone starts a fresh cycle when every song in the playlist
// has played: the played flags are cleared and a full new order is written
// in one transaction. Reports whether a new cycle was started.
func (e *Engine) CompleteCycleIfDone(ctx context.Context, playlistID int64) (bool, error) {
	unlock := e.locks.lock(playlistID)
	defer unlock()

	done, err := e.songs.AllPlayed(ctx, playlistID)
	if err != nil {
		return false, err
	}
	if !done {
		return false, nil
	}

	songs, err := e.songs.ActiveRotationSongs(ctx, playlistID)
	if err != nil {
		return false, err
	}
	if len(songs) == 0 {
		return false, nil
	}

	e.order(songs)

	inactive, err := e.songs.InactiveSongIDs(ctx, playlistID)
	if err != nil {
		return false, err
	}

	if err := e.songs.RestartCycle(ctx, playlistID, append(songIDs(songs), inactive...)); err != nil {
		return false, fmt.Errorf("failed to restart cycle for playlist %d: %w", playlistID, err)
	}
	logger.Info("cycle complete for playlist %d, started a new one (%d songs)", playlistID, len(songs))
	return true, nil
}

// order runs the full pipeline: weighted shuffle, then the separation
// passes in fixed order. Later passes may shift the earlier passes' bias
// slightly but never break their correctness.
func (e *Engine) order(songs []models.RotationSong) {
	if len(songs) <= 1 {
		return
	}
	e.mu.Lock()
	WeightedShuffle(songs, e.rng)
	e.mu.Unlock()
	EnforceArtistSeparation(songs, e.artistGap)
	EnforceCategorySeparation(songs, e.categoryGap)
	EnforceTitleSeparation(songs, e.titleGap)
}

// ArtistBlocked reports whether the artist appears in the most recent
// window of the play log. The window size comes from settings, falling
// back to the configured default. Advisory only: the next-track selector
// consults this, the shuffle does not.
func (e *Engine) ArtistBlocked(ctx context.Context, artistID int64) (bool, error) {
	window, err := e.settings.GetInt(ctx, repository.SettingArtistRepeatBlock, repository.DefaultArtistRepeatBlock)
	if err != nil {
		return false, err
	}
	entries, err := e.history.Recent(ctx, window)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.ArtistID == artistID {
			return true, nil
		}
	}
	return false, nil
}

// TitleBlocked reports whether the song itself, or any song sharing its
// normalized base title, appears in the most recent window of the play log.
func (e *Engine) TitleBlocked(ctx context.Context, title string, songID int64) (bool, error) {
	window, err := e.settings.GetInt(ctx, repository.SettingTitleRepeatBlock, repository.DefaultTitleRepeatBlock)
	if err != nil {
		return false, err
	}
	entries, err := e.history.Recent(ctx, window)
	if err != nil {
		return false, err
	}
	base := BaseTitle(title)
	for _, entry := range entries {
		if entry.SongID == songID || BaseTitle(entry.Title) == base {
			return true, nil
		}
	}
	return false, nil
}

func songIDs(songs []models.RotationSong) []int64 {
	ids := make([]int64, len(songs))
	for i, s := range songs {
		ids[i] = s.SongID
	}
	return ids
}

// playlistLocks serializes reshuffles per playlist.
type playlistLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (l *playlistLocks) lock(playlistID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := l.locks[playlistID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[playlistID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
