// Package watcher provides the schedule boundary watcher: a background
// service that detects when the should-be-playing program differs from the
// is-playing program and signals the audio engine to correct course.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-rotator/internal/models"
	"github.com/oszuidwest/zwfm-rotator/pkg/logger"
)

// connection is the slice of the database handle the watcher heals:
// a liveness probe and a wholesale reconnect.
type connection interface {
	Ping(ctx context.Context) error
	Reconnect() error
}

// scheduleResolver answers what should be airing right now.
type scheduleResolver interface {
	Current(ctx context.Context) (*models.Schedule, error)
}

// stateReader answers what is actually airing right now.
type stateReader interface {
	Get(ctx context.Context) (*models.RotationState, error)
}

// skipper requests an immediate track change from the audio engine.
type skipper interface {
	Skip(ctx context.Context) error
}

// Watcher polls the schedule resolver against the persisted playback state
// on a fixed interval and fires one skip signal per divergent tick. It
// never exits on a recoverable error; database trouble is healed by a
// wholesale reconnect and retried next tick.
type Watcher struct {
	conn     connection
	resolver scheduleResolver
	state    stateReader
	control  skipper
	interval time.Duration

	// firstTick suppresses the correction right after process start,
	// when the watcher cannot know how recently the current track began.
	firstTick bool

	ticker   *time.Ticker
	done     chan bool
	stopOnce sync.Once
}

// New creates a boundary watcher.
func New(conn connection, resolver scheduleResolver, state stateReader, control skipper, interval time.Duration) *Watcher {
	return &Watcher{
		conn:      conn,
		resolver:  resolver,
		state:     state,
		control:   control,
		interval:  interval,
		firstTick: true,
		done:      make(chan bool),
	}
}

// Start begins the watch loop with an immediate first check.
// The service runs in a separate goroutine and can be stopped with [Watcher.Stop].
func (w *Watcher) Start() {
	logger.Info("Starting schedule boundary watcher (interval: %s)", w.interval)

	w.tick(context.Background())

	w.ticker = time.NewTicker(w.interval)

	go func() {
		for {
			select {
			case <-w.ticker.C:
				w.tick(context.Background())
			case <-w.done:
				return
			}
		}
	}()
}

// Stop gracefully shuts down the watcher.
// Uses sync.Once to prevent double-stop race conditions and a timeout to prevent deadlock.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		logger.Info("Stopping schedule boundary watcher")
		select {
		case w.done <- true:
		case <-time.After(5 * time.Second):
			logger.Info("Boundary watcher shutdown timeout")
		}
		if w.ticker != nil {
			w.ticker.Stop()
		}
	})
}

// tick runs one boundary check: heal the database connection if needed,
// classify the divergence between resolved schedule and playback state,
// and signal the audio engine when a correction is due.
func (w *Watcher) tick(ctx context.Context) {
	if err := w.conn.Ping(ctx); err != nil {
		logger.Error("Database liveness probe failed: %v", err)
		if err := w.conn.Reconnect(); err != nil {
			logger.Error("Database reconnect failed, retrying next tick: %v", err)
			return
		}
		logger.Info("Database connection re-established")
	}

	should, err := w.resolver.Current(ctx)
	if err != nil {
		logger.Error("Schedule resolution failed, retrying next tick: %v", err)
		return
	}

	current, err := w.state.Get(ctx)
	if err != nil {
		logger.Error("Rotation state read failed, retrying next tick: %v", err)
		return
	}

	reason, diverged := classify(should, current)
	suppressed := w.firstTick
	w.firstTick = false

	if !diverged {
		return
	}
	if current.IsEmergency {
		logger.Debug("Emergency override active, not correcting: %s", reason)
		return
	}
	if suppressed {
		logger.Info("Pending correction on startup, holding one tick: %s", reason)
		return
	}

	logger.Info("Schedule boundary: %s", reason)
	if err := w.control.Skip(ctx); err != nil {
		logger.Error("Skip signal failed, re-evaluating next tick: %v", err)
	}
}

// classify compares the resolved schedule against the playback state and
// returns a human-readable transition reason plus whether a correction is
// due. The three divergences are idle to active, active to idle, and a
// playlist change while playing.
func classify(should *models.Schedule, current *models.RotationState) (string, bool) {
	switch {
	case should != nil && !current.IsPlaying:
		return fmt.Sprintf("idle→active (playlist #%d)", should.PlaylistID), true
	case should == nil && current.IsPlaying:
		if current.CurrentPlaylistID != nil {
			return fmt.Sprintf("active→idle (playlist #%d)", *current.CurrentPlaylistID), true
		}
		return "active→idle", true
	case should != nil && current.IsPlaying &&
		(current.CurrentPlaylistID == nil || *current.CurrentPlaylistID != should.PlaylistID):
		from := int64(0)
		if current.CurrentPlaylistID != nil {
			from = *current.CurrentPlaylistID
		}
		return fmt.Sprintf("playlist change (#%d→#%d)", from, should.PlaylistID), true
	default:
		return "", false
	}
}
