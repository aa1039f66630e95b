package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oszuidwest/zwfm-rotator/internal/models"
	"github.com/oszuidwest/zwfm-rotator/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Route watcher log lines somewhere harmless during tests.
	_ = logger.Initialize("info", false)
}

type fakeConn struct {
	pingErr      error
	reconnectErr error
	reconnects   int
}

func (f *fakeConn) Ping(context.Context) error { return f.pingErr }
func (f *fakeConn) Reconnect() error {
	f.reconnects++
	if f.reconnectErr == nil {
		f.pingErr = nil
	}
	return f.reconnectErr
}

type fakeResolver struct {
	schedule *models.Schedule
	err      error
}

func (f *fakeResolver) Current(context.Context) (*models.Schedule, error) {
	return f.schedule, f.err
}

type fakeState struct {
	state *models.RotationState
	err   error
}

func (f *fakeState) Get(context.Context) (*models.RotationState, error) {
	return f.state, f.err
}

type fakeSkipper struct {
	calls int
	err   error
}

func (f *fakeSkipper) Skip(context.Context) error {
	f.calls++
	return f.err
}

func playingState(playlistID int64) *models.RotationState {
	return &models.RotationState{ID: 1, CurrentPlaylistID: &playlistID, IsPlaying: true}
}

func idleState() *models.RotationState {
	return &models.RotationState{ID: 1}
}

func scheduleFor(playlistID int64) *models.Schedule {
	return &models.Schedule{ID: 1, PlaylistID: playlistID, IsActive: true, PlaylistActive: true}
}

func newTestWatcher(conn *fakeConn, resolver *fakeResolver, state *fakeState, skip *fakeSkipper) *Watcher {
	return New(conn, resolver, state, skip, 30*time.Second)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		should     *models.Schedule
		current    *models.RotationState
		diverged   bool
		wantReason string
	}{
		{
			name:       "idle to active",
			should:     scheduleFor(7),
			current:    idleState(),
			diverged:   true,
			wantReason: "idle→active (playlist #7)",
		},
		{
			name:       "active to idle",
			should:     nil,
			current:    playingState(3),
			diverged:   true,
			wantReason: "active→idle (playlist #3)",
		},
		{
			name:       "playlist change",
			should:     scheduleFor(9),
			current:    playingState(3),
			diverged:   true,
			wantReason: "playlist change (#3→#9)",
		},
		{
			name:     "aligned while playing",
			should:   scheduleFor(3),
			current:  playingState(3),
			diverged: false,
		},
		{
			name:     "aligned while idle",
			should:   nil,
			current:  idleState(),
			diverged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, diverged := classify(tt.should, tt.current)
			assert.Equal(t, tt.diverged, diverged)
			if tt.diverged {
				assert.Equal(t, tt.wantReason, reason)
			}
		})
	}
}

func TestTickFirstIterationSuppressesCorrection(t *testing.T) {
	skip := &fakeSkipper{}
	w := newTestWatcher(&fakeConn{}, &fakeResolver{schedule: scheduleFor(7)}, &fakeState{state: idleState()}, skip)

	w.tick(context.Background())
	assert.Equal(t, 0, skip.calls, "no signal on the very first iteration")

	w.tick(context.Background())
	assert.Equal(t, 1, skip.calls, "persisting divergence fires on the next iteration")
}

func TestTickAlignedSendsNothing(t *testing.T) {
	skip := &fakeSkipper{}
	w := newTestWatcher(&fakeConn{}, &fakeResolver{schedule: scheduleFor(3)}, &fakeState{state: playingState(3)}, skip)

	for i := 0; i < 5; i++ {
		w.tick(context.Background())
	}
	assert.Equal(t, 0, skip.calls)
}

func TestTickPlaylistChangeSendsExactlyOneSignalPerTick(t *testing.T) {
	skip := &fakeSkipper{}
	w := newTestWatcher(&fakeConn{}, &fakeResolver{schedule: scheduleFor(9)}, &fakeState{state: playingState(3)}, skip)

	w.tick(context.Background()) // first-tick grace
	w.tick(context.Background())
	assert.Equal(t, 1, skip.calls)

	w.tick(context.Background())
	assert.Equal(t, 2, skip.calls, "divergence still present, one more signal next tick")
}

func TestTickFirstRunGraceConsumedByAlignedTick(t *testing.T) {
	skip := &fakeSkipper{}
	resolver := &fakeResolver{schedule: scheduleFor(3)}
	w := newTestWatcher(&fakeConn{}, resolver, &fakeState{state: playingState(3)}, skip)

	w.tick(context.Background()) // aligned first tick consumes the grace
	resolver.schedule = scheduleFor(9)
	w.tick(context.Background())
	assert.Equal(t, 1, skip.calls, "divergence after a clean first tick fires immediately")
}

func TestTickEmergencyOverrideSuppressesCorrection(t *testing.T) {
	skip := &fakeSkipper{}
	st := playingState(3)
	st.IsEmergency = true
	w := newTestWatcher(&fakeConn{}, &fakeResolver{schedule: scheduleFor(9)}, &fakeState{state: st}, skip)

	w.tick(context.Background())
	w.tick(context.Background())
	assert.Equal(t, 0, skip.calls)
}

func TestTickReconnectsOnDeadConnection(t *testing.T) {
	conn := &fakeConn{pingErr: errors.New("gone away")}
	skip := &fakeSkipper{}
	w := newTestWatcher(conn, &fakeResolver{schedule: scheduleFor(3)}, &fakeState{state: playingState(3)}, skip)

	w.tick(context.Background())
	assert.Equal(t, 1, conn.reconnects)
}

func TestTickKeepsGraceWhenFirstTickAborts(t *testing.T) {
	conn := &fakeConn{pingErr: errors.New("gone away"), reconnectErr: errors.New("still down")}
	skip := &fakeSkipper{}
	w := newTestWatcher(conn, &fakeResolver{schedule: scheduleFor(7)}, &fakeState{state: idleState()}, skip)

	// Aborted tick: the watcher learned nothing, so the startup grace
	// must still apply to the first completed classification.
	w.tick(context.Background())
	require.Equal(t, 0, skip.calls)

	conn.reconnectErr = nil
	w.tick(context.Background())
	assert.Equal(t, 0, skip.calls, "first completed tick is still suppressed")

	w.tick(context.Background())
	assert.Equal(t, 1, skip.calls)
}

func TestTickResolverErrorIsSoft(t *testing.T) {
	skip := &fakeSkipper{}
	resolver := &fakeResolver{err: errors.New("query failed")}
	w := newTestWatcher(&fakeConn{}, resolver, &fakeState{state: idleState()}, skip)

	w.tick(context.Background())
	assert.Equal(t, 0, skip.calls)

	resolver.err = nil
	resolver.schedule = scheduleFor(7)
	w.tick(context.Background()) // grace still pending
	w.tick(context.Background())
	assert.Equal(t, 1, skip.calls)
}

func TestTickSkipFailureIsSoft(t *testing.T) {
	skip := &fakeSkipper{err: errors.New("connection refused")}
	w := newTestWatcher(&fakeConn{}, &fakeResolver{schedule: scheduleFor(7)}, &fakeState{state: idleState()}, skip)

	w.tick(context.Background())
	w.tick(context.Background())
	w.tick(context.Background())
	assert.Equal(t, 2, skip.calls, "failed skips are retried on later ticks, never within one")
}
