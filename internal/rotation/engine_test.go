package rotation

import (
	"context"
	"testing"
	"time"

	"github.com/oszuidwest/zwfm-rotator/internal/config"
	"github.com/oszuidwest/zwfm-rotator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSongSource struct {
	active           []models.RotationSong
	unplayed         []models.RotationSong
	inactive         []int64
	unplayedInactive []int64
	maxPlayed        int
	allPlayed        bool
	persisted        []int64
	persistedAt      int
	restarted        []int64
}

func (f *fakeSongSource) ActiveRotationSongs(context.Context, int64) ([]models.RotationSong, error) {
	return f.active, nil
}

func (f *fakeSongSource) UnplayedRotationSongs(context.Context, int64) ([]models.RotationSong, error) {
	return f.unplayed, nil
}

func (f *fakeSongSource) InactiveSongIDs(context.Context, int64) ([]int64, error) {
	return f.inactive, nil
}

func (f *fakeSongSource) UnplayedInactiveSongIDs(context.Context, int64) ([]int64, error) {
	return f.unplayedInactive, nil
}

func (f *fakeSongSource) MaxPlayedPosition(context.Context, int64) (int, error) {
	return f.maxPlayed, nil
}

func (f *fakeSongSource) AllPlayed(context.Context, int64) (bool, error) {
	return f.allPlayed, nil
}

func (f *fakeSongSource) PersistOrder(_ context.Context, _ int64, songIDs []int64, startAt int) error {
	f.persisted = songIDs
	f.persistedAt = startAt
	return nil
}

func (f *fakeSongSource) RestartCycle(_ context.Context, _ int64, songIDs []int64) error {
	f.restarted = songIDs
	return nil
}

type fakeHistory struct {
	entries []models.PlayHistoryEntry
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]models.PlayHistoryEntry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

type fakeSettings struct {
	values map[string]int
}

func (f *fakeSettings) GetInt(_ context.Context, key string, defaultValue int) (int, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func newTestEngine(songs *fakeSongSource, history *fakeHistory, settings *fakeSettings) *Engine {
	if history == nil {
		history = &fakeHistory{}
	}
	if settings == nil {
		settings = &fakeSettings{}
	}
	return NewEngine(songs, history, settings, config.RotationConfig{})
}

func TestGenerateCycleOrderPersistsFullPermutation(t *testing.T) {
	songs := &fakeSongSource{active: makeSongs(1, 2, 3, 4, 5)}
	engine := newTestEngine(songs, nil, nil)

	require.NoError(t, engine.GenerateCycleOrder(context.Background(), 10))

	require.Len(t, songs.persisted, 5)
	assert.Equal(t, 1, songs.persistedAt, "full reshuffle starts at position 1")

	seen := map[int64]bool{}
	for _, id := range songs.persisted {
		assert.False(t, seen[id], "song %d persisted twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, 5)
}

func TestGenerateCycleOrderEmptyPlaylistIsNoop(t *testing.T) {
	songs := &fakeSongSource{}
	engine := newTestEngine(songs, nil, nil)

	require.NoError(t, engine.GenerateCycleOrder(context.Background(), 10))
	assert.Nil(t, songs.persisted)
}

func TestGenerateCycleOrderRelocatesInactiveRows(t *testing.T) {
	// Membership rows of deactivated songs still hold positions. The
	// rewrite must cover them too, behind the active block, or the new
	// order would collide with a position one of them occupies.
	songs := &fakeSongSource{
		active:   makeSongs(1, 2, 3),
		inactive: []int64{90, 91},
	}
	engine := newTestEngine(songs, nil, nil)

	require.NoError(t, engine.GenerateCycleOrder(context.Background(), 10))

	require.Len(t, songs.persisted, 5)
	assert.Equal(t, []int64{90, 91}, songs.persisted[3:], "inactive rows follow the active block")
}

func TestShuffleRemainingRelocatesUnplayedInactiveRows(t *testing.T) {
	songs := &fakeSongSource{
		unplayed:         makeSongs(1, 1),
		unplayedInactive: []int64{90},
		maxPlayed:        4,
	}
	engine := newTestEngine(songs, nil, nil)

	require.NoError(t, engine.ShuffleRemaining(context.Background(), 10))

	require.Len(t, songs.persisted, 3)
	assert.Equal(t, int64(90), songs.persisted[2])
	assert.Equal(t, 5, songs.persistedAt)
}

func TestCompleteCycleIfDoneRelocatesInactiveRows(t *testing.T) {
	songs := &fakeSongSource{
		active:    makeSongs(1, 2),
		inactive:  []int64{90},
		allPlayed: true,
	}
	engine := newTestEngine(songs, nil, nil)

	started, err := engine.CompleteCycleIfDone(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, started)
	require.Len(t, songs.restarted, 3)
	assert.Equal(t, int64(90), songs.restarted[2])
}

func TestShuffleRemainingAppendsAfterPlayedBlock(t *testing.T) {
	songs := &fakeSongSource{
		unplayed:  makeSongs(1, 1, 1),
		maxPlayed: 7,
	}
	engine := newTestEngine(songs, nil, nil)

	require.NoError(t, engine.ShuffleRemaining(context.Background(), 10))

	require.Len(t, songs.persisted, 3)
	assert.Equal(t, 8, songs.persistedAt, "new positions start right after the played block")
}

func TestCompleteCycleIfDone(t *testing.T) {
	t.Run("cycle still running", func(t *testing.T) {
		songs := &fakeSongSource{active: makeSongs(1, 2), allPlayed: false}
		engine := newTestEngine(songs, nil, nil)

		started, err := engine.CompleteCycleIfDone(context.Background(), 10)
		require.NoError(t, err)
		assert.False(t, started)
		assert.Nil(t, songs.restarted)
	})

	t.Run("cycle complete", func(t *testing.T) {
		songs := &fakeSongSource{active: makeSongs(1, 2, 3), allPlayed: true}
		engine := newTestEngine(songs, nil, nil)

		started, err := engine.CompleteCycleIfDone(context.Background(), 10)
		require.NoError(t, err)
		assert.True(t, started)
		assert.Len(t, songs.restarted, 3)
	})
}

func historyFor(entries ...models.PlayHistoryEntry) *fakeHistory {
	for i := range entries {
		entries[i].ID = int64(i + 1)
		entries[i].StartedAt = time.Now().Add(-time.Duration(i) * 3 * time.Minute)
	}
	return &fakeHistory{entries: entries}
}

func TestArtistBlocked(t *testing.T) {
	history := historyFor(
		models.PlayHistoryEntry{SongID: 1, ArtistID: 11, Title: "One"},
		models.PlayHistoryEntry{SongID: 2, ArtistID: 22, Title: "Two"},
		models.PlayHistoryEntry{SongID: 3, ArtistID: 33, Title: "Three"},
	)
	engine := newTestEngine(&fakeSongSource{}, history, &fakeSettings{values: map[string]int{"artist_repeat_block": 2}})

	blocked, err := engine.ArtistBlocked(context.Background(), 22)
	require.NoError(t, err)
	assert.True(t, blocked, "artist inside the window is blocked")

	blocked, err = engine.ArtistBlocked(context.Background(), 33)
	require.NoError(t, err)
	assert.False(t, blocked, "artist outside the shrunken window is free")
}

func TestTitleBlocked(t *testing.T) {
	history := historyFor(
		models.PlayHistoryEntry{SongID: 1, ArtistID: 11, Title: "Midnight Sun (Remix)"},
		models.PlayHistoryEntry{SongID: 2, ArtistID: 22, Title: "Other Song"},
	)
	engine := newTestEngine(&fakeSongSource{}, history, nil)

	blocked, err := engine.TitleBlocked(context.Background(), "Midnight Sun - Acoustic", 99)
	require.NoError(t, err)
	assert.True(t, blocked, "another rendition of a recently played title is blocked")

	blocked, err = engine.TitleBlocked(context.Background(), "Other Song", 2)
	require.NoError(t, err)
	assert.True(t, blocked, "the same song id is blocked")

	blocked, err = engine.TitleBlocked(context.Background(), "Fresh Tune", 100)
	require.NoError(t, err)
	assert.False(t, blocked)
}
