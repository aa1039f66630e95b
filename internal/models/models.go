// Package models contains the data models for the rotator.
package models

import (
	"encoding/json"
	"time"
)

// Song represents a track in the music library
type Song struct {
	ID             int64     `db:"id" json:"id"`
	ArtistID       int64     `db:"artist_id" json:"artist_id"`
	CategoryID     int64     `db:"category_id" json:"category_id"`
	Title          string    `db:"title" json:"title"`
	DurationMS     int64     `db:"duration_ms" json:"duration_ms"`
	RotationWeight float64   `db:"rotation_weight" json:"rotation_weight"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Category represents a rotation category (current, recurrent, gold, ...).
// Its weight multiplies with a song's own weight to give the effective
// rotation weight.
type Category struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	RotationWeight float64   `db:"rotation_weight" json:"rotation_weight"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Playlist represents a rotation playlist
type Playlist struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PlaylistSong represents a song's membership in a playlist.
// Position is unique per playlist at rest; during a reshuffle the rotation
// engine temporarily parks positions in negative space.
type PlaylistSong struct {
	PlaylistID    int64 `db:"playlist_id" json:"playlist_id"`
	SongID        int64 `db:"song_id" json:"song_id"`
	Position      int   `db:"position" json:"position"`
	PlayedInCycle bool  `db:"played_in_cycle" json:"played_in_cycle"`
}

// RotationSong is the slice of song data the rotation engine orders:
// identity, collision keys and the effective (song x category) weight.
type RotationSong struct {
	SongID     int64   `db:"song_id" json:"song_id"`
	ArtistID   int64   `db:"artist_id" json:"artist_id"`
	CategoryID int64   `db:"category_id" json:"category_id"`
	Title      string  `db:"title" json:"title"`
	Weight     float64 `db:"effective_weight" json:"effective_weight"`
}

// Schedule assigns a playlist to a recurring time block.
// Weekdays of zero means the schedule applies every day. Times are local
// to the station timezone in HH:MM:SS form; EndTime is exclusive.
type Schedule struct {
	ID         int64      `db:"id" json:"id"`
	PlaylistID int64      `db:"playlist_id" json:"playlist_id"`
	Weekdays   Weekdays   `db:"weekdays" json:"weekdays"`
	StartDate  *time.Time `db:"start_date" json:"start_date"`
	EndDate    *time.Time `db:"end_date" json:"end_date"`
	StartTime  string     `db:"start_time" json:"start_time"`
	EndTime    string     `db:"end_time" json:"end_time"`
	Priority   int        `db:"priority" json:"priority"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`

	// Relations (filled by joins)
	PlaylistActive bool   `db:"playlist_active" json:"-"`
	PlaylistName   string `db:"playlist_name" json:"playlist_name,omitempty"`
}

// RotationState is the singleton row (id=1) describing what is actually
// on air right now. It is created on first access and mutated only through
// the state store.
type RotationState struct {
	ID                int64     `db:"id" json:"id"`
	CurrentPlaylistID *int64    `db:"current_playlist_id" json:"current_playlist_id"`
	IsPlaying         bool      `db:"is_playing" json:"is_playing"`
	IsEmergency       bool      `db:"is_emergency" json:"is_emergency"`
	CurrentPosition   int       `db:"current_position" json:"current_position"`
	CurrentCycle      int       `db:"current_cycle" json:"current_cycle"`
	PlaybackOffsetMS  int64     `db:"playback_offset_ms" json:"playback_offset_ms"`
	SongsSinceJingle  int       `db:"songs_since_jingle" json:"songs_since_jingle"`
	LastArtistIDs     string    `db:"last_artist_ids" json:"-"` // JSON array of artist ids
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// LastArtists decodes the recent-artist ring stored on the state row.
// A malformed or empty value decodes as no artists.
func (s *RotationState) LastArtists() []int64 {
	if s.LastArtistIDs == "" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(s.LastArtistIDs), &ids); err != nil {
		return nil
	}
	return ids
}

// PlayHistoryEntry is one appended row of the play log, joined with the
// song fields the repeat-blocking checks need.
type PlayHistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	SongID    int64     `db:"song_id" json:"song_id"`
	StartedAt time.Time `db:"started_at" json:"started_at"`

	// Relations (filled by joins)
	ArtistID int64  `db:"artist_id" json:"artist_id"`
	Title    string `db:"title" json:"title"`
}
