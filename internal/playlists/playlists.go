// Package playlists manages locally edited playlists and publishes them to
// Spotify.
//
// A playlist's tracks are kept at contiguous indices 0..n-1. Every mutation
// preserves that invariant:
//
//   - Append places tracks after the last index.
//   - Insert shifts tracks at or after the index up by one.
//   - Move shifts the tracks between the two indices by one toward the gap.
//   - Remove deletes the track and shifts later tracks down.
//
// A track appears at most once in a playlist.
package playlists

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justestif/go-tuttitracks/internal/features"
)

// Common errors.
var (
	ErrNotFound     = errors.New("playlist not found")
	ErrInvalidIndex = errors.New("track index out of range")
	ErrTrackMissing = errors.New("track not in playlist")
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateTrack also matches ErrInvalidInput.
	ErrDuplicateTrack = errors.New("track already in playlist")
)

// DuplicateError reports that trackID would appear twice.
func DuplicateError(trackID string) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidInput, ErrDuplicateTrack, trackID)
}

// FirstDuplicate returns the first ID in ids that occurs more than once.
func FirstDuplicate(ids []string) (string, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return "", false
}

// DefaultName is used when a playlist is created without a name.
const DefaultName = "New Playlist"

// Playlist is a playlist owned by one Spotify user.
type Playlist struct {
	ID          int64     `json:"id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Public      bool      `json:"public"`
	SpotifyID   string    `json:"spotify_playlist_id,omitempty"` // empty until published
	TrackCount  int       `json:"num_tracks"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists playlists and their ordered tracks.
type Store interface {
	CreatePlaylist(ctx context.Context, p *Playlist, trackIDs []string) error
	GetPlaylist(ctx context.Context, id int64) (*Playlist, error)
	ListPlaylists(ctx context.Context, owner string) ([]Playlist, error)
	UpdatePlaylist(ctx context.Context, p *Playlist) error
	DeletePlaylist(ctx context.Context, id int64) error

	TrackIDs(ctx context.Context, id int64) ([]string, error)
	AppendTracks(ctx context.Context, id int64, trackIDs []string) error
	InsertTrack(ctx context.Context, id int64, trackID string, index int) error
	MoveTrack(ctx context.Context, id int64, currentIndex, newIndex int) error
	RemoveTrack(ctx context.Context, id int64, trackID string) error
	ReplaceTracks(ctx context.Context, id int64, trackIDs []string) error
}

// TrackLookup resolves track IDs to tracks with their audio features.
type TrackLookup interface {
	GetTracks(ctx context.Context, ids []string) ([]features.Track, error)
}

// Remote is the Spotify side of a published playlist.
type Remote interface {
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)
	ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
	ChangePlaylistDetails(ctx context.Context, playlistID, name, description string, public bool) error
}
