// Package library browses a user's Spotify tracks and keeps a local copy of
// every track it has seen, including audio features fetched on demand.
package library

import (
	"context"
	"errors"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/spotify"
)

// ErrTrackNotFound is returned when a track is not in the store.
var ErrTrackNotFound = errors.New("track not found")

// Page sizes used when browsing Spotify.
const (
	LikedPageSize  = 25
	TopPageSize    = 20
	SearchPageSize = 15
)

// TrackStore persists track metadata and audio features.
type TrackStore interface {
	// UpsertTracks inserts or updates track metadata. Stored audio
	// features are kept when the incoming track has none.
	UpsertTracks(ctx context.Context, tracks []features.Track) error
	// GetTrack returns ErrTrackNotFound if the track is unknown.
	GetTrack(ctx context.Context, id string) (*features.Track, error)
	// GetTracks returns the known tracks among ids, in the order of ids.
	GetTracks(ctx context.Context, ids []string) ([]features.Track, error)
	// SetFeatures stores audio features for a known track.
	SetFeatures(ctx context.Context, id string, audio features.Audio) error
	// MissingFeatures returns the ids that have no stored audio features.
	MissingFeatures(ctx context.Context, ids []string) ([]string, error)
}

// Source is the subset of the Spotify client the library reads from.
type Source interface {
	SavedTracks(ctx context.Context, limit, offset int) (*spotify.TrackPage, error)
	TopTracks(ctx context.Context, limit, offset int, timeRange string) (*spotify.TrackPage, error)
	SearchTracks(ctx context.Context, query string, limit, offset int) (*spotify.TrackPage, error)
	Track(ctx context.Context, id string) (*features.Track, error)
	AudioFeatures(ctx context.Context, ids []string) (map[string]features.Audio, error)
}
