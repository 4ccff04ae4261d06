package spotify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-tuttitracks/internal/features"
)

// maxPageSize is the largest page Spotify serves for track listings.
const maxPageSize = 50

// TrackPage is one page of a track listing.
type TrackPage struct {
	Tracks []features.Track `json:"tracks"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
	Total  int              `json:"total"`
}

// SavedTracks returns one page of the user's liked tracks.
func (c *Client) SavedTracks(ctx context.Context, limit, offset int) (*TrackPage, error) {
	limit = clampLimit(limit)
	page, err := c.api.CurrentUsersTracks(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("fetching liked songs: %w", err)
	}

	tracks := make([]features.Track, 0, len(page.Tracks))
	for _, saved := range page.Tracks {
		tracks = append(tracks, convertSavedTrack(saved))
	}
	return &TrackPage{Tracks: tracks, Offset: offset, Limit: limit, Total: int(page.Total)}, nil
}

// TopTracks returns one page of the user's top tracks for a time range
// (short_term, medium_term or long_term; anything else means medium_term).
func (c *Client) TopTracks(ctx context.Context, limit, offset int, timeRange string) (*TrackPage, error) {
	limit = clampLimit(limit)
	page, err := c.api.CurrentUsersTopTracks(ctx,
		spotify.Limit(limit),
		spotify.Offset(offset),
		spotify.Timerange(ParseTimeRange(timeRange)),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}
	return convertFullTrackPage(page, offset, limit), nil
}

// SearchTracks runs a track search.
func (c *Client) SearchTracks(ctx context.Context, query string, limit, offset int) (*TrackPage, error) {
	limit = clampLimit(limit)
	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}
	if result.Tracks == nil {
		return &TrackPage{Offset: offset, Limit: limit}, nil
	}
	return convertFullTrackPage(result.Tracks, offset, limit), nil
}

// Track returns a single track.
func (c *Client) Track(ctx context.Context, id string) (*features.Track, error) {
	t, err := c.api.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("fetching track %s: %w", id, err)
	}
	track := convertFullTrack(*t)
	return &track, nil
}

// ParseTimeRange maps a time range name to a Spotify range.
// Hyphens are accepted in place of underscores.
func ParseTimeRange(s string) spotify.Range {
	switch strings.ReplaceAll(strings.ToLower(s), "-", "_") {
	case "short_term":
		return spotify.ShortTermRange
	case "long_term":
		return spotify.LongTermRange
	default:
		return spotify.MediumTermRange
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func convertFullTrackPage(page *spotify.FullTrackPage, offset, limit int) *TrackPage {
	tracks := make([]features.Track, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		tracks = append(tracks, convertFullTrack(t))
	}
	return &TrackPage{Tracks: tracks, Offset: offset, Limit: limit, Total: int(page.Total)}
}

// convertSavedTrack converts a Spotify SavedTrack, keeping when it was liked.
func convertSavedTrack(saved spotify.SavedTrack) features.Track {
	t := convertFullTrack(saved.FullTrack)

	// Parse AddedAt timestamp, use zero value on failure
	t.AddedAt, _ = time.Parse(time.RFC3339, saved.AddedAt)
	return t
}

// convertFullTrack converts a Spotify FullTrack with artists joined by ", ".
func convertFullTrack(t spotify.FullTrack) features.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return features.Track{
		ID:          t.ID.String(),
		Name:        t.Name,
		Artist:      strings.Join(artists, ", "),
		Album:       t.Album.Name,
		URI:         string(t.URI),
		ReleaseYear: releaseYear(t.Album.ReleaseDate),
		Popularity:  int(t.Popularity),
		DurationMs:  int(t.Duration),
	}
}

// releaseYear extracts the year from a release date of any precision
// ("2021", "2021-03" or "2021-03-19").
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
