package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/spotify"
)

// SessionInfo describes the session behind the client's token.
type SessionInfo struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Session reports whether the token belongs to a live session.
func (c *Client) Session(ctx context.Context) (*SessionInfo, error) {
	var info SessionInfo
	if err := c.get(ctx, "/", nil, &info); err != nil {
		return nil, fmt.Errorf("checking session: %w", err)
	}
	return &info, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// Liked returns a page of the user's liked tracks.
func (c *Client) Liked(ctx context.Context, offset int) (*spotify.TrackPage, error) {
	var page spotify.TrackPage
	query := url.Values{"offset": {strconv.Itoa(offset)}}
	if err := c.get(ctx, "/api/me/tracks", query, &page); err != nil {
		return nil, fmt.Errorf("getting liked tracks: %w", err)
	}
	return &page, nil
}

// Top returns the user's top tracks. An empty timeRange uses the server
// default.
func (c *Client) Top(ctx context.Context, offset, limit int, timeRange string) ([]features.Track, error) {
	query := url.Values{"offset": {strconv.Itoa(offset)}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if timeRange != "" {
		query.Set("time_range", timeRange)
	}

	var resp struct {
		Tracks []features.Track `json:"tracks"`
	}
	if err := c.get(ctx, "/api/me/top/tracks", query, &resp); err != nil {
		return nil, fmt.Errorf("getting top tracks: %w", err)
	}
	return resp.Tracks, nil
}

// Search finds tracks matching a free-text Spotify query and returns them
// with the query the server ran.
func (c *Client) Search(ctx context.Context, q string, offset int) ([]features.Track, string, error) {
	query := url.Values{
		"q":      {q},
		"offset": {strconv.Itoa(offset)},
	}
	var resp struct {
		Tracks []features.Track `json:"tracks"`
		Query  string           `json:"query"`
	}
	if err := c.get(ctx, "/api/search", query, &resp); err != nil {
		return nil, "", fmt.Errorf("searching tracks: %w", err)
	}
	return resp.Tracks, resp.Query, nil
}

// TrackFeatures returns the audio feature summary of a track.
func (c *Client) TrackFeatures(ctx context.Context, trackID string) (*features.Summary, error) {
	var summary features.Summary
	if err := c.get(ctx, "/api/tracks/"+url.PathEscape(trackID), nil, &summary); err != nil {
		return nil, fmt.Errorf("getting features of %s: %w", trackID, err)
	}
	return &summary, nil
}
