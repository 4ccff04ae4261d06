package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/playlists"
	"github.com/justestif/go-tuttitracks/internal/reorder"
	"github.com/justestif/go-tuttitracks/internal/spotify"
)

func playlistPath(playlistID, rest string) string {
	return "/api/playlists/" + url.PathEscape(playlistID) + rest
}

type detailsResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PlaylistID  int64  `json:"playlist_id"`
}

// CreatePlaylist creates a playlist holding tracks in order and returns its ID.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string, tracks []reorder.Item) (string, error) {
	if tracks == nil {
		tracks = []reorder.Item{}
	}
	body := map[string]any{
		"name":        name,
		"description": description,
		"tracks":      tracks,
	}
	var resp detailsResponse
	if err := c.do(ctx, http.MethodPost, "/api/playlists", body, &resp); err != nil {
		return "", fmt.Errorf("creating playlist: %w", err)
	}
	return strconv.FormatInt(resp.PlaylistID, 10), nil
}

// UpdatePlaylist changes a playlist's name and description.
func (c *Client) UpdatePlaylist(ctx context.Context, playlistID, name, description string) error {
	body := map[string]string{"name": name, "description": description}
	if err := c.do(ctx, http.MethodPut, playlistPath(playlistID, ""), body, nil); err != nil {
		return fmt.Errorf("updating playlist %s: %w", playlistID, err)
	}
	return nil
}

// DeletePlaylist deletes a playlist and its tracks.
func (c *Client) DeletePlaylist(ctx context.Context, playlistID string) error {
	if err := c.do(ctx, http.MethodDelete, playlistPath(playlistID, ""), nil, nil); err != nil {
		return fmt.Errorf("deleting playlist %s: %w", playlistID, err)
	}
	return nil
}

// Playlist returns one playlist.
func (c *Client) Playlist(ctx context.Context, playlistID string) (*playlists.Playlist, error) {
	var resp struct {
		Playlist *playlists.Playlist `json:"playlist"`
	}
	if err := c.get(ctx, playlistPath(playlistID, ""), nil, &resp); err != nil {
		return nil, fmt.Errorf("getting playlist %s: %w", playlistID, err)
	}
	return resp.Playlist, nil
}

// Playlists lists the user's local playlists.
func (c *Client) Playlists(ctx context.Context) ([]playlists.Playlist, error) {
	var resp struct {
		Playlists []playlists.Playlist `json:"playlists"`
	}
	if err := c.get(ctx, "/api/me/playlists", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	return resp.Playlists, nil
}

// TrackIDs returns the playlist's track IDs in order.
func (c *Client) TrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	var resp struct {
		Tracks []string `json:"tracks"`
	}
	if err := c.get(ctx, playlistPath(playlistID, "/tracks"), nil, &resp); err != nil {
		return nil, fmt.Errorf("getting tracks of playlist %s: %w", playlistID, err)
	}
	return resp.Tracks, nil
}

// AppendTracks adds tracks after the playlist's last track.
func (c *Client) AppendTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	body := map[string][]string{"id": trackIDs}
	if err := c.do(ctx, http.MethodPost, playlistPath(playlistID, "/tracks"), body, nil); err != nil {
		return fmt.Errorf("adding tracks to playlist %s: %w", playlistID, err)
	}
	return nil
}

// RemoveTracks removes each track in order.
func (c *Client) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	body := map[string][]string{"id": trackIDs}
	if err := c.do(ctx, http.MethodPatch, playlistPath(playlistID, "/tracks"), body, nil); err != nil {
		return fmt.Errorf("removing tracks from playlist %s: %w", playlistID, err)
	}
	return nil
}

// ReplaceTracks sets the playlist's tracks to trackIDs.
func (c *Client) ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if trackIDs == nil {
		trackIDs = []string{}
	}
	body := map[string][]string{"tracks": trackIDs}
	if err := c.do(ctx, http.MethodPut, playlistPath(playlistID, "/tracks"), body, nil); err != nil {
		return fmt.Errorf("replacing tracks of playlist %s: %w", playlistID, err)
	}
	return nil
}

// MoveTrack moves the track at currentIndex to newIndex. Both indices refer
// to positions before the move. The request is sent once.
func (c *Client) MoveTrack(ctx context.Context, playlistID string, currentIndex, newIndex int) error {
	body := map[string]int{"current_index": currentIndex, "new_index": newIndex}
	if err := c.do(ctx, http.MethodPatch, playlistPath(playlistID, "/track"), body, nil); err != nil {
		return fmt.Errorf("moving track in playlist %s: %w", playlistID, err)
	}
	return nil
}

// Moods groups the playlist's tracks by audio features.
func (c *Client) Moods(ctx context.Context, playlistID string, cfg features.MoodConfig) ([]features.MoodGroup, []features.Track, error) {
	query := url.Values{}
	if cfg.NumGroups > 0 {
		query.Set("groups", strconv.Itoa(cfg.NumGroups))
	}
	if cfg.MinGroupSize > 0 {
		query.Set("min_size", strconv.Itoa(cfg.MinGroupSize))
	}

	var resp struct {
		Groups    []features.MoodGroup `json:"groups"`
		Ungrouped []features.Track     `json:"ungrouped"`
	}
	if err := c.get(ctx, playlistPath(playlistID, "/moods"), query, &resp); err != nil {
		return nil, nil, fmt.Errorf("grouping playlist %s: %w", playlistID, err)
	}
	return resp.Groups, resp.Ungrouped, nil
}

// Sync publishes the playlist to Spotify.
func (c *Client) Sync(ctx context.Context, playlistID string) (*playlists.Playlist, error) {
	var resp struct {
		Playlist *playlists.Playlist `json:"playlist"`
	}
	path := "/api/spotify/" + url.PathEscape(playlistID) + "/playlists"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("syncing playlist %s: %w", playlistID, err)
	}
	return resp.Playlist, nil
}

// SpotifyPlaylists returns one page of the user's Spotify playlists.
func (c *Client) SpotifyPlaylists(ctx context.Context, limit, offset int) (*spotify.PlaylistPage, error) {
	query := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	var page spotify.PlaylistPage
	if err := c.get(ctx, "/api/spotify/playlists", query, &page); err != nil {
		return nil, fmt.Errorf("listing spotify playlists: %w", err)
	}
	return &page, nil
}

var _ reorder.Mover = (*Client)(nil)
