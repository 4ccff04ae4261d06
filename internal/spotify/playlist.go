package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

const maxTracksPerRequest = 100

// Playlist summarizes a playlist from the user's Spotify library.
type Playlist struct {
	ID            string `json:"spotify_playlist_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	SnapshotID    string `json:"snapshot_id"`
	NumTracks     int    `json:"num_tracks"`
	Public        bool   `json:"public"`
	Collaborative bool   `json:"collaborative"`
	Owner         string `json:"owner"`
}

// PlaylistPage is one page of the user's Spotify playlists.
type PlaylistPage struct {
	Playlists []Playlist `json:"spot_playlists"`
	Total     int        `json:"total_spot_playlists"`
}

// UserPlaylists returns one page of the current user's Spotify playlists.
func (c *Client) UserPlaylists(ctx context.Context, limit, offset int) (*PlaylistPage, error) {
	page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(clampLimit(limit)), spotify.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("fetching playlists: %w", err)
	}

	out := &PlaylistPage{
		Playlists: make([]Playlist, 0, len(page.Playlists)),
		Total:     int(page.Total),
	}
	for _, p := range page.Playlists {
		out.Playlists = append(out.Playlists, Playlist{
			ID:            p.ID.String(),
			Name:          p.Name,
			Description:   p.Description,
			SnapshotID:    p.SnapshotID,
			NumTracks:     int(p.Tracks.Total),
			Public:        p.IsPublic,
			Collaborative: p.Collaborative,
			Owner:         p.Owner.DisplayName,
		})
	}
	return out, nil
}

// CreatePlaylist creates a new playlist for the current user.
// Returns the playlist ID.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	userID, err := c.UserID(ctx)
	if err != nil {
		return "", err
	}

	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return "", fmt.Errorf("creating playlist: %w", err)
	}

	return playlist.ID.String(), nil
}

// ChangePlaylistDetails renames a playlist and sets its description and
// visibility. Spotify ignores an empty description.
func (c *Client) ChangePlaylistDetails(ctx context.Context, playlistID, name, description string, public bool) error {
	if err := c.api.ChangePlaylistNameAccessAndDescription(ctx, spotify.ID(playlistID), name, description, public); err != nil {
		return fmt.Errorf("changing playlist details: %w", err)
	}
	return nil
}

// ReplacePlaylistTracks replaces all items of a playlist with trackIDs in
// order. The first 100 tracks replace the items; the rest are appended in
// batches. An empty list clears the playlist.
func (c *Client) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	ids := toIDs(trackIDs)
	first := ids[:min(maxTracksPerRequest, len(ids))]

	if err := c.api.ReplacePlaylistTracks(ctx, spotify.ID(playlistID), first...); err != nil {
		return fmt.Errorf("replacing playlist tracks: %w", err)
	}
	if len(ids) > maxTracksPerRequest {
		return c.AddTracksToPlaylist(ctx, playlistID, trackIDs[maxTracksPerRequest:])
	}
	return nil
}

// AddTracksToPlaylist adds tracks to a playlist, handling batching for large sets.
// Spotify allows max 100 tracks per request.
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	ids := toIDs(trackIDs)

	// Batch in chunks of 100
	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		batch := ids[i:end]

		_, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
		if err != nil {
			return fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err)
		}
	}

	return nil
}

func toIDs(trackIDs []string) []spotify.ID {
	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}
	return ids
}
