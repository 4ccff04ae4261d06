package playlists

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-tuttitracks/internal/features"
)

// Service applies ownership rules on top of a Store.
// A playlist owned by another user is reported as ErrNotFound.
type Service struct {
	store  Store
	tracks TrackLookup
	logger *log.Logger
}

// NewService creates a playlist service. tracks may be nil if mood
// grouping is not used.
func NewService(store Store, tracks TrackLookup, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{store: store, tracks: tracks, logger: logger}
}

// Create stores a new playlist with the given tracks at indices 0..n-1.
func (s *Service) Create(ctx context.Context, owner, name, description string, trackIDs []string) (*Playlist, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: missing owner", ErrInvalidInput)
	}
	if err := checkTrackIDs(trackIDs); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}

	p := &Playlist{
		Owner:       owner,
		Name:        name,
		Description: description,
		Public:      true,
	}
	if err := s.store.CreatePlaylist(ctx, p, trackIDs); err != nil {
		return nil, fmt.Errorf("creating playlist: %w", err)
	}

	s.logger.Info("created playlist", "id", p.ID, "owner", owner, "tracks", len(trackIDs))
	return p, nil
}

// Get returns a playlist owned by owner.
func (s *Service) Get(ctx context.Context, owner string, id int64) (*Playlist, error) {
	p, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Owner != owner {
		return nil, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	return p, nil
}

// List returns all playlists owned by owner.
func (s *Service) List(ctx context.Context, owner string) ([]Playlist, error) {
	return s.store.ListPlaylists(ctx, owner)
}

// UpdateDetails changes the name and description of a playlist.
func (s *Service) UpdateDetails(ctx context.Context, owner string, id int64, name, description string) (*Playlist, error) {
	p, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is empty", ErrInvalidInput)
	}

	p.Name = name
	p.Description = description
	if err := s.store.UpdatePlaylist(ctx, p); err != nil {
		return nil, fmt.Errorf("updating playlist: %w", err)
	}
	return p, nil
}

// Delete removes a playlist and its tracks.
func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	return s.store.DeletePlaylist(ctx, id)
}

// TrackIDs returns the playlist's track IDs in index order.
func (s *Service) TrackIDs(ctx context.Context, owner string, id int64) ([]string, error) {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return nil, err
	}
	return s.store.TrackIDs(ctx, id)
}

// Append adds tracks after the last index.
func (s *Service) Append(ctx context.Context, owner string, id int64, trackIDs []string) error {
	if err := checkTrackIDs(trackIDs); err != nil {
		return err
	}
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	return s.store.AppendTracks(ctx, id, trackIDs)
}

// Insert places a track at index, shifting later tracks up.
func (s *Service) Insert(ctx context.Context, owner string, id int64, trackID string, index int) error {
	if err := checkTrackIDs([]string{trackID}); err != nil {
		return err
	}
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	return s.store.InsertTrack(ctx, id, trackID, index)
}

// Move moves the track at currentIndex to newIndex.
func (s *Service) Move(ctx context.Context, owner string, id int64, currentIndex, newIndex int) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	if err := s.store.MoveTrack(ctx, id, currentIndex, newIndex); err != nil {
		return err
	}
	s.logger.Debug("moved track", "playlist", id, "from", currentIndex, "to", newIndex)
	return nil
}

// Remove deletes trackID from the playlist.
func (s *Service) Remove(ctx context.Context, owner string, id int64, trackID string) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	return s.store.RemoveTrack(ctx, id, trackID)
}

// Replace swaps the whole track list.
func (s *Service) Replace(ctx context.Context, owner string, id int64, trackIDs []string) error {
	if err := checkTrackIDs(trackIDs); err != nil {
		return err
	}
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	return s.store.ReplaceTracks(ctx, id, trackIDs)
}

// SyncToSpotify publishes a playlist. An unpublished playlist is created on
// Spotify first and its Spotify ID stored; a published one has its details
// refreshed. In both cases the Spotify items are replaced with the local
// order.
func (s *Service) SyncToSpotify(ctx context.Context, owner string, id int64, remote Remote) (*Playlist, error) {
	p, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	trackIDs, err := s.store.TrackIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.SpotifyID == "" {
		spotifyID, err := remote.CreatePlaylist(ctx, p.Name, p.Description, p.Public)
		if err != nil {
			return nil, fmt.Errorf("creating spotify playlist: %w", err)
		}
		p.SpotifyID = spotifyID
		if err := s.store.UpdatePlaylist(ctx, p); err != nil {
			return nil, fmt.Errorf("storing spotify playlist id: %w", err)
		}
		s.logger.Info("created spotify playlist", "id", p.ID, "spotify_id", spotifyID)
	} else if err := remote.ChangePlaylistDetails(ctx, p.SpotifyID, p.Name, p.Description, p.Public); err != nil {
		return nil, fmt.Errorf("updating spotify playlist details: %w", err)
	}

	if err := remote.ReplacePlaylistTracks(ctx, p.SpotifyID, trackIDs); err != nil {
		return nil, fmt.Errorf("replacing spotify playlist tracks: %w", err)
	}

	p.TrackCount = len(trackIDs)
	s.logger.Info("synced playlist to spotify", "id", p.ID, "tracks", len(trackIDs))
	return p, nil
}

// Moods groups the playlist's tracks by audio features.
func (s *Service) Moods(ctx context.Context, owner string, id int64, cfg features.MoodConfig) ([]features.MoodGroup, []features.Track, error) {
	if s.tracks == nil {
		return nil, nil, errors.New("mood grouping needs a track lookup")
	}
	trackIDs, err := s.TrackIDs(ctx, owner, id)
	if err != nil {
		return nil, nil, err
	}
	tracks, err := s.tracks.GetTracks(ctx, trackIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("loading playlist tracks: %w", err)
	}

	groups, ungrouped, err := features.GroupByMood(tracks, cfg)
	if err != nil {
		s.logger.Warn("mood grouping failed", "playlist", id, "err", err)
		return nil, tracks, nil
	}
	return groups, ungrouped, nil
}

// checkTrackIDs rejects empty track IDs.
func checkTrackIDs(ids []string) error {
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: track %d has no id", ErrInvalidInput, i)
		}
	}
	if id, ok := FirstDuplicate(ids); ok {
		return DuplicateError(id)
	}
	return nil
}
