package library

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/spotify"
)

// Service reads tracks from Spotify and records them in a TrackStore.
type Service struct {
	store  TrackStore
	logger *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a library service.
func New(store TrackStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying track store.
func (s *Service) Store() TrackStore {
	return s.store
}

// Liked returns a page of the user's saved tracks.
func (s *Service) Liked(ctx context.Context, src Source, offset int) (*spotify.TrackPage, error) {
	page, err := src.SavedTracks(ctx, LikedPageSize, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("fetching liked tracks: %w", err)
	}
	if err := s.record(ctx, page.Tracks); err != nil {
		return nil, err
	}
	return page, nil
}

// Top returns a page of the user's top tracks. A limit of zero uses
// TopPageSize.
func (s *Service) Top(ctx context.Context, src Source, offset, limit int, timeRange string) (*spotify.TrackPage, error) {
	if limit <= 0 {
		limit = TopPageSize
	}
	page, err := src.TopTracks(ctx, limit, max(offset, 0), timeRange)
	if err != nil {
		return nil, fmt.Errorf("fetching top tracks: %w", err)
	}
	if err := s.record(ctx, page.Tracks); err != nil {
		return nil, err
	}
	return page, nil
}

// Search runs a track search. A non-empty raw query is used as is;
// otherwise q is rendered with SearchQuery.String.
func (s *Service) Search(ctx context.Context, src Source, raw string, q SearchQuery, offset int) (*spotify.TrackPage, error) {
	if raw == "" {
		raw = q.String()
	}
	page, err := src.SearchTracks(ctx, raw, SearchPageSize, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}
	if err := s.record(ctx, page.Tracks); err != nil {
		return nil, err
	}
	s.logger.Debug("searched tracks", "query", raw, "found", len(page.Tracks))
	return page, nil
}

// Features returns a track with its audio features, fetching and storing
// whatever is not cached yet.
func (s *Service) Features(ctx context.Context, src Source, id string) (*features.Track, error) {
	track, err := s.store.GetTrack(ctx, id)
	switch {
	case errors.Is(err, ErrTrackNotFound):
		track, err = src.Track(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetching track %s: %w", id, err)
		}
		if err := s.store.UpsertTracks(ctx, []features.Track{*track}); err != nil {
			return nil, fmt.Errorf("storing track %s: %w", id, err)
		}
	case err != nil:
		return nil, fmt.Errorf("loading track %s: %w", id, err)
	}

	if track.Audio != nil {
		return track, nil
	}

	if err := s.FillFeatures(ctx, src, []string{id}); err != nil {
		return nil, err
	}
	track, err = s.store.GetTrack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading track %s: %w", id, err)
	}
	if track.Audio == nil {
		return nil, fmt.Errorf("track %s: %w", id, features.ErrNoFeatures)
	}
	return track, nil
}

// FillFeatures fetches audio features for every id the store has none for.
func (s *Service) FillFeatures(ctx context.Context, src Source, ids []string) error {
	missing, err := s.store.MissingFeatures(ctx, ids)
	if err != nil {
		return fmt.Errorf("checking stored features: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	audio, err := src.AudioFeatures(ctx, missing)
	if err != nil {
		return fmt.Errorf("fetching audio features: %w", err)
	}
	for id, a := range audio {
		err := s.store.SetFeatures(ctx, id, a)
		if errors.Is(err, ErrTrackNotFound) {
			// Features for a track we never saw metadata for.
			continue
		}
		if err != nil {
			return fmt.Errorf("storing features for %s: %w", id, err)
		}
	}

	s.logger.Debug("stored audio features", "requested", len(missing), "found", len(audio))
	return nil
}

// GetTracks returns stored tracks in the order of ids.
func (s *Service) GetTracks(ctx context.Context, ids []string) ([]features.Track, error) {
	return s.store.GetTracks(ctx, ids)
}

func (s *Service) record(ctx context.Context, tracks []features.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	if err := s.store.UpsertTracks(ctx, tracks); err != nil {
		return fmt.Errorf("storing tracks: %w", err)
	}
	return nil
}
