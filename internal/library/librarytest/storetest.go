// Package librarytest provides a test suite shared by library.TrackStore
// implementations.
package librarytest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/library"
)

// RunTrackStoreTests runs the suite against stores created by newStore.
func RunTrackStoreTests(t *testing.T, newStore func(t *testing.T) library.TrackStore) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s library.TrackStore)
	}{
		{"UpsertAndGet", testUpsertAndGet},
		{"UpsertKeepsFeatures", testUpsertKeepsFeatures},
		{"GetTracksOrder", testGetTracksOrder},
		{"MissingFeatures", testMissingFeatures},
		{"SetFeaturesUnknown", testSetFeaturesUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func track(id string) features.Track {
	return features.Track{
		ID:          id,
		Name:        "Song " + id,
		Artist:      "Artist",
		Album:       "Album",
		URI:         features.URI(id),
		ReleaseYear: 2001,
		Popularity:  50,
		DurationMs:  180000,
	}
}

func upsert(t *testing.T, s library.TrackStore, tracks ...features.Track) {
	t.Helper()
	if err := s.UpsertTracks(context.Background(), tracks); err != nil {
		t.Fatalf("UpsertTracks() error = %v", err)
	}
}

func testUpsertAndGet(t *testing.T, s library.TrackStore) {
	ctx := context.Background()
	upsert(t, s, track("a"))

	got, err := s.GetTrack(ctx, "a")
	if err != nil {
		t.Fatalf("GetTrack() error = %v", err)
	}
	if got.Name != "Song a" || got.URI != "spotify:track:a" || got.ReleaseYear != 2001 || got.DurationMs != 180000 {
		t.Errorf("GetTrack() = %+v", got)
	}
	if got.Audio != nil {
		t.Errorf("Audio = %+v, want nil", got.Audio)
	}

	renamed := track("a")
	renamed.Name = "Renamed"
	upsert(t, s, renamed)
	got, _ = s.GetTrack(ctx, "a")
	if got.Name != "Renamed" {
		t.Errorf("Name after upsert = %q, want Renamed", got.Name)
	}

	if _, err := s.GetTrack(ctx, "missing"); !errors.Is(err, library.ErrTrackNotFound) {
		t.Errorf("GetTrack(missing) error = %v, want ErrTrackNotFound", err)
	}
}

func testUpsertKeepsFeatures(t *testing.T, s library.TrackStore) {
	ctx := context.Background()
	upsert(t, s, track("a"))
	if err := s.SetFeatures(ctx, "a", features.Audio{Energy: 0.5, Tempo: 120, Key: 2, Mode: 1}); err != nil {
		t.Fatalf("SetFeatures() error = %v", err)
	}

	upsert(t, s, track("a"))

	got, err := s.GetTrack(ctx, "a")
	if err != nil {
		t.Fatalf("GetTrack() error = %v", err)
	}
	if got.Audio == nil || got.Audio.Energy != 0.5 || got.Audio.Tempo != 120 || got.Audio.Key != 2 || got.Audio.Mode != 1 {
		t.Errorf("Audio = %+v, want stored features kept", got.Audio)
	}
}

func testGetTracksOrder(t *testing.T, s library.TrackStore) {
	upsert(t, s, track("a"), track("b"), track("c"))

	got, err := s.GetTracks(context.Background(), []string{"c", "zzz", "a"})
	if err != nil {
		t.Fatalf("GetTracks() error = %v", err)
	}
	var ids []string
	for _, tr := range got {
		ids = append(ids, tr.ID)
	}
	if !slices.Equal(ids, []string{"c", "a"}) {
		t.Errorf("GetTracks() ids = %v, want [c a]", ids)
	}
}

func testMissingFeatures(t *testing.T, s library.TrackStore) {
	ctx := context.Background()
	upsert(t, s, track("a"), track("b"))
	if err := s.SetFeatures(ctx, "b", features.Audio{Energy: 1}); err != nil {
		t.Fatalf("SetFeatures() error = %v", err)
	}

	got, err := s.MissingFeatures(ctx, []string{"a", "b", "new", "a"})
	if err != nil {
		t.Fatalf("MissingFeatures() error = %v", err)
	}
	if !slices.Equal(got, []string{"a", "new"}) {
		t.Errorf("MissingFeatures() = %v, want [a new]", got)
	}
}

func testSetFeaturesUnknown(t *testing.T, s library.TrackStore) {
	err := s.SetFeatures(context.Background(), "ghost", features.Audio{})
	if !errors.Is(err, library.ErrTrackNotFound) {
		t.Errorf("SetFeatures(unknown) error = %v, want ErrTrackNotFound", err)
	}
}
