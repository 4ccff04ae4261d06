package library

import (
	"context"
	"errors"
	"testing"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/spotify"
)

// fakeSource serves canned pages and records the arguments it was called with.
type fakeSource struct {
	page       *spotify.TrackPage
	tracks     map[string]features.Track
	audio      map[string]features.Audio
	err        error
	lastLimit  int
	lastOffset int
	lastQuery  string
	lastRange  string
	trackCalls int
	audioCalls [][]string
}

func (f *fakeSource) SavedTracks(_ context.Context, limit, offset int) (*spotify.TrackPage, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.page, f.err
}

func (f *fakeSource) TopTracks(_ context.Context, limit, offset int, timeRange string) (*spotify.TrackPage, error) {
	f.lastLimit, f.lastOffset, f.lastRange = limit, offset, timeRange
	return f.page, f.err
}

func (f *fakeSource) SearchTracks(_ context.Context, query string, limit, offset int) (*spotify.TrackPage, error) {
	f.lastQuery, f.lastLimit, f.lastOffset = query, limit, offset
	return f.page, f.err
}

func (f *fakeSource) Track(_ context.Context, id string) (*features.Track, error) {
	f.trackCalls++
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tracks[id]
	if !ok {
		return nil, errors.New("404")
	}
	return &t, nil
}

func (f *fakeSource) AudioFeatures(_ context.Context, ids []string) (map[string]features.Audio, error) {
	f.audioCalls = append(f.audioCalls, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]features.Audio)
	for _, id := range ids {
		if a, ok := f.audio[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func pageOf(ids ...string) *spotify.TrackPage {
	p := &spotify.TrackPage{Total: len(ids)}
	for _, id := range ids {
		p.Tracks = append(p.Tracks, features.Track{ID: id, Name: "Song " + id})
	}
	return p
}

func TestService_LikedRecordsTracks(t *testing.T) {
	store := NewMemoryStore()
	svc := New(store)
	src := &fakeSource{page: pageOf("a", "b")}

	page, err := svc.Liked(context.Background(), src, 25)
	if err != nil {
		t.Fatalf("Liked() error = %v", err)
	}
	if src.lastLimit != LikedPageSize || src.lastOffset != 25 {
		t.Errorf("called with limit=%d offset=%d, want %d and 25", src.lastLimit, src.lastOffset, LikedPageSize)
	}
	if len(page.Tracks) != 2 {
		t.Errorf("got %d tracks, want 2", len(page.Tracks))
	}
	if _, err := store.GetTrack(context.Background(), "b"); err != nil {
		t.Errorf("track b not recorded: %v", err)
	}
}

func TestService_NegativeOffsetClamped(t *testing.T) {
	src := &fakeSource{page: pageOf()}
	if _, err := New(NewMemoryStore()).Liked(context.Background(), src, -5); err != nil {
		t.Fatalf("Liked() error = %v", err)
	}
	if src.lastOffset != 0 {
		t.Errorf("offset = %d, want 0", src.lastOffset)
	}
}

func TestService_Top(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default limit", 0, TopPageSize},
		{"explicit limit", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{page: pageOf("a")}
			if _, err := New(NewMemoryStore()).Top(context.Background(), src, 0, tt.limit, "long_term"); err != nil {
				t.Fatalf("Top() error = %v", err)
			}
			if src.lastLimit != tt.wantLimit || src.lastRange != "long_term" {
				t.Errorf("called with limit=%d range=%q", src.lastLimit, src.lastRange)
			}
		})
	}
}

func TestService_Search(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		query SearchQuery
		want  string
	}{
		{"raw query wins", "queen", SearchQuery{Artist: "ignored"}, "queen"},
		{"fields", "", SearchQuery{Artist: "Queen", Album: "Opera"}, "artist:Queen album:Opera"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{page: pageOf("s")}
			if _, err := New(NewMemoryStore()).Search(context.Background(), src, tt.raw, tt.query, 0); err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if src.lastQuery != tt.want || src.lastLimit != SearchPageSize {
				t.Errorf("called with q=%q limit=%d, want q=%q", src.lastQuery, src.lastLimit, tt.want)
			}
		})
	}
}

func TestService_SourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	if _, err := New(NewMemoryStore()).Liked(context.Background(), src, 0); err == nil {
		t.Error("Liked() error = nil, want error")
	}
}

func TestService_FeaturesFetchesOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	src := &fakeSource{
		tracks: map[string]features.Track{"a": {ID: "a", Name: "Song a"}},
		audio:  map[string]features.Audio{"a": {Energy: 0.7, Key: 1}},
	}
	svc := New(store)

	got, err := svc.Features(ctx, src, "a")
	if err != nil {
		t.Fatalf("Features() error = %v", err)
	}
	if got.Audio == nil || got.Audio.Energy != 0.7 {
		t.Fatalf("Audio = %+v, want fetched features", got.Audio)
	}

	if _, err := svc.Features(ctx, src, "a"); err != nil {
		t.Fatalf("second Features() error = %v", err)
	}
	if src.trackCalls != 1 || len(src.audioCalls) != 1 {
		t.Errorf("track calls = %d, audio calls = %d, want 1 and 1", src.trackCalls, len(src.audioCalls))
	}
}

func TestService_FeaturesUnavailable(t *testing.T) {
	src := &fakeSource{
		tracks: map[string]features.Track{"a": {ID: "a"}},
		audio:  map[string]features.Audio{},
	}
	_, err := New(NewMemoryStore()).Features(context.Background(), src, "a")
	if !errors.Is(err, features.ErrNoFeatures) {
		t.Errorf("Features() error = %v, want ErrNoFeatures", err)
	}
}

func TestService_FillFeaturesSkipsKnown(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.UpsertTracks(ctx, []features.Track{{ID: "a"}, {ID: "b"}})
	_ = store.SetFeatures(ctx, "a", features.Audio{Energy: 1})

	src := &fakeSource{audio: map[string]features.Audio{"b": {Energy: 0.2}, "ghost": {Energy: 0.3}}}
	if err := New(store).FillFeatures(ctx, src, []string{"a", "b", "ghost"}); err != nil {
		t.Fatalf("FillFeatures() error = %v", err)
	}

	if len(src.audioCalls) != 1 || len(src.audioCalls[0]) != 2 {
		t.Fatalf("audio calls = %v, want one call for [b ghost]", src.audioCalls)
	}
	b, _ := store.GetTrack(ctx, "b")
	if b.Audio == nil || b.Audio.Energy != 0.2 {
		t.Errorf("b.Audio = %+v", b.Audio)
	}
}
