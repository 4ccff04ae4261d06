// Package playliststest provides a behavioural test suite shared by every
// playlists.Store implementation.
package playliststest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/justestif/go-tuttitracks/internal/playlists"
)

// RunStoreTests runs the suite against stores created by newStore.
// Each subtest gets a fresh store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) playlists.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s playlists.Store)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"ListByOwner", testListByOwner},
		{"UpdateAndDelete", testUpdateAndDelete},
		{"Append", testAppend},
		{"Insert", testInsert},
		{"Move", testMove},
		{"MoveInvalid", testMoveInvalid},
		{"Remove", testRemove},
		{"RejectsDuplicates", testRejectsDuplicates},
		{"Replace", testReplace},
		{"MissingPlaylist", testMissingPlaylist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func create(t *testing.T, s playlists.Store, owner string, ids ...string) *playlists.Playlist {
	t.Helper()
	p := &playlists.Playlist{Owner: owner, Name: "Mix", Description: "desc", Public: true}
	if err := s.CreatePlaylist(context.Background(), p, ids); err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	if p.ID == 0 {
		t.Fatal("CreatePlaylist() did not assign an ID")
	}
	return p
}

func assertTracks(t *testing.T, s playlists.Store, id int64, want ...string) {
	t.Helper()
	got, err := s.TrackIDs(context.Background(), id)
	if err != nil {
		t.Fatalf("TrackIDs() error = %v", err)
	}
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !slices.Equal(got, want) {
		t.Errorf("TrackIDs() = %v, want %v", got, want)
	}
}

func testCreateAndGet(t *testing.T, s playlists.Store) {
	p := create(t, s, "alice", "a", "b", "c")

	got, err := s.GetPlaylist(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetPlaylist() error = %v", err)
	}
	if got.Owner != "alice" || got.Name != "Mix" || got.Description != "desc" || !got.Public {
		t.Errorf("GetPlaylist() = %+v", got)
	}
	if got.TrackCount != 3 {
		t.Errorf("TrackCount = %d, want 3", got.TrackCount)
	}
	assertTracks(t, s, p.ID, "a", "b", "c")
}

func testListByOwner(t *testing.T, s playlists.Store) {
	first := create(t, s, "alice", "a")
	create(t, s, "bob", "b")
	second := create(t, s, "alice")

	got, err := s.ListPlaylists(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListPlaylists() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d playlists, want 2", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Errorf("ListPlaylists() order = [%d %d], want [%d %d]", got[0].ID, got[1].ID, first.ID, second.ID)
	}
	if got[0].TrackCount != 1 {
		t.Errorf("TrackCount = %d, want 1", got[0].TrackCount)
	}
}

func testUpdateAndDelete(t *testing.T, s playlists.Store) {
	ctx := context.Background()
	p := create(t, s, "alice", "a")

	p.Name = "Renamed"
	p.Description = "new"
	p.SpotifyID = "sp123"
	if err := s.UpdatePlaylist(ctx, p); err != nil {
		t.Fatalf("UpdatePlaylist() error = %v", err)
	}

	got, err := s.GetPlaylist(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlaylist() error = %v", err)
	}
	if got.Name != "Renamed" || got.Description != "new" || got.SpotifyID != "sp123" {
		t.Errorf("GetPlaylist() = %+v", got)
	}

	if err := s.DeletePlaylist(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlaylist() error = %v", err)
	}
	if _, err := s.GetPlaylist(ctx, p.ID); !errors.Is(err, playlists.ErrNotFound) {
		t.Errorf("GetPlaylist() after delete error = %v, want ErrNotFound", err)
	}
}

func testAppend(t *testing.T, s playlists.Store) {
	ctx := context.Background()
	empty := create(t, s, "alice")
	if err := s.AppendTracks(ctx, empty.ID, []string{"x", "y"}); err != nil {
		t.Fatalf("AppendTracks() error = %v", err)
	}
	assertTracks(t, s, empty.ID, "x", "y")

	p := create(t, s, "alice", "a", "b")
	if err := s.AppendTracks(ctx, p.ID, []string{"c"}); err != nil {
		t.Fatalf("AppendTracks() error = %v", err)
	}
	assertTracks(t, s, p.ID, "a", "b", "c")
}

func testInsert(t *testing.T, s playlists.Store) {
	ctx := context.Background()
	p := create(t, s, "alice", "a", "b", "c")

	if err := s.InsertTrack(ctx, p.ID, "x", 1); err != nil {
		t.Fatalf("InsertTrack() error = %v", err)
	}
	assertTracks(t, s, p.ID, "a", "x", "b", "c")

	if err := s.InsertTrack(ctx, p.ID, "z", 4); err != nil {
		t.Fatalf("InsertTrack() at end error = %v", err)
	}
	assertTracks(t, s, p.ID, "a", "x", "b", "c", "z")

	if err := s.InsertTrack(ctx, p.ID, "q", 9); !errors.Is(err, playlists.ErrInvalidIndex) {
		t.Errorf("InsertTrack() past end error = %v, want ErrInvalidIndex", err)
	}
}

func testMove(t *testing.T, s playlists.Store) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"down", 1, 3, []string{"a", "c", "d", "b", "e"}},
		{"up", 3, 0, []string{"d", "a", "b", "c", "e"}},
		{"to end", 0, 4, []string{"b", "c", "d", "e", "a"}},
		{"same", 2, 2, []string{"a", "b", "c", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := create(t, s, "alice", "a", "b", "c", "d", "e")
			if err := s.MoveTrack(context.Background(), p.ID, tt.from, tt.to); err != nil {
				t.Fatalf("MoveTrack() error = %v", err)
			}
			assertTracks(t, s, p.ID, tt.want...)
		})
	}
}

func testMoveInvalid(t *testing.T, s playlists.Store) {
	p := create(t, s, "alice", "a", "b")

	for _, idx := range [][2]int{{-1, 0}, {0, 2}, {5, 1}} {
		err := s.MoveTrack(context.Background(), p.ID, idx[0], idx[1])
		if !errors.Is(err, playlists.ErrInvalidIndex) {
			t.Errorf("MoveTrack(%d, %d) error = %v, want ErrInvalidIndex", idx[0], idx[1], err)
		}
	}
	assertTracks(t, s, p.ID, "a", "b")
}

func testRemove(t *testing.T, s playlists.Store) {
	ctx := context.Background()
	p := create(t, s, "alice", "a", "b", "d", "c")

	if err := s.RemoveTrack(ctx, p.ID, "b"); err != nil {
		t.Fatalf("RemoveTrack() error = %v", err)
	}
	assertTracks(t, s, p.ID, "a", "d", "c")

	// Indices must stay contiguous after the gap closes.
	if err := s.MoveTrack(ctx, p.ID, 2, 0); err != nil {
		t.Fatalf("MoveTrack() error = %v", err)
	}
	assertTracks(t, s, p.ID, "c", "a", "d")

	// A removed track can be added back.
	if err := s.AppendTracks(ctx, p.ID, []string{"b"}); err != nil {
		t.Fatalf("AppendTracks() error = %v", err)
	}
	assertTracks(t, s, p.ID, "c", "a", "d", "b")

	if err := s.RemoveTrack(ctx, p.ID, "zzz"); !errors.Is(err, playlists.ErrTrackMissing) {
		t.Errorf("RemoveTrack() missing error = %v, want ErrTrackMissing", err)
	}
}

func testRejectsDuplicates(t *testing.T, s playlists.Store) {
	ctx := context.Background()
	p := create(t, s, "alice", "a", "b", "c")

	checks := []struct {
		name string
		err  error
	}{
		{"CreatePlaylist", s.CreatePlaylist(ctx, &playlists.Playlist{Owner: "alice", Name: "Dup"}, []string{"x", "y", "x"})},
		{"AppendTracks existing", s.AppendTracks(ctx, p.ID, []string{"d", "b"})},
		{"AppendTracks repeated", s.AppendTracks(ctx, p.ID, []string{"d", "d"})},
		{"InsertTrack", s.InsertTrack(ctx, p.ID, "c", 0)},
		{"ReplaceTracks", s.ReplaceTracks(ctx, p.ID, []string{"c", "a", "c"})},
	}
	for _, c := range checks {
		if !errors.Is(c.err, playlists.ErrDuplicateTrack) || !errors.Is(c.err, playlists.ErrInvalidInput) {
			t.Errorf("%s error = %v, want ErrDuplicateTrack and ErrInvalidInput", c.name, c.err)
		}
	}

	// Rejected writes leave the playlist untouched.
	assertTracks(t, s, p.ID, "a", "b", "c")

	list, err := s.ListPlaylists(ctx, "alice")
	if err != nil {
		t.Fatalf("ListPlaylists() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListPlaylists() = %d playlists, want 1", len(list))
	}

	// Replacing with a reordering of the same tracks is fine.
	if err := s.ReplaceTracks(ctx, p.ID, []string{"c", "a", "b"}); err != nil {
		t.Fatalf("ReplaceTracks() error = %v", err)
	}
	assertTracks(t, s, p.ID, "c", "a", "b")
}

func testReplace(t *testing.T, s playlists.Store) {
	ctx := context.Background()
	p := create(t, s, "alice", "a", "b")

	if err := s.ReplaceTracks(ctx, p.ID, []string{"c", "b", "d"}); err != nil {
		t.Fatalf("ReplaceTracks() error = %v", err)
	}
	assertTracks(t, s, p.ID, "c", "b", "d")

	if err := s.ReplaceTracks(ctx, p.ID, nil); err != nil {
		t.Fatalf("ReplaceTracks(nil) error = %v", err)
	}
	assertTracks(t, s, p.ID)
}

func testMissingPlaylist(t *testing.T, s playlists.Store) {
	ctx := context.Background()
	const missing = 9999

	checks := map[string]error{
		"GetPlaylist":    func() error { _, err := s.GetPlaylist(ctx, missing); return err }(),
		"TrackIDs":       func() error { _, err := s.TrackIDs(ctx, missing); return err }(),
		"AppendTracks":   s.AppendTracks(ctx, missing, []string{"a"}),
		"MoveTrack":      s.MoveTrack(ctx, missing, 0, 1),
		"DeletePlaylist": s.DeletePlaylist(ctx, missing),
	}
	for name, err := range checks {
		if !errors.Is(err, playlists.ErrNotFound) {
			t.Errorf("%s() error = %v, want ErrNotFound", name, err)
		}
	}
}
