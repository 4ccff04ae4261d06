package playlists

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/justestif/go-tuttitracks/internal/features"
)

// mockRemote records calls made to the Spotify side.
type mockRemote struct {
	createdName  string
	created      int
	detailCalls  int
	detailPublic bool
	replaced     map[string][]string
	createErr    error
	replaceErr   error
}

func (m *mockRemote) CreatePlaylist(_ context.Context, name, _ string, _ bool) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created++
	m.createdName = name
	return "sp-new", nil
}

func (m *mockRemote) ReplacePlaylistTracks(_ context.Context, playlistID string, trackIDs []string) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	if m.replaced == nil {
		m.replaced = make(map[string][]string)
	}
	m.replaced[playlistID] = slices.Clone(trackIDs)
	return nil
}

func (m *mockRemote) ChangePlaylistDetails(_ context.Context, _, _, _ string, public bool) error {
	m.detailCalls++
	m.detailPublic = public
	return nil
}

// mockLookup serves tracks from a map.
type mockLookup map[string]features.Track

func (m mockLookup) GetTracks(_ context.Context, ids []string) ([]features.Track, error) {
	out := make([]features.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := m[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func newTestService() *Service {
	return NewService(NewMemoryStore(), nil, nil)
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name     string
		owner    string
		plName   string
		tracks   []string
		wantName string
		wantErr  error
	}{
		{"named", "alice", "Road Trip", []string{"a", "b"}, "Road Trip", nil},
		{"default name", "alice", "  ", nil, DefaultName, nil},
		{"missing owner", "", "x", nil, "", ErrInvalidInput},
		{"empty track id", "alice", "x", []string{"a", ""}, "", ErrInvalidInput},
		{"duplicate track id", "alice", "x", []string{"a", "b", "a"}, "", ErrDuplicateTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService()
			p, err := svc.Create(context.Background(), tt.owner, tt.plName, "", tt.tracks)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if p.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name, tt.wantName)
			}
			if !p.Public {
				t.Error("new playlists should be public")
			}
		})
	}
}

func TestService_OwnershipHidesOtherUsersPlaylists(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, err := svc.Create(ctx, "alice", "Mine", "", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	calls := map[string]error{
		"Get":      func() error { _, err := svc.Get(ctx, "bob", p.ID); return err }(),
		"TrackIDs": func() error { _, err := svc.TrackIDs(ctx, "bob", p.ID); return err }(),
		"Move":     svc.Move(ctx, "bob", p.ID, 0, 1),
		"Append":   svc.Append(ctx, "bob", p.ID, []string{"c"}),
		"Remove":   svc.Remove(ctx, "bob", p.ID, "a"),
		"Delete":   svc.Delete(ctx, "bob", p.ID),
	}
	for name, err := range calls {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s() error = %v, want ErrNotFound", name, err)
		}
	}

	ids, err := svc.TrackIDs(ctx, "alice", p.ID)
	if err != nil {
		t.Fatalf("TrackIDs() error = %v", err)
	}
	if !slices.Equal(ids, []string{"a", "b"}) {
		t.Errorf("tracks = %v, want unchanged", ids)
	}
}

func TestService_RejectsDuplicateTracks(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, err := svc.Create(ctx, "alice", "Mix", "", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	calls := map[string]error{
		"Append":  svc.Append(ctx, "alice", p.ID, []string{"c", "b"}),
		"Insert":  svc.Insert(ctx, "alice", p.ID, "a", 1),
		"Replace": svc.Replace(ctx, "alice", p.ID, []string{"a", "a"}),
	}
	for name, err := range calls {
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s() error = %v, want ErrInvalidInput", name, err)
		}
	}

	ids, _ := svc.TrackIDs(ctx, "alice", p.ID)
	if !slices.Equal(ids, []string{"a", "b"}) {
		t.Errorf("tracks = %v, want unchanged", ids)
	}
}

func TestService_MoveMatchesClientSideReorder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "alice", "Mix", "", []string{"a", "b", "c", "d"})

	if err := svc.Move(ctx, "alice", p.ID, 1, 3); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	ids, _ := svc.TrackIDs(ctx, "alice", p.ID)
	if !slices.Equal(ids, []string{"a", "c", "d", "b"}) {
		t.Errorf("tracks = %v, want [a c d b]", ids)
	}

	if err := svc.Move(ctx, "alice", p.ID, 0, 4); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Move() out of range error = %v, want ErrInvalidIndex", err)
	}
}

func TestService_UpdateDetails(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "alice", "Old", "", nil)

	got, err := svc.UpdateDetails(ctx, "alice", p.ID, "New", "desc")
	if err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	if got.Name != "New" || got.Description != "desc" {
		t.Errorf("UpdateDetails() = %+v", got)
	}

	if _, err := svc.UpdateDetails(ctx, "alice", p.ID, "", "desc"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("UpdateDetails() empty name error = %v, want ErrInvalidInput", err)
	}
}

func TestService_SyncToSpotify(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "alice", "Mix", "", []string{"a", "b"})
	remote := &mockRemote{}

	got, err := svc.SyncToSpotify(ctx, "alice", p.ID, remote)
	if err != nil {
		t.Fatalf("SyncToSpotify() error = %v", err)
	}
	if got.SpotifyID != "sp-new" || remote.created != 1 || remote.createdName != "Mix" {
		t.Errorf("first sync: playlist = %+v, remote = %+v", got, remote)
	}
	if !slices.Equal(remote.replaced["sp-new"], []string{"a", "b"}) {
		t.Errorf("replaced = %v, want [a b]", remote.replaced["sp-new"])
	}

	// Second sync reuses the stored Spotify playlist.
	if err := svc.Move(ctx, "alice", p.ID, 0, 1); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if _, err := svc.SyncToSpotify(ctx, "alice", p.ID, remote); err != nil {
		t.Fatalf("second SyncToSpotify() error = %v", err)
	}
	if remote.created != 1 {
		t.Errorf("created %d spotify playlists, want 1", remote.created)
	}
	if remote.detailCalls != 1 || !remote.detailPublic {
		t.Errorf("detail updates = %d (public %v), want 1 public update", remote.detailCalls, remote.detailPublic)
	}
	if !slices.Equal(remote.replaced["sp-new"], []string{"b", "a"}) {
		t.Errorf("replaced = %v, want [b a]", remote.replaced["sp-new"])
	}
}

func TestService_SyncToSpotifyCreateFailure(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, "alice", "Mix", "", []string{"a"})
	remote := &mockRemote{createErr: errors.New("401")}

	if _, err := svc.SyncToSpotify(ctx, "alice", p.ID, remote); err == nil {
		t.Fatal("SyncToSpotify() error = nil, want error")
	}
	stored, _ := svc.Get(ctx, "alice", p.ID)
	if stored.SpotifyID != "" {
		t.Errorf("SpotifyID = %q, want empty after failed create", stored.SpotifyID)
	}
}

func TestService_Moods(t *testing.T) {
	lookup := mockLookup{}
	var ids []string
	for i, e := range []float32{0.9, 0.1, 0.9, 0.1} {
		id := string(rune('a' + i))
		ids = append(ids, id)
		lookup[id] = features.Track{ID: id, Audio: &features.Audio{Energy: e, Valence: e, Danceability: e, Acousticness: 1 - e}}
	}
	svc := NewService(NewMemoryStore(), lookup, nil)
	ctx := context.Background()
	p, _ := svc.Create(ctx, "alice", "Mix", "", ids)

	groups, ungrouped, err := svc.Moods(ctx, "alice", p.ID, features.MoodConfig{NumGroups: 2, MinGroupSize: 1})
	if err != nil {
		t.Fatalf("Moods() error = %v", err)
	}
	if len(groups) != 2 || len(ungrouped) != 0 {
		t.Errorf("got %d groups and %d ungrouped, want 2 and 0", len(groups), len(ungrouped))
	}

	if _, _, err := newTestService().Moods(ctx, "alice", p.ID, features.DefaultMoodConfig()); err == nil {
		t.Error("Moods() without lookup should fail")
	}
}

func TestMoveIndex(t *testing.T) {
	got, err := MoveIndex([]string{"a", "b", "c"}, 2, 0)
	if err != nil {
		t.Fatalf("MoveIndex() error = %v", err)
	}
	if !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Errorf("MoveIndex() = %v", got)
	}
	if _, err := MoveIndex(nil, 0, 0); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("MoveIndex(nil) error = %v, want ErrInvalidIndex", err)
	}
}
