package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestReplacePlaylistTracks_Batches(t *testing.T) {
	tests := []struct {
		name        string
		totalTracks int
		wantPuts    int
		wantPosts   int
	}{
		{"empty clears", 0, 1, 0},
		{"less than 100", 50, 1, 0},
		{"exactly 100", 100, 1, 0},
		{"101 tracks", 101, 1, 1},
		{"250 tracks", 250, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := map[string]any{"snapshot_id": "snap"}
			client, fake := newFakeAPI(t, map[string]http.HandlerFunc{
				"PUT /playlists/pl1/tracks":  writeJSON(http.StatusCreated, snapshot),
				"POST /playlists/pl1/tracks": writeJSON(http.StatusCreated, snapshot),
			})

			ids := make([]string, tt.totalTracks)
			for i := range ids {
				ids[i] = "track"
			}

			if err := client.ReplacePlaylistTracks(context.Background(), "pl1", ids); err != nil {
				t.Fatalf("ReplacePlaylistTracks() error = %v", err)
			}
			if got := fake.count("PUT /playlists/pl1/tracks"); got != tt.wantPuts {
				t.Errorf("PUT requests = %d, want %d", got, tt.wantPuts)
			}
			if got := fake.count("POST /playlists/pl1/tracks"); got != tt.wantPosts {
				t.Errorf("POST requests = %d, want %d", got, tt.wantPosts)
			}
		})
	}
}

func TestCreatePlaylist(t *testing.T) {
	client, fake := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /me":                     writeJSON(http.StatusOK, map[string]any{"id": "alice"}),
		"POST /users/alice/playlists": writeJSON(http.StatusCreated, map[string]any{"id": "newpl", "name": "Mix"}),
	})

	id, err := client.CreatePlaylist(context.Background(), "Mix", "desc", true)
	if err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	if id != "newpl" {
		t.Errorf("id = %q, want newpl", id)
	}
	if fake.count("POST /users/alice/playlists") != 1 {
		t.Error("expected one create request")
	}
}

func TestChangePlaylistDetails(t *testing.T) {
	type details struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Public      *bool  `json:"public"`
	}
	bodies := make(chan details, 1)
	client, fake := newFakeAPI(t, map[string]http.HandlerFunc{
		"PUT /playlists/pl1": func(w http.ResponseWriter, r *http.Request) {
			var d details
			if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
				t.Errorf("decoding body: %v", err)
			}
			bodies <- d
			w.WriteHeader(http.StatusOK)
		},
	})

	if err := client.ChangePlaylistDetails(context.Background(), "pl1", "Mix", "night drive", false); err != nil {
		t.Fatalf("ChangePlaylistDetails() error = %v", err)
	}
	if fake.count("PUT /playlists/pl1") != 1 {
		t.Fatal("expected one details request")
	}
	got := <-bodies
	if got.Name != "Mix" || got.Description != "night drive" {
		t.Errorf("body = %+v", got)
	}
	if got.Public == nil || *got.Public {
		t.Errorf("public = %v, want explicit false", got.Public)
	}
}

func TestUserPlaylists(t *testing.T) {
	client, _ := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /me/playlists": writeJSON(http.StatusOK, map[string]any{
			"total": 7,
			"items": []map[string]any{{
				"id":          "p1",
				"name":        "Road Trip",
				"snapshot_id": "s1",
				"public":      true,
				"owner":       map[string]any{"display_name": "Alice"},
				"tracks":      map[string]any{"total": 12},
			}},
		}),
	})

	page, err := client.UserPlaylists(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("UserPlaylists() error = %v", err)
	}
	if page.Total != 7 || len(page.Playlists) != 1 {
		t.Fatalf("page = %+v", page)
	}
	p := page.Playlists[0]
	if p.ID != "p1" || p.NumTracks != 12 || !p.Public || p.Owner != "Alice" {
		t.Errorf("playlist = %+v", p)
	}
}
