package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/justestif/go-tuttitracks/internal/auth"
	"github.com/justestif/go-tuttitracks/internal/config"
	"github.com/justestif/go-tuttitracks/internal/library"
	"github.com/justestif/go-tuttitracks/internal/playlists"
	"github.com/justestif/go-tuttitracks/internal/web"
)

// isolate keeps the caller's config and environment out of a test.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SPOTIFY_ID", "SPOTIFY_SECRET", "DATABASE_URL", "TUTTI_DB_DRIVER",
		"TUTTI_ADDR", "TUTTI_API_URL", "TUTTI_LOG_LEVEL", "TUTTI_CONFIG",
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
}

type fixture struct {
	runner *Runner
	output *bytes.Buffer
	cache  *auth.Cache
	pl     *playlists.Service
}

// newFixture starts a backend with one logged-in session and points the
// runner's credentials cache at it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	isolate(t)

	lib := library.New(library.NewMemoryStore())
	pl := playlists.NewService(playlists.NewMemoryStore(), lib, nil)
	sessions := web.NewSessionStore()
	srv := web.NewServer(web.Config{ClientID: "id", ClientSecret: "secret"}, pl, lib, web.WithSessions(sessions))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Setenv("TUTTI_API_URL", ts.URL)

	token := &oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}
	session, err := sessions.Create(context.Background(), token, "alice", "Alice")
	if err != nil {
		t.Fatal(err)
	}

	cache := auth.NewCache(filepath.Join(t.TempDir(), "session.json"))
	if err := cache.Save(&auth.Credentials{BaseURL: ts.URL, Token: session.ID, UserID: "alice"}); err != nil {
		t.Fatal(err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Logger: log.New(&bytes.Buffer{}),
		Input:  strings.NewReader(""),
		Output: output,
		Cache:  cache,
	})
	return &fixture{runner: runner, output: output, cache: cache, pl: pl}
}

func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()
	f.output.Reset()
	return newApp(f.runner).Run(context.Background(), append([]string{"tuttitracks"}, args...))
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(RunnerOpts{})
	if r.cfg == nil || r.logger == nil || r.in == nil || r.output == nil {
		t.Errorf("runner has nil dependencies: %+v", r)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("TUTTI_DB_DRIVER", "mysql")

	err := newApp(NewRunner(RunnerOpts{Output: &bytes.Buffer{}})).Run(context.Background(), []string{"tuttitracks", "logout"})
	if err == nil || !strings.Contains(err.Error(), "database.driver") {
		t.Errorf("Run() error = %v, want driver validation error", err)
	}
}

func TestOpenStores(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []config.DatabaseConfig{
		{Driver: config.DriverMemory},
		{Driver: config.DriverSQLite, Path: ":memory:"},
	} {
		t.Run(cfg.Driver, func(t *testing.T) {
			st, err := openStores(ctx, cfg)
			if err != nil {
				t.Fatalf("openStores() error = %v", err)
			}
			defer st.close()

			p := &playlists.Playlist{Owner: "alice", Name: "Mix"}
			if err := st.playlists.CreatePlaylist(ctx, p, []string{"a", "b"}); err != nil {
				t.Fatalf("CreatePlaylist() error = %v", err)
			}
			ids, err := st.playlists.TrackIDs(ctx, p.ID)
			if err != nil || len(ids) != 2 {
				t.Errorf("TrackIDs() = %v, %v", ids, err)
			}
			if st.sessions != nil {
				t.Error("sessions set for a local driver")
			}
		})
	}

	if _, err := openStores(ctx, config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Error("openStores() error = nil for unknown driver")
	}
}

func TestServeRequiresCredentials(t *testing.T) {
	isolate(t)
	r := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: log.New(&bytes.Buffer{})})

	err := newApp(r).Run(context.Background(), []string{"tuttitracks", "serve"})
	if err == nil || !strings.Contains(err.Error(), "SPOTIFY_ID") {
		t.Errorf("serve error = %v, want missing credentials", err)
	}
}

func TestPlaylistsCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.pl.Create(ctx, "alice", "Road Trip", "", []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.pl.Create(ctx, "bob", "Not Mine", "", nil); err != nil {
		t.Fatal(err)
	}

	if err := f.run(t, "playlists", "--json"); err != nil {
		t.Fatalf("playlists --json error = %v", err)
	}
	var list []playlists.Playlist
	if err := json.Unmarshal(f.output.Bytes(), &list); err != nil {
		t.Fatalf("decoding output %q: %v", f.output, err)
	}
	if len(list) != 1 || list[0].Name != "Road Trip" {
		t.Errorf("playlists = %+v", list)
	}

	if err := f.run(t, "playlists"); err != nil {
		t.Fatalf("playlists error = %v", err)
	}
	if out := f.output.String(); !strings.Contains(out, "Road Trip") {
		t.Errorf("table output = %q", out)
	}
}

func TestPlaylistsDelete(t *testing.T) {
	f := newFixture(t)
	p, err := f.pl.Create(context.Background(), "alice", "Old", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	id := strconv.FormatInt(p.ID, 10)
	if err := f.run(t, "playlists", "delete", id); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if _, err := f.pl.Get(context.Background(), "alice", p.ID); !errors.Is(err, playlists.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	if err := f.run(t, "playlists", "delete"); !errors.Is(err, errMissingID) {
		t.Errorf("delete without id error = %v, want errMissingID", err)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	if err := f.run(t, "logout"); err != nil {
		t.Fatalf("logout error = %v", err)
	}
	if creds, err := f.cache.Load(); err != nil || creds != nil {
		t.Errorf("cache after logout = %+v, %v", creds, err)
	}

	if err := f.run(t, "logout"); err != nil {
		t.Fatalf("second logout error = %v", err)
	}
	if !strings.Contains(f.output.String(), "Not logged in") {
		t.Errorf("output = %q", f.output)
	}
}

func TestInitConfig(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "conf", "config.toml")
	r := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

	if err := newApp(r).Run(context.Background(), []string{"tuttitracks", "init-config", "-o", path}); err != nil {
		t.Fatalf("init-config error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config not written: %v", err)
	}

	err := newApp(r).Run(context.Background(), []string{"tuttitracks", "init-config", "-o", path})
	if !errors.Is(err, config.ErrExists) {
		t.Errorf("second init-config error = %v, want ErrExists", err)
	}
}
