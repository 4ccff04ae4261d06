package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/justestif/go-tuttitracks/internal/apiclient"
)

func TestCache_SaveAndLoad(t *testing.T) {
	tests := []struct {
		name  string
		creds *Credentials
	}{
		{
			name: "full credentials",
			creds: &Credentials{
				BaseURL:   "http://127.0.0.1:8080",
				Token:     "session-token",
				UserID:    "alice",
				UserName:  "Alice",
				ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second),
			},
		},
		{
			name:  "token only",
			creds: &Credentials{Token: "bare"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCache(filepath.Join(t.TempDir(), "session.json"))

			if err := cache.Save(tt.creds); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := cache.Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded == nil {
				t.Fatal("Load() returned nil credentials")
			}
			if loaded.Token != tt.creds.Token || loaded.UserID != tt.creds.UserID || loaded.BaseURL != tt.creds.BaseURL {
				t.Errorf("Load() = %+v, want %+v", loaded, tt.creds)
			}
			if !loaded.ExpiresAt.Equal(tt.creds.ExpiresAt) {
				t.Errorf("ExpiresAt = %v, want %v", loaded.ExpiresAt, tt.creds.ExpiresAt)
			}
		})
	}
}

func TestCache_LoadNonExistent(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "nonexistent", "session.json"))

	creds, err := cache.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if creds != nil {
		t.Errorf("Load() = %v, want nil for non-existent file", creds)
	}
}

func TestCache_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewCache(path).Load(); err == nil {
		t.Error("Load() error = nil for corrupt file")
	}
}

func TestCache_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeply", "session.json")
	cache := NewCache(path)

	if err := cache.Save(&Credentials{Token: "t"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Save() did not create credentials file")
	}
}

func TestCache_SaveEmpty(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "session.json"))

	for _, creds := range []*Credentials{nil, {UserID: "alice"}} {
		if err := cache.Save(creds); err == nil {
			t.Errorf("Save(%v) should return error", creds)
		}
	}
}

func TestCache_Delete(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "session.json"))
	if err := cache.Save(&Credentials{Token: "t"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := cache.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if creds, _ := cache.Load(); creds != nil {
		t.Error("Load() after Delete() returned credentials")
	}
	if err := cache.Delete(); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}

func TestCache_Path(t *testing.T) {
	path := "/custom/path/session.json"
	if got := NewCache(path).Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
}

func TestCache_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := NewCache(path).Save(&Credentials{Token: "secret"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		t.Errorf("File permissions = %o, want 0600 (no group/other access)", mode)
	}
}

func TestCredentials_Expired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"unknown expiry", time.Time{}, false},
		{"future", now.Add(time.Minute), false},
		{"past", now.Add(-time.Minute), true},
		{"exactly now", now, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credentials{ExpiresAt: tt.expiresAt}
			if got := c.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

// fakeBackend accepts exactly one token.
type fakeBackend struct {
	valid string
	calls int
}

func (f *fakeBackend) check(_ context.Context, _, token string) (*apiclient.SessionInfo, error) {
	f.calls++
	if token != f.valid {
		return &apiclient.SessionInfo{}, nil
	}
	return &apiclient.SessionInfo{
		Authenticated: true,
		UserID:        "alice",
		UserName:      "Alice",
		ExpiresAt:     time.Now().Add(time.Hour),
	}, nil
}

func newTestAuthenticator(t *testing.T, input string, backend *fakeBackend) (*Authenticator, *Cache, *bytes.Buffer) {
	t.Helper()
	cache := NewCache(filepath.Join(t.TempDir(), "session.json"))
	var out bytes.Buffer
	a := New(cache, "http://backend/", backend.check, strings.NewReader(input), &out, nil)
	return a, cache, &out
}

func TestLogin(t *testing.T) {
	backend := &fakeBackend{valid: "good"}
	a, cache, out := newTestAuthenticator(t, "  good  \n", backend)

	creds, err := a.Login(context.Background())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if creds.Token != "good" || creds.UserID != "alice" || creds.BaseURL != "http://backend" {
		t.Errorf("Login() = %+v", creds)
	}
	if !strings.Contains(out.String(), "http://backend/auth/login") {
		t.Errorf("prompt %q does not show the login URL", out.String())
	}

	cached, _ := cache.Load()
	if cached == nil || cached.Token != "good" {
		t.Errorf("cached = %+v, want token good", cached)
	}
}

func TestLoginErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty line", "\n", ErrEmptyToken},
		{"rejected token", "bad\n", ErrNotAuthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, cache, _ := newTestAuthenticator(t, tt.input, &fakeBackend{valid: "good"})

			_, err := a.Login(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("Login() error = %v, want %v", err, tt.want)
			}
			if creds, _ := cache.Load(); creds != nil {
				t.Errorf("credentials cached after failed login: %+v", creds)
			}
		})
	}
}

func TestLoginTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	cache := NewCache(filepath.Join(t.TempDir(), "session.json"))
	a := New(cache, "http://backend", (&fakeBackend{}).check, pr, io.Discard, nil)
	a.timeout = 10 * time.Millisecond

	if _, err := a.Login(context.Background()); !errors.Is(err, ErrAuthTimeout) {
		t.Errorf("Login() error = %v, want ErrAuthTimeout", err)
	}
}

func TestAuthenticateUsesCache(t *testing.T) {
	backend := &fakeBackend{valid: "cached"}
	a, cache, _ := newTestAuthenticator(t, "", backend)
	if err := cache.Save(&Credentials{BaseURL: "http://backend", Token: "cached"}); err != nil {
		t.Fatal(err)
	}

	creds, err := a.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if creds.Token != "cached" || backend.calls != 1 {
		t.Errorf("Authenticate() = %+v after %d checks", creds, backend.calls)
	}
}

func TestAuthenticateFallsBackToLogin(t *testing.T) {
	tests := []struct {
		name   string
		cached *Credentials
	}{
		{"rejected token", &Credentials{BaseURL: "http://backend", Token: "stale"}},
		{"other backend", &Credentials{BaseURL: "http://elsewhere", Token: "fresh"}},
		{"expired", &Credentials{BaseURL: "http://backend", Token: "fresh", ExpiresAt: time.Now().Add(-time.Hour)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, cache, _ := newTestAuthenticator(t, "fresh\n", &fakeBackend{valid: "fresh"})
			if err := cache.Save(tt.cached); err != nil {
				t.Fatal(err)
			}

			creds, err := a.Authenticate(context.Background())
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if creds.BaseURL != "http://backend" || creds.Token != "fresh" {
				t.Errorf("Authenticate() = %+v", creds)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	a, cache, _ := newTestAuthenticator(t, "", &fakeBackend{})
	if err := cache.Save(&Credentials{Token: "t"}); err != nil {
		t.Fatal(err)
	}

	if err := a.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if creds, _ := cache.Load(); creds != nil {
		t.Error("credentials remain after Logout()")
	}
}
