// Package auth stores the backend session token for the CLI and runs the
// terminal login flow.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	configDirName       = "tuttitracks"
	credentialsFileName = "session.json"
)

// Credentials identify a backend session.
type Credentials struct {
	BaseURL   string    `json:"base_url"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has expired at now.
func (c *Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Cache handles persistent storage of session credentials.
type Cache struct {
	path string
}

// DefaultCache returns a Cache using the default location:
// ~/.config/tuttitracks/session.json
func DefaultCache() (*Cache, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}

	path := filepath.Join(configDir, configDirName, credentialsFileName)
	return &Cache{path: path}, nil
}

// NewCache creates a Cache with a custom path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the file path where credentials are stored.
func (c *Cache) Path() string {
	return c.path
}

// Load reads cached credentials from disk.
// Returns (nil, nil) if the file does not exist.
func (c *Cache) Load() (*Credentials, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}

	return &creds, nil
}

// Save writes credentials to disk, creating the parent directory if needed.
// The file is readable only by the owner.
func (c *Cache) Save(creds *Credentials) error {
	if creds == nil || creds.Token == "" {
		return errors.New("cannot save empty credentials")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}

	return nil
}

// Delete removes the cached credentials file.
// Returns nil if the file does not exist.
func (c *Cache) Delete() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return nil
}
