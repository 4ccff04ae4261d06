// Package config loads tuttitracks settings from a TOML file and the
// environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

//go:embed config.example.toml
var exampleConf []byte

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrExists is returned by Write when the target file is already present.
var ErrExists = errors.New("config file already exists")

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Database DatabaseConfig `toml:"database"`
	Client   ClientConfig   `toml:"client"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig holds backend HTTP settings.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	RedirectURL string `toml:"redirect_url"`
}

// SpotifyConfig holds the Spotify app credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// DatabaseConfig selects the playlist store.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	URL    string `toml:"url"`
}

// ClientConfig holds settings for the terminal commands.
type ClientConfig struct {
	APIURL  string `toml:"api_url"`
	LogFile string `toml:"log_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration of the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("parsing embedded config: %v", err))
	}
	return &cfg
}

// DefaultPath returns ~/.config/tuttitracks/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("finding config directory: %w", err)
	}
	return filepath.Join(dir, "tuttitracks", "config.toml"), nil
}

// Load reads the file at path over the defaults and applies environment
// overrides. An empty path, or a missing file at the default path, yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("loading config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Spotify.ClientID = getEnv("SPOTIFY_ID", c.Spotify.ClientID)
	c.Spotify.ClientSecret = getEnv("SPOTIFY_SECRET", c.Spotify.ClientSecret)
	c.Server.Addr = getEnv("TUTTI_ADDR", c.Server.Addr)
	c.Client.APIURL = getEnv("TUTTI_API_URL", c.Client.APIURL)
	c.Log.Level = getEnv("TUTTI_LOG_LEVEL", c.Log.Level)

	if dbURL, ok := os.LookupEnv("DATABASE_URL"); ok && dbURL != "" {
		c.Database.URL = dbURL
		c.Database.Driver = DriverPostgres
	}
	c.Database.Driver = getEnv("TUTTI_DB_DRIVER", c.Database.Driver)
}

// Validate reports every problem with the settings shared by all commands.
func (c *Config) Validate() error {
	return joinProblems(c.problems())
}

// ValidateServer additionally requires what the backend needs to run.
func (c *Config) ValidateServer() error {
	problems := c.problems()
	if c.Spotify.ClientID == "" {
		problems = append(problems, "spotify.client_id (SPOTIFY_ID) cannot be empty")
	}
	if c.Spotify.ClientSecret == "" {
		problems = append(problems, "spotify.client_secret (SPOTIFY_SECRET) cannot be empty")
	}
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr cannot be empty")
	}
	return joinProblems(problems)
}

func (c *Config) problems() []string {
	var problems []string

	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Database.Path == "" {
			problems = append(problems, "database.path cannot be empty for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			problems = append(problems, "database.url (DATABASE_URL) cannot be empty for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("database.driver must be one of: memory, sqlite, postgres, got: %q", c.Database.Driver))
	}

	if u, err := url.Parse(c.Client.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("client.api_url is not a valid URL: %q", c.Client.APIURL))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got: %q", c.Log.Level))
	}

	return problems
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
}

// Write saves the example configuration to path, creating its directory.
func Write(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
