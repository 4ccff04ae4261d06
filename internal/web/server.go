// Package web serves the playlist API and the Spotify login flow.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-tuttitracks/internal/library"
	"github.com/justestif/go-tuttitracks/internal/playlists"
	"github.com/justestif/go-tuttitracks/internal/spotify"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = "127.0.0.1:8080"

	// DefaultRedirectURL must match the Spotify app configuration.
	DefaultRedirectURL = "http://127.0.0.1:8080/callback"

	defaultPruneInterval = 10 * time.Minute
)

// Config holds server configuration.
type Config struct {
	Addr         string
	RedirectURL  string
	ClientID     string
	ClientSecret string
}

// API is the per-session Spotify client the handlers use.
type API interface {
	library.Source
	playlists.Remote
	CurrentUser(ctx context.Context) (*spotify.User, error)
	UserPlaylists(ctx context.Context, limit, offset int) (*spotify.PlaylistPage, error)
}

// APIFactory builds a Spotify client for a session token.
type APIFactory func(ctx context.Context, token *oauth2.Token) API

// TokenRefresher exchanges an expired token for a fresh one.
type TokenRefresher func(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)

// Server is the HTTP server for the backend.
type Server struct {
	router     chi.Router
	server     *http.Server
	auth       *spotifyauth.Authenticator
	sessions   SessionManager
	playlists  *playlists.Service
	library    *library.Service
	newAPI     APIFactory
	refresh    TokenRefresher
	logger     *log.Logger
	pruneEvery time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithSessions sets the session store. The default keeps sessions in memory.
func WithSessions(sm SessionManager) Option {
	return func(s *Server) {
		s.sessions = sm
	}
}

// WithAPIFactory replaces how Spotify clients are built.
func WithAPIFactory(f APIFactory) Option {
	return func(s *Server) {
		s.newAPI = f
	}
}

// WithTokenRefresher replaces how expired tokens are refreshed.
func WithTokenRefresher(f TokenRefresher) Option {
	return func(s *Server) {
		s.refresh = f
	}
}

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new web server.
func NewServer(cfg Config, pl *playlists.Service, lib *library.Service, opts ...Option) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = DefaultRedirectURL
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserLibraryRead,
			spotifyauth.ScopeUserTopRead,
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
		),
	)

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}

	s := &Server{
		router:    chi.NewRouter(),
		auth:      auth,
		sessions:  NewSessionStore(),
		playlists: pl,
		library:   lib,
		newAPI: func(ctx context.Context, token *oauth2.Token) API {
			return spotify.NewForToken(ctx, auth, token)
		},
		refresh: func(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
			return oauthCfg.TokenSource(ctx, token).Token()
		},
		logger:     log.New(io.Discard),
		pruneEvery: defaultPruneInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  s.logger.StandardLog(),
		NoColor: true,
	}))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.Home)

	s.router.Get("/auth/login", s.Login)
	s.router.Get("/callback", s.Callback)
	s.router.Post("/auth/logout", s.Logout)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/me/tracks", s.handleLiked)
		r.Get("/me/top/tracks", s.handleTop)
		r.Get("/search", s.handleSearch)
		r.Get("/tracks/{trackID}", s.handleTrackFeatures)

		r.Get("/me/playlists", s.handleListPlaylists)
		r.Post("/playlists", s.handleCreatePlaylist)
		r.Route("/playlists/{playlistID}", func(r chi.Router) {
			r.Get("/", s.handleGetPlaylist)
			r.Put("/", s.handleUpdatePlaylist)
			r.Delete("/", s.handleDeletePlaylist)

			r.Get("/tracks", s.handleTrackIDs)
			r.Post("/tracks", s.handleAppendTracks)
			r.Put("/tracks", s.handleReplaceTracks)
			r.Patch("/tracks", s.handleRemoveTracks)
			r.Patch("/track", s.handleMoveTrack)

			r.Get("/moods", s.handleMoods)
		})

		r.Post("/spotify/{playlistID}/playlists", s.handleSyncPlaylist)
		r.Get("/spotify/playlists", s.handleSpotifyPlaylists)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", "http://"+s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	pruneCtx, stopPrune := context.WithCancel(ctx)
	defer stopPrune()
	go s.pruneSessions(pruneCtx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// pruneSessions removes expired sessions until ctx is cancelled.
func (s *Server) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(s.pruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.Prune(ctx)
			if err != nil {
				s.logger.Warn("pruning sessions", "err", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("pruned sessions", "count", n)
			}
		}
	}
}
