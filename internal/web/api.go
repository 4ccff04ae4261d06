package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/library"
	"github.com/justestif/go-tuttitracks/internal/playlists"
	"github.com/justestif/go-tuttitracks/internal/spotify"
)

type contextKey struct{}

// sessionFrom returns the session stored by requireSession.
func sessionFrom(ctx context.Context) *Session {
	session, _ := ctx.Value(contextKey{}).(*Session)
	return session
}

// requireSession rejects requests without a valid session and refreshes
// expired Spotify tokens.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := s.sessions.Get(r.Context(), requestSessionID(r))
		if session == nil || session.Token == nil {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}

		if !session.Token.Valid() {
			if session.Token.RefreshToken == "" {
				writeError(w, http.StatusUnauthorized, "session token expired")
				return
			}
			token, err := s.refresh(r.Context(), session.Token)
			if err != nil {
				s.logger.Warn("refreshing token", "user", session.UserID, "err", err)
				writeError(w, http.StatusUnauthorized, "session token expired")
				return
			}
			s.sessions.UpdateToken(r.Context(), session.ID, token)
			session.Token = token
		}

		ctx := context.WithValue(r.Context(), contextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// api returns the Spotify client for the request's session.
func (s *Server) api(r *http.Request) (API, *Session) {
	session := sessionFrom(r.Context())
	return s.newAPI(r.Context(), session.Token), session
}

// ============================================================================
// Library
// ============================================================================

type pageResponse struct {
	Success bool `json:"success"`
	*spotify.TrackPage
}

func (s *Server) handleLiked(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	src, _ := s.api(r)

	page, err := s.library.Liked(r.Context(), src, offset)
	if err != nil {
		s.fail(w, r, "failed to load liked tracks", err)
		return
	}
	writeJSON(w, http.StatusOK, pageResponse{Success: true, TrackPage: page})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", library.TopPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	timeRange := r.URL.Query().Get("time_range")
	if timeRange == "" {
		timeRange = "medium_term"
	}
	src, _ := s.api(r)

	page, err := s.library.Top(r.Context(), src, offset, limit, timeRange)
	if err != nil {
		s.fail(w, r, "failed to load top tracks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tracks": page.Tracks})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	params := r.URL.Query()
	q := library.SearchQuery{
		Artist: params.Get("artist"),
		Track:  params.Get("track"),
		Album:  params.Get("album"),
		Genre:  params.Get("genre"),
		Year:   params.Get("year"),
	}
	raw := strings.TrimSpace(params.Get("q"))
	src, _ := s.api(r)

	page, err := s.library.Search(r.Context(), src, raw, q, offset)
	if err != nil {
		s.fail(w, r, "search failed", err)
		return
	}

	query := raw
	if query == "" {
		query = q.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tracks": page.Tracks, "query": query})
}

type featuresResponse struct {
	Success bool `json:"success"`
	features.Summary
}

func (s *Server) handleTrackFeatures(w http.ResponseWriter, r *http.Request) {
	src, _ := s.api(r)

	track, err := s.library.Features(r.Context(), src, chi.URLParam(r, "trackID"))
	if err != nil {
		s.fail(w, r, "failed to load track features", err)
		return
	}
	summary, err := features.Summarize(*track)
	if err != nil {
		s.fail(w, r, "failed to load track features", err)
		return
	}
	writeJSON(w, http.StatusOK, featuresResponse{Success: true, Summary: summary})
}

// ============================================================================
// Playlists
// ============================================================================

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tracks      []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"tracks"`
}

type playlistResponse struct {
	Success     bool   `json:"success"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PlaylistID  int64  `json:"playlist_id"`
}

type trackIDsRequest struct {
	IDs []string `json:"id"`
}

type replaceRequest struct {
	Tracks []string `json:"tracks"`
}

type moveRequest struct {
	CurrentIndex *int `json:"current_index"`
	NewIndex     *int `json:"new_index"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	list, err := s.playlists.List(r.Context(), session.UserID)
	if err != nil {
		s.fail(w, r, "failed to list playlists", err)
		return
	}
	if list == nil {
		list = []playlists.Playlist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlists": list})
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ids := make([]string, 0, len(req.Tracks))
	for _, t := range req.Tracks {
		ids = append(ids, t.ID)
	}

	p, err := s.playlists.Create(r.Context(), session.UserID, req.Name, req.Description, ids)
	if err != nil {
		s.fail(w, r, "failed to create playlist", err)
		return
	}
	writeJSON(w, http.StatusCreated, playlistResponse{
		Success:     true,
		Name:        p.Name,
		Description: p.Description,
		PlaylistID:  p.ID,
	})
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.playlists.Get(r.Context(), session.UserID, id)
	if err != nil {
		s.fail(w, r, "failed to load playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlist": p})
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.playlists.UpdateDetails(r.Context(), session.UserID, id, req.Name, req.Description)
	if err != nil {
		s.fail(w, r, "failed to update playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, playlistResponse{
		Success:     true,
		Name:        p.Name,
		Description: p.Description,
		PlaylistID:  p.ID,
	})
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.playlists.Delete(r.Context(), session.UserID, id); err != nil {
		s.fail(w, r, "failed to delete playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": id})
}

func (s *Server) handleTrackIDs(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids, err := s.playlists.TrackIDs(r.Context(), session.UserID, id)
	if err != nil {
		s.fail(w, r, "failed to load playlist tracks", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tracks": ids})
}

func (s *Server) handleAppendTracks(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req trackIDsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.playlists.Append(r.Context(), session.UserID, id, req.IDs); err != nil {
		s.fail(w, r, "failed to add tracks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlist": id, "added": req.IDs})
}

func (s *Server) handleReplaceTracks(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req replaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.playlists.Replace(r.Context(), session.UserID, id, req.Tracks); err != nil {
		s.fail(w, r, "failed to replace tracks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlist": id})
}

// handleRemoveTracks removes each ID in order.
func (s *Server) handleRemoveTracks(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req trackIDsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, trackID := range req.IDs {
		if err := s.playlists.Remove(r.Context(), session.UserID, id, trackID); err != nil {
			s.fail(w, r, "failed to remove tracks", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlist": id, "deleted": req.IDs})
}

func (s *Server) handleMoveTrack(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CurrentIndex == nil || req.NewIndex == nil {
		writeError(w, http.StatusBadRequest, "current_index and new_index are required")
		return
	}

	err = s.playlists.Move(r.Context(), session.UserID, id, *req.CurrentIndex, *req.NewIndex)
	if err != nil {
		s.fail(w, r, "failed to move track", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlist": id})
}

func (s *Server) handleMoods(w http.ResponseWriter, r *http.Request) {
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg := features.DefaultMoodConfig()
	if cfg.NumGroups, err = queryInt(r, "groups", cfg.NumGroups); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cfg.MinGroupSize, err = queryInt(r, "min_size", cfg.MinGroupSize); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	src, session := s.api(r)

	trackIDs, err := s.playlists.TrackIDs(r.Context(), session.UserID, id)
	if err != nil {
		s.fail(w, r, "failed to load playlist tracks", err)
		return
	}
	if err := s.library.FillFeatures(r.Context(), src, trackIDs); err != nil {
		s.logger.Warn("fetching audio features", "playlist", id, "err", err)
	}

	groups, ungrouped, err := s.playlists.Moods(r.Context(), session.UserID, id, cfg)
	if err != nil {
		s.fail(w, r, "failed to group tracks", err)
		return
	}
	if groups == nil {
		groups = []features.MoodGroup{}
	}
	if ungrouped == nil {
		ungrouped = []features.Track{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "groups": groups, "ungrouped": ungrouped})
}

// ============================================================================
// Spotify
// ============================================================================

func (s *Server) handleSyncPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := playlistID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	remote, session := s.api(r)

	p, err := s.playlists.SyncToSpotify(r.Context(), session.UserID, id, remote)
	if err != nil {
		if errors.Is(err, playlists.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("syncing playlist", "playlist", id, "err", err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("failed to sync playlist %d", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "playlist": p})
}

type spotifyPlaylistsResponse struct {
	Success bool `json:"success"`
	*spotify.PlaylistPage
}

func (s *Server) handleSpotifyPlaylists(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	api, _ := s.api(r)

	page, err := api.UserPlaylists(r.Context(), limit, offset)
	if err != nil {
		s.fail(w, r, "failed to load spotify playlists", err)
		return
	}
	writeJSON(w, http.StatusOK, spotifyPlaylistsResponse{Success: true, PlaylistPage: page})
}
