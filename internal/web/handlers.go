package web

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

const oauthStateCookie = "oauth_state"

// homeResponse describes the caller's session.
type homeResponse struct {
	Success       bool      `json:"success"`
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	UserName      string    `json:"user_name,omitempty"`
	Token         string    `json:"token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	LoginURL      string    `json:"login_url,omitempty"`
}

// Home reports the current session (GET /). After login the response
// carries the session token that CLI clients store.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.Get(r.Context(), requestSessionID(r))
	if session == nil {
		writeJSON(w, http.StatusOK, homeResponse{Success: true, LoginURL: "/auth/login"})
		return
	}

	writeJSON(w, http.StatusOK, homeResponse{
		Success:       true,
		Authenticated: true,
		UserID:        session.UserID,
		UserName:      session.UserName,
		Token:         session.ID,
		ExpiresAt:     session.ExpiresAt(),
	})
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateOAuthState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}

	// Checked again on callback.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, s.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (s *Server) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing state cookie")
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		writeError(w, http.StatusBadRequest, "state mismatch")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		writeError(w, http.StatusBadRequest, "spotify auth error: "+errMsg)
		return
	}

	token, err := s.auth.Token(r.Context(), state, r)
	if err != nil {
		s.logger.Error("token exchange failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to get token")
		return
	}

	user, err := s.newAPI(r.Context(), token).CurrentUser(r.Context())
	if err != nil {
		s.logger.Error("fetching spotify user", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to get user info")
		return
	}

	session, err := s.sessions.Create(r.Context(), token, user.ID, user.DisplayName)
	if err != nil {
		s.logger.Error("creating session", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.logger.Info("user logged in", "user", user.ID)
	setCookie(w, session)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// Logout deletes the session (POST /auth/logout).
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if id := requestSessionID(r); id != "" {
		s.sessions.Delete(r.Context(), id)
	}
	clearCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
