// Package spotify wraps the parts of the Spotify Web API the playlist
// backend uses.
package spotify

import (
	"context"
	"fmt"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Client calls Spotify on behalf of one user.
type Client struct {
	api *spotify.Client

	mu     sync.Mutex
	userID string // cached after the first profile lookup
}

// New wraps an authenticated zmb3 client.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewForToken creates a client that authenticates with token and refreshes
// it through auth when it expires. Rate-limited requests are retried.
func NewForToken(ctx context.Context, auth *spotifyauth.Authenticator, token *oauth2.Token) *Client {
	return New(spotify.New(auth.Client(ctx, token), spotify.WithRetry(true)))
}

// User is the profile of the authenticated Spotify user.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// CurrentUser fetches the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	me, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	c.mu.Lock()
	c.userID = me.ID
	c.mu.Unlock()

	return &User{ID: me.ID, DisplayName: me.DisplayName, Email: me.Email}, nil
}

// UserID returns the current user's Spotify ID, asking Spotify only once.
func (c *Client) UserID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.userID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
