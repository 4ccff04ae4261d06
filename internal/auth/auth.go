package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-tuttitracks/internal/apiclient"
)

const loginTimeout = 2 * time.Minute

var (
	// ErrAuthTimeout is returned when no session token is entered in time.
	ErrAuthTimeout = errors.New("authentication timed out waiting for session token")

	// ErrNotAuthenticated is returned when the backend rejects the session token.
	ErrNotAuthenticated = errors.New("session token not accepted by server")

	// ErrEmptyToken is returned when the entered token is blank.
	ErrEmptyToken = errors.New("empty session token")
)

// CheckFunc asks the backend at baseURL about the session behind token.
type CheckFunc func(ctx context.Context, baseURL, token string) (*apiclient.SessionInfo, error)

// CheckWithClient checks sessions with an apiclient.Client.
func CheckWithClient(ctx context.Context, baseURL, token string) (*apiclient.SessionInfo, error) {
	return apiclient.New(baseURL, token).Session(ctx)
}

// Authenticator obtains a backend session for the CLI.
type Authenticator struct {
	cache   *Cache
	baseURL string
	check   CheckFunc
	in      io.Reader
	out     io.Writer
	logger  *log.Logger
	timeout time.Duration
}

// New creates an Authenticator for the backend at baseURL. The login flow
// prompts on out and reads the token from in.
func New(cache *Cache, baseURL string, check CheckFunc, in io.Reader, out io.Writer, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Authenticator{
		cache:   cache,
		baseURL: strings.TrimRight(baseURL, "/"),
		check:   check,
		in:      in,
		out:     out,
		logger:  logger,
		timeout: loginTimeout,
	}
}

// Authenticate returns cached credentials when the backend still accepts
// them, otherwise runs the login flow.
func (a *Authenticator) Authenticate(ctx context.Context) (*Credentials, error) {
	creds, err := a.cache.Load()
	if err != nil {
		return nil, fmt.Errorf("loading cached credentials: %w", err)
	}

	if creds != nil && creds.BaseURL == a.baseURL && !creds.Expired(time.Now()) {
		info, err := a.check(ctx, a.baseURL, creds.Token)
		if err == nil && info.Authenticated {
			return creds, nil
		}
		a.logger.Info("cached session invalid, starting new login", "err", err)
	}

	return a.Login(ctx)
}

// Login asks the user to log in through the browser and paste the session
// token the backend shows afterwards.
func (a *Authenticator) Login(ctx context.Context) (*Credentials, error) {
	fmt.Fprintln(a.out, "\nTo log in, open this URL in your browser:")
	fmt.Fprintln(a.out, a.baseURL+"/auth/login")
	fmt.Fprint(a.out, "\nThen paste the \"token\" value shown after login: ")

	tokenCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			errCh <- fmt.Errorf("reading session token: %w", err)
			return
		}
		tokenCh <- strings.TrimSpace(line)
	}()

	var token string
	select {
	case token = <-tokenCh:
	case err := <-errCh:
		return nil, err
	case <-time.After(a.timeout):
		return nil, ErrAuthTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if token == "" {
		return nil, ErrEmptyToken
	}

	info, err := a.check(ctx, a.baseURL, token)
	if err != nil {
		return nil, fmt.Errorf("verifying session token: %w", err)
	}
	if !info.Authenticated {
		return nil, ErrNotAuthenticated
	}

	creds := &Credentials{
		BaseURL:   a.baseURL,
		Token:     token,
		UserID:    info.UserID,
		UserName:  info.UserName,
		ExpiresAt: info.ExpiresAt,
	}
	if err := a.cache.Save(creds); err != nil {
		a.logger.Warn("failed to cache credentials", "err", err)
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", displayName(creds))
	return creds, nil
}

// Logout removes the cached credentials.
func (a *Authenticator) Logout() error {
	return a.cache.Delete()
}

func displayName(c *Credentials) string {
	if c.UserName != "" {
		return c.UserName
	}
	return c.UserID
}
