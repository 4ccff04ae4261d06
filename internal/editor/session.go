// Package editor holds the state of one playlist editing view and the
// handlers that change it.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-tuttitracks/internal/library"
	"github.com/justestif/go-tuttitracks/internal/reorder"
	"github.com/justestif/go-tuttitracks/internal/spotify"
)

// ErrEmptyName is returned when saving a playlist without a name.
var ErrEmptyName = errors.New("playlist name is empty")

// Backend is the remote side of an editing session.
type Backend interface {
	reorder.Mover
	CreatePlaylist(ctx context.Context, name, description string, tracks []reorder.Item) (string, error)
	UpdatePlaylist(ctx context.Context, playlistID, name, description string) error
	AppendTracks(ctx context.Context, playlistID string, trackIDs []string) error
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error
	Liked(ctx context.Context, offset int) (*spotify.TrackPage, error)
}

// Session is the editing state of one playlist view: the track sequence,
// its synchronizer, and the liked-tracks page shown next to it.
type Session struct {
	backend Backend
	seq     *reorder.Sequence
	sync    *reorder.Synchronizer
	logger  *log.Logger

	mu     sync.Mutex
	name   string
	offset int
	liked  *spotify.TrackPage
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	logger   *log.Logger
	notifier reorder.Notifier
	playlist string
	name     string
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = l
	}
}

// WithNotifier receives failures of asynchronous move requests.
func WithNotifier(n reorder.Notifier) Option {
	return func(o *sessionOptions) {
		o.notifier = n
	}
}

// WithPlaylist binds the session to an existing playlist.
func WithPlaylist(playlistID, name string) Option {
	return func(o *sessionOptions) {
		o.playlist = playlistID
		o.name = name
	}
}

// NewSession creates a session over items. The presenter supplies the
// on-screen order used to rebuild an unbound sequence.
func NewSession(backend Backend, presenter reorder.Presenter, items []reorder.Item, opts ...Option) (*Session, error) {
	o := sessionOptions{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}

	seq, err := reorder.NewSequence(items)
	if err != nil {
		return nil, err
	}
	if o.playlist != "" {
		seq.Bind(o.playlist)
	}

	return &Session{
		backend: backend,
		seq:     seq,
		sync:    reorder.New(seq, presenter, backend, reorder.WithNotifier(o.notifier), reorder.WithLogger(o.logger)),
		logger:  o.logger,
		name:    o.name,
	}, nil
}

// Items returns the current track order.
func (s *Session) Items() []reorder.Item {
	return s.seq.Items()
}

// PlaylistID returns the bound playlist, or "" while unbound.
func (s *Session) PlaylistID() string {
	return s.seq.PlaylistID()
}

// Name returns the playlist name last saved.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Offset returns the offset of the liked-tracks page.
func (s *Session) Offset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Liked returns the liked-tracks page last loaded, or nil.
func (s *Session) Liked() *spotify.TrackPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked
}

// DragState reports the synchronizer state.
func (s *Session) DragState() reorder.State {
	return s.sync.State()
}

// Close waits for dispatched move requests to finish.
func (s *Session) Close() {
	s.sync.Wait()
}

// Register installs the session's event handlers on d.
func (s *Session) Register(d *Dispatcher) {
	On(d, s.dragStarted)
	On(d, s.dragEnded)
	On(d, s.dragCancelled)
	On(d, s.trackAdded)
	On(d, s.trackRemoved)
	On(d, s.playlistSaved)
	On(d, s.pageChanged)
}

func (s *Session) dragStarted(_ context.Context, ev DragStarted) (any, error) {
	return s.sync.BeginDrag(ev.Index)
}

func (s *Session) dragEnded(ctx context.Context, ev DragEnded) (any, error) {
	return s.sync.EndDrag(ctx, ev.Index)
}

func (s *Session) dragCancelled(context.Context, DragCancelled) (any, error) {
	s.sync.Cancel()
	return nil, nil
}

// trackAdded appends a track locally, then to the bound playlist.
func (s *Session) trackAdded(ctx context.Context, ev TrackAdded) (any, error) {
	if err := s.seq.Append(ev.Item); err != nil {
		return nil, err
	}
	if id := s.seq.PlaylistID(); id != "" {
		if err := s.backend.AppendTracks(ctx, id, []string{ev.Item.ID}); err != nil {
			return nil, fmt.Errorf("adding %s: %w", ev.Item.Name, err)
		}
	}
	return nil, nil
}

// trackRemoved removes a track locally, then from the bound playlist.
func (s *Session) trackRemoved(ctx context.Context, ev TrackRemoved) (any, error) {
	if _, ok := s.seq.Remove(ev.ID); !ok {
		return nil, fmt.Errorf("track %s: %w", ev.ID, reorder.ErrInvalidItem)
	}
	if id := s.seq.PlaylistID(); id != "" {
		if err := s.backend.RemoveTracks(ctx, id, []string{ev.ID}); err != nil {
			return nil, fmt.Errorf("removing %s: %w", ev.ID, err)
		}
	}
	return nil, nil
}

// playlistSaved creates the playlist and binds the sequence to it, or
// updates the details of the bound playlist. The value is the playlist ID.
func (s *Session) playlistSaved(ctx context.Context, ev PlaylistSaved) (any, error) {
	if ev.Name == "" {
		return nil, ErrEmptyName
	}

	id := s.seq.PlaylistID()
	if id == "" {
		created, err := s.backend.CreatePlaylist(ctx, ev.Name, ev.Description, s.seq.Items())
		if err != nil {
			return nil, err
		}
		s.seq.Bind(created)
		s.logger.Info("created playlist", "id", created, "tracks", s.seq.Len())
		id = created
	} else if err := s.backend.UpdatePlaylist(ctx, id, ev.Name, ev.Description); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.name = ev.Name
	s.mu.Unlock()
	return id, nil
}

// pageChanged loads another page of liked tracks. The value is the page.
func (s *Session) pageChanged(ctx context.Context, ev PageChanged) (any, error) {
	s.mu.Lock()
	offset := max(s.offset+ev.Delta*library.LikedPageSize, 0)
	s.mu.Unlock()

	page, err := s.backend.Liked(ctx, offset)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.offset = offset
	s.liked = page
	s.mu.Unlock()
	return page, nil
}
