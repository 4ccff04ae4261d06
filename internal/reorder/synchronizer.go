package reorder

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// State is the drag state of a Synchronizer.
type State int

const (
	// Idle means no drag is in progress.
	Idle State = iota
	// Dragging means BeginDrag was called and EndDrag or Cancel has not.
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Presenter exposes the order currently shown to the user.
type Presenter interface {
	PresentedOrder() ([]Item, error)
}

// Mover sends a single move request to the remote playlist.
type Mover interface {
	MoveTrack(ctx context.Context, playlistID string, currentIndex, newIndex int) error
}

// Notifier receives recoverable errors from asynchronous requests.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

// Notify calls f(err).
func (f NotifierFunc) Notify(err error) { f(err) }

// DragState is the state captured by BeginDrag.
type DragState struct {
	Active     bool
	StartIndex int
	ItemID     string
}

// OutcomeKind tells what EndDrag did.
type OutcomeKind int

const (
	// OutcomeNone means nothing changed and no request was sent.
	OutcomeNone OutcomeKind = iota
	// OutcomeRebuilt means an unbound sequence was rebuilt from the presented order.
	OutcomeRebuilt
	// OutcomeDispatched means a move request was dispatched for a bound sequence.
	OutcomeDispatched
)

// MoveRequest is a dispatched move. Seq increases by one per dispatch.
type MoveRequest struct {
	ID           uuid.UUID
	Seq          uint64
	PlaylistID   string
	CurrentIndex int
	NewIndex     int
}

// Outcome is the result of EndDrag.
type Outcome struct {
	Kind    OutcomeKind
	Request *MoveRequest // set for OutcomeDispatched
}

// Synchronizer translates drag gestures over a presented list into either a
// local rebuild (unbound) or one remote move request (bound).
//
// BeginDrag, EndDrag and Cancel are meant to be called from a single event
// loop. Remote requests are queued and sent one at a time, in dispatch order,
// by a sender goroutine that runs while the queue is not empty.
type Synchronizer struct {
	seq       *Sequence
	presenter Presenter
	mover     Mover
	notifier  Notifier
	logger    *log.Logger

	mu         sync.Mutex
	state      State
	drag       DragState
	dispatched uint64

	qmu      sync.Mutex
	queue    []queuedMove
	sending  bool
	inflight sync.WaitGroup
}

type queuedMove struct {
	ctx context.Context
	req MoveRequest
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithNotifier sets the receiver of asynchronous request failures.
func WithNotifier(n Notifier) Option {
	return func(s *Synchronizer) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Synchronizer for seq.
func New(seq *Sequence, presenter Presenter, mover Mover, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		seq:       seq,
		presenter: presenter,
		mover:     mover,
		notifier:  NotifierFunc(func(error) {}),
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current drag state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sequence returns the synchronized sequence.
func (s *Synchronizer) Sequence() *Sequence {
	return s.seq
}

// BeginDrag records the index of the item being dragged.
// On sequences with fewer than two items it does nothing.
func (s *Synchronizer) BeginDrag(index int) (DragState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Dragging {
		return s.drag, ErrDragInProgress
	}

	items := s.seq.Items()
	if len(items) < 2 {
		return DragState{}, nil
	}
	if index < 0 || index >= len(items) {
		return DragState{}, fmt.Errorf("%w: drag start %d with %d items", ErrInvalidIndex, index, len(items))
	}

	s.drag = DragState{Active: true, StartIndex: index, ItemID: items[index].ID}
	s.state = Dragging
	return s.drag, nil
}

// Cancel abandons the current drag without changing anything.
func (s *Synchronizer) Cancel() {
	s.mu.Lock()
	s.state = Idle
	s.drag = DragState{}
	s.mu.Unlock()
}

// EndDrag completes the current drag at the dropped index.
//
// An unbound sequence is replaced by the presenter's order; the captured
// indices are ignored. A bound sequence applies the move locally and
// dispatches one move request without waiting for it. A failed request is
// reported once through the Notifier and is not rolled back.
func (s *Synchronizer) EndDrag(ctx context.Context, dropIndex int) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Dragging {
		return Outcome{Kind: OutcomeNone}, nil
	}
	drag := s.drag
	s.state = Idle
	s.drag = DragState{}

	n := s.seq.Len()
	if dropIndex < 0 || dropIndex >= n {
		return Outcome{Kind: OutcomeNone}, fmt.Errorf("%w: drop %d with %d items", ErrInvalidIndex, dropIndex, n)
	}
	if drag.StartIndex == dropIndex {
		return Outcome{Kind: OutcomeNone}, nil
	}

	if !s.seq.Bound() {
		return s.rebuild()
	}
	return s.dispatch(ctx, drag.StartIndex, dropIndex)
}

// Wait blocks until every queued request has been sent and answered.
func (s *Synchronizer) Wait() {
	s.inflight.Wait()
}

// rebuild replaces the sequence with the presented order.
func (s *Synchronizer) rebuild() (Outcome, error) {
	items, err := s.presenter.PresentedOrder()
	if err != nil {
		return Outcome{Kind: OutcomeNone}, fmt.Errorf("%w: %w", ErrRebuildFailed, err)
	}
	if err := s.seq.Replace(items); err != nil {
		return Outcome{Kind: OutcomeNone}, fmt.Errorf("%w: %w", ErrRebuildFailed, err)
	}
	s.logger.Debug("rebuilt unbound sequence", "items", len(items))
	return Outcome{Kind: OutcomeRebuilt}, nil
}

// dispatch applies the move locally and sends it to the remote playlist.
func (s *Synchronizer) dispatch(ctx context.Context, from, to int) (Outcome, error) {
	if err := s.seq.Move(from, to); err != nil {
		return Outcome{Kind: OutcomeNone}, err
	}

	s.dispatched++
	req := MoveRequest{
		ID:           uuid.New(),
		Seq:          s.dispatched,
		PlaylistID:   s.seq.PlaylistID(),
		CurrentIndex: from,
		NewIndex:     to,
	}

	// Queued moves are never cancelled.
	s.enqueue(queuedMove{ctx: context.WithoutCancel(ctx), req: req})

	return Outcome{Kind: OutcomeDispatched, Request: &req}, nil
}

// enqueue adds a move to the send queue and starts the sender if idle.
func (s *Synchronizer) enqueue(m queuedMove) {
	s.inflight.Add(1)

	s.qmu.Lock()
	defer s.qmu.Unlock()
	s.queue = append(s.queue, m)
	if !s.sending {
		s.sending = true
		go s.send()
	}
}

// send drains the queue in order and exits when it is empty.
func (s *Synchronizer) send() {
	for {
		s.qmu.Lock()
		if len(s.queue) == 0 {
			s.sending = false
			s.qmu.Unlock()
			return
		}
		m := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		s.sendOne(m)
		s.inflight.Done()
	}
}

func (s *Synchronizer) sendOne(m queuedMove) {
	req := m.req
	s.logger.Debug("sending move", "request", req.ID, "seq", req.Seq, "from", req.CurrentIndex, "to", req.NewIndex)
	if err := s.mover.MoveTrack(m.ctx, req.PlaylistID, req.CurrentIndex, req.NewIndex); err != nil {
		s.logger.Warn("move request failed", "request", req.ID, "err", err)
		s.notifier.Notify(&RemoteError{Request: req, Err: err})
	}
}
