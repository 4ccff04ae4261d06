package reorder

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

// fakePresenter returns a fixed presented order.
type fakePresenter struct {
	items []Item
	err   error
	calls int
}

func (p *fakePresenter) PresentedOrder() ([]Item, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return slices.Clone(p.items), nil
}

type moveCall struct {
	playlistID string
	current    int
	next       int
}

// fakeMover records move requests.
type fakeMover struct {
	mu    sync.Mutex
	calls []moveCall
	err   error
}

func (m *fakeMover) MoveTrack(_ context.Context, playlistID string, currentIndex, newIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, moveCall{playlistID, currentIndex, newIndex})
	return m.err
}

func (m *fakeMover) recorded() []moveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// collectNotifier records notified errors.
type collectNotifier struct {
	mu   sync.Mutex
	errs []error
}

func (n *collectNotifier) Notify(err error) {
	n.mu.Lock()
	n.errs = append(n.errs, err)
	n.mu.Unlock()
}

func (n *collectNotifier) errors() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.errs)
}

func abc() []Item {
	return []Item{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}, {ID: "3", Name: "C"}}
}

func mustSequence(t *testing.T, items []Item) *Sequence {
	t.Helper()
	seq, err := NewSequence(items)
	if err != nil {
		t.Fatalf("NewSequence() error = %v", err)
	}
	return seq
}

func TestEndDrag_SameIndexIsNoop(t *testing.T) {
	for _, bound := range []bool{false, true} {
		seq := mustSequence(t, abc())
		if bound {
			seq.Bind("42")
		}
		presenter := &fakePresenter{items: abc()}
		mover := &fakeMover{}
		s := New(seq, presenter, mover)

		if _, err := s.BeginDrag(1); err != nil {
			t.Fatalf("BeginDrag() error = %v", err)
		}
		out, err := s.EndDrag(context.Background(), 1)
		if err != nil {
			t.Fatalf("EndDrag() error = %v", err)
		}
		s.Wait()

		if out.Kind != OutcomeNone {
			t.Errorf("bound=%v: Kind = %v, want OutcomeNone", bound, out.Kind)
		}
		if got := mover.recorded(); len(got) != 0 {
			t.Errorf("bound=%v: got %d requests, want 0", bound, len(got))
		}
		if presenter.calls != 0 {
			t.Errorf("bound=%v: presenter read %d times, want 0", bound, presenter.calls)
		}
		if !slices.Equal(seq.Items(), abc()) {
			t.Errorf("bound=%v: sequence changed to %v", bound, seq.Items())
		}
		if s.State() != Idle {
			t.Errorf("bound=%v: State = %v, want idle", bound, s.State())
		}
	}
}

func TestEndDrag_UnboundRebuildsFromPresentedOrder(t *testing.T) {
	seq := mustSequence(t, abc())
	presented := []Item{{ID: "2", Name: "B"}, {ID: "3", Name: "C"}, {ID: "1", Name: "A"}}
	presenter := &fakePresenter{items: presented}
	mover := &fakeMover{}
	s := New(seq, presenter, mover)

	if _, err := s.BeginDrag(0); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	out, err := s.EndDrag(context.Background(), 2)
	if err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}

	if out.Kind != OutcomeRebuilt {
		t.Errorf("Kind = %v, want OutcomeRebuilt", out.Kind)
	}
	if !slices.Equal(seq.Items(), presented) {
		t.Errorf("Items() = %v, want %v", seq.Items(), presented)
	}
	if got := mover.recorded(); len(got) != 0 {
		t.Errorf("got %d requests, want 0", len(got))
	}
}

func TestEndDrag_UnboundIgnoresCapturedIndices(t *testing.T) {
	seq := mustSequence(t, abc())
	// Presented order disagrees with a 0 -> 1 move; the presenter wins.
	presented := []Item{{ID: "3", Name: "C"}, {ID: "1", Name: "A"}, {ID: "2", Name: "B"}}
	s := New(seq, &fakePresenter{items: presented}, &fakeMover{})

	if _, err := s.BeginDrag(0); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	if _, err := s.EndDrag(context.Background(), 1); err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	if !slices.Equal(seq.Items(), presented) {
		t.Errorf("Items() = %v, want %v", seq.Items(), presented)
	}
}

func TestEndDrag_UnboundRebuildFailureKeepsSequence(t *testing.T) {
	tests := []struct {
		name      string
		presenter *fakePresenter
	}{
		{"presenter error", &fakePresenter{err: errors.New("malformed markup")}},
		{"missing id", &fakePresenter{items: []Item{{ID: "1"}, {Name: "no id"}, {ID: "3"}}}},
		{"duplicate id", &fakePresenter{items: []Item{{ID: "1"}, {ID: "1"}, {ID: "3"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := mustSequence(t, abc())
			s := New(seq, tt.presenter, &fakeMover{})

			if _, err := s.BeginDrag(0); err != nil {
				t.Fatalf("BeginDrag() error = %v", err)
			}
			_, err := s.EndDrag(context.Background(), 2)
			if !errors.Is(err, ErrRebuildFailed) {
				t.Fatalf("EndDrag() error = %v, want ErrRebuildFailed", err)
			}
			if !slices.Equal(seq.Items(), abc()) {
				t.Errorf("Items() = %v, want unchanged", seq.Items())
			}
			if s.State() != Idle {
				t.Errorf("State = %v, want idle", s.State())
			}
		})
	}
}

func TestEndDrag_BoundDispatchesOneMove(t *testing.T) {
	items := append(abc(), Item{ID: "4", Name: "D"})
	seq := mustSequence(t, items)
	seq.Bind("42")
	presenter := &fakePresenter{}
	mover := &fakeMover{}
	s := New(seq, presenter, mover)

	if _, err := s.BeginDrag(1); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	out, err := s.EndDrag(context.Background(), 3)
	if err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	s.Wait()

	if out.Kind != OutcomeDispatched || out.Request == nil {
		t.Fatalf("Outcome = %+v, want dispatched request", out)
	}
	want := []moveCall{{"42", 1, 3}}
	if got := mover.recorded(); !slices.Equal(got, want) {
		t.Errorf("requests = %v, want %v", got, want)
	}
	if presenter.calls != 0 {
		t.Errorf("presenter read %d times, want 0", presenter.calls)
	}

	wantOrder := []string{"1", "3", "4", "2"}
	if got := ids(seq.Items()); !slices.Equal(got, wantOrder) {
		t.Errorf("order = %v, want %v", got, wantOrder)
	}
}

func TestEndDrag_RemoteFailureIsNotRolledBack(t *testing.T) {
	seq := mustSequence(t, abc())
	seq.Bind("42")
	mover := &fakeMover{err: errors.New("connection refused")}
	notifier := &collectNotifier{}
	s := New(seq, &fakePresenter{}, mover, WithNotifier(notifier))

	if _, err := s.BeginDrag(0); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	out, err := s.EndDrag(context.Background(), 2)
	if err != nil {
		t.Fatalf("EndDrag() error = %v, want nil (failure is asynchronous)", err)
	}
	s.Wait()

	if out.Kind != OutcomeDispatched {
		t.Errorf("Kind = %v, want OutcomeDispatched", out.Kind)
	}
	if got := ids(seq.Items()); !slices.Equal(got, []string{"2", "3", "1"}) {
		t.Errorf("order = %v, want [2 3 1]", got)
	}

	errs := notifier.errors()
	if len(errs) != 1 {
		t.Fatalf("notified %d errors, want 1", len(errs))
	}
	if !errors.Is(errs[0], ErrRemoteRequestFailed) {
		t.Errorf("error = %v, want ErrRemoteRequestFailed", errs[0])
	}
	var rerr *RemoteError
	if !errors.As(errs[0], &rerr) {
		t.Fatalf("error %T is not *RemoteError", errs[0])
	}
	if rerr.Request.CurrentIndex != 0 || rerr.Request.NewIndex != 2 {
		t.Errorf("request = %+v, want 0 -> 2", rerr.Request)
	}
}

func TestEndDrag_SequentialDragsDispatchInOrder(t *testing.T) {
	seq := mustSequence(t, abc())
	seq.Bind("42")
	mover := &fakeMover{}
	s := New(seq, &fakePresenter{}, mover)
	ctx := context.Background()

	var seqs []uint64
	for _, drag := range [][2]int{{0, 2}, {2, 1}} {
		if _, err := s.BeginDrag(drag[0]); err != nil {
			t.Fatalf("BeginDrag(%d) error = %v", drag[0], err)
		}
		out, err := s.EndDrag(ctx, drag[1])
		if err != nil {
			t.Fatalf("EndDrag(%d) error = %v", drag[1], err)
		}
		seqs = append(seqs, out.Request.Seq)
	}
	s.Wait()

	want := []moveCall{{"42", 0, 2}, {"42", 2, 1}}
	if got := mover.recorded(); !slices.Equal(got, want) {
		t.Errorf("requests = %v, want %v", got, want)
	}
	if !slices.Equal(seqs, []uint64{1, 2}) {
		t.Errorf("dispatch seqs = %v, want [1 2]", seqs)
	}
	if got := ids(seq.Items()); !slices.Equal(got, []string{"2", "1", "3"}) {
		t.Errorf("order = %v, want [2 1 3]", got)
	}
}

// gatedMover holds its first call until release is closed.
type gatedMover struct {
	fakeMover
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedMover() *gatedMover {
	return &gatedMover{started: make(chan struct{}), release: make(chan struct{})}
}

func (m *gatedMover) MoveTrack(ctx context.Context, playlistID string, currentIndex, newIndex int) error {
	err := m.fakeMover.MoveTrack(ctx, playlistID, currentIndex, newIndex)
	first := false
	m.once.Do(func() { first = true })
	if first {
		close(m.started)
		<-m.release
	}
	return err
}

func TestEndDrag_QueuesBehindSlowRequest(t *testing.T) {
	seq := mustSequence(t, abc())
	seq.Bind("42")
	mover := newGatedMover()
	s := New(seq, &fakePresenter{}, mover)
	ctx := context.Background()

	drags := [][2]int{{0, 2}, {2, 1}, {0, 1}}
	for i, drag := range drags {
		if _, err := s.BeginDrag(drag[0]); err != nil {
			t.Fatalf("BeginDrag(%d) error = %v", drag[0], err)
		}
		if _, err := s.EndDrag(ctx, drag[1]); err != nil {
			t.Fatalf("EndDrag(%d) error = %v", drag[1], err)
		}
		if i == 0 {
			select {
			case <-mover.started:
			case <-time.After(5 * time.Second):
				t.Fatal("first move was never sent")
			}
		}
	}

	if got := mover.recorded(); len(got) != 1 {
		t.Errorf("requests while the first is in flight = %v, want only the first", got)
	}

	close(mover.release)
	s.Wait()

	want := []moveCall{{"42", 0, 2}, {"42", 2, 1}, {"42", 0, 1}}
	if got := mover.recorded(); !slices.Equal(got, want) {
		t.Errorf("requests = %v, want %v", got, want)
	}
	if got := ids(seq.Items()); !slices.Equal(got, []string{"1", "2", "3"}) {
		t.Errorf("order = %v, want [1 2 3]", got)
	}
}

func TestDrag_EmptyAndSingleton(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
	}{
		{"empty", nil},
		{"singleton", []Item{{ID: "1", Name: "A"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := mustSequence(t, tt.items)
			seq.Bind("42")
			mover := &fakeMover{}
			s := New(seq, &fakePresenter{}, mover)

			drag, err := s.BeginDrag(0)
			if err != nil {
				t.Fatalf("BeginDrag() error = %v", err)
			}
			if drag.Active {
				t.Error("drag should be inactive")
			}
			out, err := s.EndDrag(context.Background(), 0)
			if err != nil {
				t.Fatalf("EndDrag() error = %v", err)
			}
			s.Wait()

			if out.Kind != OutcomeNone {
				t.Errorf("Kind = %v, want OutcomeNone", out.Kind)
			}
			if len(mover.recorded()) != 0 {
				t.Error("expected no requests")
			}
			if seq.Len() != len(tt.items) {
				t.Errorf("Len() = %d, want %d", seq.Len(), len(tt.items))
			}
		})
	}
}

func TestDrag_InvalidIndices(t *testing.T) {
	seq := mustSequence(t, abc())
	seq.Bind("42")
	mover := &fakeMover{}
	s := New(seq, &fakePresenter{}, mover)
	ctx := context.Background()

	for _, idx := range []int{-1, 3} {
		if _, err := s.BeginDrag(idx); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("BeginDrag(%d) error = %v, want ErrInvalidIndex", idx, err)
		}
		if s.State() != Idle {
			t.Errorf("State after BeginDrag(%d) = %v, want idle", idx, s.State())
		}
	}

	if _, err := s.BeginDrag(0); err != nil {
		t.Fatalf("BeginDrag(0) error = %v", err)
	}
	if _, err := s.EndDrag(ctx, 7); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("EndDrag(7) error = %v, want ErrInvalidIndex", err)
	}
	s.Wait()

	if len(mover.recorded()) != 0 {
		t.Error("expected no requests for invalid drop")
	}
	if s.State() != Idle {
		t.Errorf("State = %v, want idle", s.State())
	}
}

func TestDrag_StateMachine(t *testing.T) {
	seq := mustSequence(t, abc())
	seq.Bind("42")
	mover := &fakeMover{}
	s := New(seq, &fakePresenter{}, mover)

	if s.State() != Idle {
		t.Fatalf("initial State = %v, want idle", s.State())
	}

	drag, err := s.BeginDrag(2)
	if err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	if !drag.Active || drag.StartIndex != 2 || drag.ItemID != "3" {
		t.Errorf("drag = %+v", drag)
	}
	if s.State() != Dragging {
		t.Errorf("State = %v, want dragging", s.State())
	}

	if _, err := s.BeginDrag(0); !errors.Is(err, ErrDragInProgress) {
		t.Errorf("second BeginDrag() error = %v, want ErrDragInProgress", err)
	}

	s.Cancel()
	if s.State() != Idle {
		t.Errorf("State after Cancel = %v, want idle", s.State())
	}

	out, err := s.EndDrag(context.Background(), 0)
	if err != nil {
		t.Fatalf("EndDrag() after cancel error = %v", err)
	}
	s.Wait()
	if out.Kind != OutcomeNone {
		t.Errorf("Kind = %v, want OutcomeNone", out.Kind)
	}
	if len(mover.recorded()) != 0 {
		t.Error("cancelled drag sent a request")
	}
}

func TestEndDrag_CancelledContextStillDelivers(t *testing.T) {
	seq := mustSequence(t, abc())
	seq.Bind("42")
	mover := &fakeMover{}
	s := New(seq, &fakePresenter{}, mover)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := s.BeginDrag(0); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	if _, err := s.EndDrag(ctx, 1); err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	cancel()
	s.Wait()

	if len(mover.recorded()) != 1 {
		t.Errorf("got %d requests, want 1", len(mover.recorded()))
	}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
