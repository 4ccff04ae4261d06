package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/charmbracelet/log"
)

// ErrUnknownEvent is returned for events without a registered handler.
var ErrUnknownEvent = errors.New("unknown event type")

// ErrStopped is returned when posting to a dispatcher that is not running.
var ErrStopped = errors.New("dispatcher stopped")

// Result is the outcome of a posted event.
type Result struct {
	Event any
	Value any
	Err   error
}

type envelope struct {
	event any
	reply chan Result // nil for Post
}

// Dispatcher runs event handlers one at a time on a single goroutine, in
// the order the events were posted.
type Dispatcher struct {
	handlers map[reflect.Type]func(context.Context, any) (any, error)
	queue    chan envelope
	results  chan Result
	done     chan struct{}
	logger   *log.Logger
}

// NewDispatcher creates a dispatcher. Register handlers with On before
// calling Run.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Dispatcher{
		handlers: make(map[reflect.Type]func(context.Context, any) (any, error)),
		queue:    make(chan envelope, 64),
		results:  make(chan Result, 64),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// On registers h for events of type E, replacing any earlier handler. The
// value h returns is delivered with the event's Result.
func On[E any](d *Dispatcher, h func(ctx context.Context, ev E) (any, error)) {
	t := reflect.TypeFor[E]()
	d.handlers[t] = func(ctx context.Context, ev any) (any, error) {
		return h(ctx, ev.(E))
	}
}

// Run processes events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-d.queue:
			res := d.handle(ctx, env.event)
			if env.reply != nil {
				env.reply <- res
				continue
			}
			select {
			case d.results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev any) Result {
	h, ok := d.handlers[reflect.TypeOf(ev)]
	if !ok {
		return Result{Event: ev, Err: fmt.Errorf("%w: %T", ErrUnknownEvent, ev)}
	}
	d.logger.Debug("handling event", "type", fmt.Sprintf("%T", ev))
	v, err := h(ctx, ev)
	if err != nil {
		d.logger.Debug("event failed", "type", fmt.Sprintf("%T", ev), "err", err)
	}
	return Result{Event: ev, Value: v, Err: err}
}

// Post queues ev. Its Result is delivered on Results.
func (d *Dispatcher) Post(ev any) error {
	if d.stopped() {
		return ErrStopped
	}
	select {
	case <-d.done:
		return ErrStopped
	case d.queue <- envelope{event: ev}:
		return nil
	}
}

// Dispatch queues ev and waits for its Result. Events posted earlier are
// handled first.
func (d *Dispatcher) Dispatch(ctx context.Context, ev any) (any, error) {
	if d.stopped() {
		return nil, ErrStopped
	}
	reply := make(chan Result, 1)
	select {
	case <-d.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	case d.queue <- envelope{event: ev, reply: reply}:
	}

	select {
	case res := <-reply:
		return res.Value, res.Err
	case <-d.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Dispatcher) stopped() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Results delivers the outcome of every posted event.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Done is closed when Run returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}
