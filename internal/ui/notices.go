package ui

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-tuttitracks/internal/reorder"
)

var _ reorder.Notifier = (*Notices)(nil)

const noticeBuffer = 16

// Notices carries failures of background move requests to the UI.
type Notices struct {
	ch     chan error
	logger *log.Logger
}

// NewNotices creates a buffered notice queue. Notices that do not fit are
// logged to logger and dropped.
func NewNotices(logger *log.Logger) *Notices {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Notices{ch: make(chan error, noticeBuffer), logger: logger}
}

// Notify queues err without blocking.
func (n *Notices) Notify(err error) {
	select {
	case n.ch <- err:
	default:
		n.logger.Warn("notice dropped, queue full", "err", err, "queued", len(n.ch))
	}
}

// C delivers queued notices.
func (n *Notices) C() <-chan error {
	return n.ch
}
