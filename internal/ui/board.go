package ui

import (
	"slices"
	"sync"

	"github.com/justestif/go-tuttitracks/internal/reorder"
)

var _ reorder.Presenter = (*Board)(nil)

// Board is the track order as drawn on screen. It moves ahead of the
// session while a track is being dragged, and the session reads it back
// when an unbound playlist is rebuilt.
type Board struct {
	mu    sync.Mutex
	items []reorder.Item
}

// NewBoard creates a board showing items.
func NewBoard(items []reorder.Item) *Board {
	return &Board{items: slices.Clone(items)}
}

// PresentedOrder returns the order on screen.
func (b *Board) PresentedOrder() ([]reorder.Item, error) {
	return b.Items(), nil
}

// Items returns a copy of the board.
func (b *Board) Items() []reorder.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

// Len returns the number of tracks shown.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Set replaces the board.
func (b *Board) Set(items []reorder.Item) {
	b.mu.Lock()
	b.items = slices.Clone(items)
	b.mu.Unlock()
}

// Swap exchanges two neighbouring rows. Out-of-range indices are ignored.
func (b *Board) Swap(i, j int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || j < 0 || i >= len(b.items) || j >= len(b.items) {
		return false
	}
	b.items[i], b.items[j] = b.items[j], b.items[i]
	return true
}
