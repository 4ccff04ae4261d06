// Package reorder keeps a client-side ordered track list in step with its
// playlist when the user reorders it by dragging.
package reorder

import (
	"fmt"
	"slices"
	"sync"
)

// Item is one entry of a Sequence.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Sequence is an ordered list of items with unique IDs.
// A sequence is Unbound until Bind associates it with a remote playlist.
// All methods are safe for concurrent use.
type Sequence struct {
	mu         sync.RWMutex
	items      []Item
	playlistID string
}

// NewSequence creates an unbound sequence holding a copy of items.
func NewSequence(items []Item) (*Sequence, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	return &Sequence{items: slices.Clone(items)}, nil
}

// Len returns the number of items.
func (s *Sequence) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of the items in order.
func (s *Sequence) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Bound reports whether the sequence has a remote playlist.
func (s *Sequence) Bound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playlistID != ""
}

// PlaylistID returns the remote playlist ID, or "" when unbound.
func (s *Sequence) PlaylistID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playlistID
}

// Bind associates the sequence with a remote playlist.
func (s *Sequence) Bind(playlistID string) {
	s.mu.Lock()
	s.playlistID = playlistID
	s.mu.Unlock()
}

// Append adds items to the end of the sequence.
// Returns ErrDuplicateID if any ID is already present; the sequence is unchanged.
func (s *Sequence) Append(items ...Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(slices.Clone(s.items), items...)
	if err := validateItems(next); err != nil {
		return err
	}
	s.items = next
	return nil
}

// Remove deletes the item with the given ID and returns its former index.
// Returns false if no item has that ID.
func (s *Sequence) Remove(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.items, func(it Item) bool { return it.ID == id })
	if idx < 0 {
		return -1, false
	}
	s.items = slices.Delete(s.items, idx, idx+1)
	return idx, true
}

// Move moves the item at index from to index to.
// Both indices refer to positions before the move is applied.
func (s *Sequence) Move(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d with %d items", ErrInvalidIndex, from, to, n)
	}
	if from == to {
		return nil
	}

	item := s.items[from]
	s.items = slices.Delete(s.items, from, from+1)
	s.items = slices.Insert(s.items, to, item)
	return nil
}

// Replace swaps the whole content of the sequence.
// On error the previous content is kept.
func (s *Sequence) Replace(items []Item) error {
	if err := validateItems(items); err != nil {
		return err
	}

	s.mu.Lock()
	s.items = slices.Clone(items)
	s.mu.Unlock()
	return nil
}

// validateItems checks that every item has a non-empty, unique ID.
func validateItems(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.ID == "" {
			return fmt.Errorf("%w: item %d has no ID", ErrInvalidItem, i)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}
