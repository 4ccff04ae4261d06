package playlists

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps playlists in memory (for development/testing).
type MemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	playlists map[int64]*Playlist
	tracks    map[int64][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		playlists: make(map[int64]*Playlist),
		tracks:    make(map[int64][]string),
	}
}

func (m *MemoryStore) CreatePlaylist(_ context.Context, p *Playlist, trackIDs []string) error {
	if id, ok := FirstDuplicate(trackIDs); ok {
		return DuplicateError(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := time.Now()
	p.ID = m.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	p.TrackCount = len(trackIDs)

	stored := *p
	m.playlists[p.ID] = &stored
	m.tracks[p.ID] = slices.Clone(trackIDs)
	return nil
}

func (m *MemoryStore) GetPlaylist(_ context.Context, id int64) (*Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.playlists[id]
	if !ok {
		return nil, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	out := *p
	out.TrackCount = len(m.tracks[id])
	return &out, nil
}

func (m *MemoryStore) ListPlaylists(_ context.Context, owner string) ([]Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Playlist
	for id, p := range m.playlists {
		if p.Owner != owner {
			continue
		}
		cp := *p
		cp.TrackCount = len(m.tracks[id])
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b Playlist) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *MemoryStore) UpdatePlaylist(_ context.Context, p *Playlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.playlists[p.ID]
	if !ok {
		return fmt.Errorf("playlist %d: %w", p.ID, ErrNotFound)
	}
	stored.Name = p.Name
	stored.Description = p.Description
	stored.Public = p.Public
	stored.SpotifyID = p.SpotifyID
	stored.UpdatedAt = time.Now()
	p.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryStore) DeletePlaylist(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.playlists[id]; !ok {
		return fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	delete(m.playlists, id)
	delete(m.tracks, id)
	return nil
}

func (m *MemoryStore) TrackIDs(_ context.Context, id int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.playlists[id]; !ok {
		return nil, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	return slices.Clone(m.tracks[id]), nil
}

func (m *MemoryStore) AppendTracks(_ context.Context, id int64, trackIDs []string) error {
	return m.mutate(id, func(ids []string) ([]string, error) {
		return append(ids, trackIDs...), nil
	})
}

func (m *MemoryStore) InsertTrack(_ context.Context, id int64, trackID string, index int) error {
	return m.mutate(id, func(ids []string) ([]string, error) {
		if index < 0 || index > len(ids) {
			return nil, fmt.Errorf("%w: insert at %d with %d tracks", ErrInvalidIndex, index, len(ids))
		}
		return slices.Insert(ids, index, trackID), nil
	})
}

func (m *MemoryStore) MoveTrack(_ context.Context, id int64, currentIndex, newIndex int) error {
	return m.mutate(id, func(ids []string) ([]string, error) {
		return MoveIndex(ids, currentIndex, newIndex)
	})
}

func (m *MemoryStore) RemoveTrack(_ context.Context, id int64, trackID string) error {
	return m.mutate(id, func(ids []string) ([]string, error) {
		idx := slices.Index(ids, trackID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrTrackMissing, trackID)
		}
		return slices.Delete(ids, idx, idx+1), nil
	})
}

func (m *MemoryStore) ReplaceTracks(_ context.Context, id int64, trackIDs []string) error {
	return m.mutate(id, func([]string) ([]string, error) {
		return slices.Clone(trackIDs), nil
	})
}

// mutate applies fn to a copy of the playlist's track IDs and stores the
// result if fn succeeds and no track repeats.
func (m *MemoryStore) mutate(id int64, fn func([]string) ([]string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.playlists[id]
	if !ok {
		return fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	next, err := fn(slices.Clone(m.tracks[id]))
	if err != nil {
		return err
	}
	if dup, ok := FirstDuplicate(next); ok {
		return DuplicateError(dup)
	}
	m.tracks[id] = next
	p.UpdatedAt = time.Now()
	return nil
}

// MoveIndex returns ids with the element at currentIndex moved to newIndex.
// Both indices refer to positions before the move.
func MoveIndex(ids []string, currentIndex, newIndex int) ([]string, error) {
	n := len(ids)
	if currentIndex < 0 || currentIndex >= n || newIndex < 0 || newIndex >= n {
		return nil, fmt.Errorf("%w: move %d -> %d with %d tracks", ErrInvalidIndex, currentIndex, newIndex, n)
	}
	out := slices.Clone(ids)
	if currentIndex == newIndex {
		return out, nil
	}
	id := out[currentIndex]
	out = slices.Delete(out, currentIndex, currentIndex+1)
	return slices.Insert(out, newIndex, id), nil
}

var _ Store = (*MemoryStore)(nil)
