package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/justestif/go-tuttitracks/internal/features"
)

// MemoryStore keeps tracks in memory (for development/testing).
type MemoryStore struct {
	mu     sync.RWMutex
	tracks map[string]features.Track
}

// NewMemoryStore creates an empty in-memory track store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tracks: make(map[string]features.Track)}
}

func (m *MemoryStore) UpsertTracks(_ context.Context, tracks []features.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tracks {
		if t.Audio == nil {
			if old, ok := m.tracks[t.ID]; ok {
				t.Audio = old.Audio
			}
		}
		m.tracks[t.ID] = t
	}
	return nil
}

func (m *MemoryStore) GetTrack(_ context.Context, id string) (*features.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tracks[id]
	if !ok {
		return nil, fmt.Errorf("track %s: %w", id, ErrTrackNotFound)
	}
	return &t, nil
}

func (m *MemoryStore) GetTracks(_ context.Context, ids []string) ([]features.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]features.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.tracks[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryStore) SetFeatures(_ context.Context, id string, audio features.Audio) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tracks[id]
	if !ok {
		return fmt.Errorf("track %s: %w", id, ErrTrackNotFound)
	}
	t.Audio = &audio
	m.tracks[id] = t
	return nil
}

func (m *MemoryStore) MissingFeatures(_ context.Context, ids []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var missing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if t, ok := m.tracks[id]; !ok || t.Audio == nil {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

var _ TrackStore = (*MemoryStore)(nil)
