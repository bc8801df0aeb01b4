// Package lobbylist publishes the room browser entries of a relay instance
// so that they can be listed across instances.
package lobbylist

import (
	"context"
	"sort"
	"sync"

	"github.com/mpapenbr/racelink/log"
	"github.com/mpapenbr/racelink/pkg/model"
)

// Store keeps the lobby entries of all instances
type Store interface {
	// Publish replaces the entries of this instance
	Publish(ctx context.Context, entries []model.LobbyEntry) error
	// List returns the entries of all instances, oldest room first
	List(ctx context.Context) ([]model.LobbyEntry, error)
}

// Feed publishes every update received from updates until the channel is
// closed or ctx is done.
func Feed(ctx context.Context, updates <-chan []model.LobbyEntry, s Store) {
	logger := log.Default().Named("lobbylist")
	for {
		select {
		case <-ctx.Done():
			return
		case entries, ok := <-updates:
			if !ok {
				logger.Debug("lobby updates closed")
				return
			}
			if err := s.Publish(ctx, entries); err != nil {
				logger.Warn("could not publish lobby", log.ErrorField(err))
			}
		}
	}
}

func sortEntries(entries []model.LobbyEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

// MemoryStore is the single instance store
type MemoryStore struct {
	mu      sync.RWMutex
	entries []model.LobbyEntry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Publish(_ context.Context, entries []model.LobbyEntry) error {
	cp := append([]model.LobbyEntry(nil), entries...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = cp
	return nil
}

func (m *MemoryStore) List(context.Context) ([]model.LobbyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := append([]model.LobbyEntry(nil), m.entries...)
	sortEntries(ret)
	return ret, nil
}
