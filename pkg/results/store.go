package results

import (
	"context"
	"sort"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"

	"github.com/mpapenbr/racelink/pkg/repository"
)

// Store persists race results
type Store interface {
	Save(ctx context.Context, race *Race) error
	SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error
	Latest(ctx context.Context, limit int) ([]*Race, error)
}

type PgStore struct {
	db bob.DB
	tx *repository.TxManager
}

var _ Store = (*PgStore)(nil)

func NewPgStore(db bob.DB) *PgStore {
	return &PgStore{db: db, tx: repository.NewTxManager(db)}
}

// Save stores race and entries in one transaction
func (s *PgStore) Save(ctx context.Context, race *Race) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return Create(ctx, s.executor(ctx), race)
	})
}

func (s *PgStore) SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error {
	return UpdateFeedback(ctx, s.executor(ctx), id, feedback)
}

func (s *PgStore) Latest(ctx context.Context, limit int) ([]*Race, error) {
	return Latest(ctx, s.executor(ctx), limit)
}

func (s *PgStore) executor(ctx context.Context) bob.Executor {
	return repository.Executor(ctx, s.db)
}

// MemoryStore keeps results in process, used when no database is configured
type MemoryStore struct {
	mu    sync.RWMutex
	races map[uuid.UUID]*Race
	max   int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore keeps at most max races, dropping the oldest
func NewMemoryStore(maxRaces int) *MemoryStore {
	return &MemoryStore{races: map[uuid.UUID]*Race{}, max: maxRaces}
}

func (s *MemoryStore) Save(_ context.Context, race *Race) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *race
	s.races[race.ID] = &cp
	if s.max > 0 && len(s.races) > s.max {
		sorted := s.sorted()
		for _, r := range sorted[s.max:] {
			delete(s.races, r.ID)
		}
	}
	return nil
}

func (s *MemoryStore) SetFeedback(_ context.Context, id uuid.UUID, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.races[id]
	if !ok {
		return ErrNotFound
	}
	r.Feedback = feedback
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, limit int) ([]*Race, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sorted := s.sorted()
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	ret := make([]*Race, len(sorted))
	for i, r := range sorted {
		cp := *r
		ret[i] = &cp
	}
	return ret, nil
}

// sorted returns the races newest first, caller holds the lock
func (s *MemoryStore) sorted() []*Race {
	ret := make([]*Race, 0, len(s.races))
	for _, r := range s.races {
		ret = append(ret, r)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].FinishedAt.After(ret[j].FinishedAt)
	})
	return ret
}
