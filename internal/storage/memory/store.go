// Package memory is a threadsafe in-memory RosterStore.
// State lives for the process lifetime only.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/storage"
)

type Store struct {
	locks *storage.KeyLocks

	mu   sync.RWMutex
	data map[domain.Key]domain.Roster
}

var _ core.RosterStore = (*Store)(nil)

func New() *Store {
	return &Store{
		locks: storage.NewKeyLocks(),
		data:  make(map[domain.Key]domain.Roster),
	}
}

func (s *Store) load(key domain.Key) (domain.Roster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[key]
	return r.Clone(), ok
}

func (s *Store) save(key domain.Key, r domain.Roster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = r
}

func (s *Store) Get(ctx context.Context, key domain.Key) (domain.Roster, error) {
	if err := ctx.Err(); err != nil {
		return domain.Roster{}, err
	}
	unlock := s.locks.Lock(key)
	defer unlock()

	r, ok := s.load(key)
	if !ok {
		r = domain.Roster{}
		s.save(key, r)
	}
	return r, nil
}

func (s *Store) Update(ctx context.Context, key domain.Key, fn core.Mutator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.Lock(key)
	defer unlock()

	cur, _ := s.load(key)
	next, commit, err := storage.Apply(key, cur, fn)
	if err != nil || !commit {
		return err
	}
	s.save(key, next)
	return nil
}

func (s *Store) Groups(ctx context.Context) ([]domain.GroupID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return groupsOf(s.data), nil
}

func (s *Store) Close() error { return nil }

// Put replaces the stored state without validation. Tests use it to plant
// broken rosters.
func (s *Store) Put(key domain.Key, r domain.Roster) {
	s.save(key, r.Clone())
}

func groupsOf(data map[domain.Key]domain.Roster) []domain.GroupID {
	seen := make(map[domain.GroupID]struct{})
	out := make([]domain.GroupID, 0, len(data))
	for k, r := range data {
		if r.Empty() {
			continue
		}
		if _, ok := seen[k.Group]; ok {
			continue
		}
		seen[k.Group] = struct{}{}
		out = append(out, k.Group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
