// Package storage holds helpers shared by the RosterStore implementations.
package storage

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/telemetry"
)

// KeyLocks hands out one mutex per roster key. Entries are reference counted
// and dropped once nobody holds or waits for them.
type KeyLocks struct {
	mu    sync.Mutex
	locks map[domain.Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyLocks() *KeyLocks {
	return &KeyLocks{locks: make(map[domain.Key]*keyLock)}
}

// Lock blocks until the caller owns key and returns the matching unlock.
func (l *KeyLocks) Lock(key domain.Key) (unlock func()) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len reports how many keys currently have a lock entry.
func (l *KeyLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Apply runs fn against a private copy of current and checks the result
// before the caller writes it. The loaded state is validated first so a
// key holding broken state is never written over.
func Apply(key domain.Key, current domain.Roster, fn core.Mutator) (domain.Roster, bool, error) {
	if err := current.Validate(); err != nil {
		log.Error().Err(err).Str("module", "storage").Str("key", key.String()).Msg("refusing to mutate inconsistent roster")
		return domain.Roster{}, false, fmt.Errorf("load %s: %w", key, err)
	}
	next, commit, err := fn(current.Clone())
	if err != nil || !commit {
		return domain.Roster{}, false, err
	}
	if next.Empty() {
		next.Cursor = 0
	}
	if err := next.Validate(); err != nil {
		return domain.Roster{}, false, fmt.Errorf("store %s: %w", key, err)
	}
	return next.Clone(), true, nil
}

// Corrupt records a record that could not be parsed and was reset to empty.
func Corrupt(driver, where string, err error) {
	telemetry.StoreCorruption.WithLabelValues(driver).Inc()
	log.Error().Err(err).Str("module", "storage").Str("driver", driver).Str("record", where).
		Msg("persisted state unreadable, treating as empty")
}
