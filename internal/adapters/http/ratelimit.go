package http

import (
	"sync"
	"time"

	"github.com/dkeye/Rota/internal/domain"
)

type actorKey struct {
	group domain.GroupID
	actor domain.Identity
}

// ActorRateLimiter is a sliding-window limit on commands per actor per group.
type ActorRateLimiter struct {
	mu       sync.Mutex
	history  map[actorKey][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewActorRateLimiter(limit int, interval time.Duration) *ActorRateLimiter {
	return &ActorRateLimiter{
		history:  make(map[actorKey][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *ActorRateLimiter) Allow(group domain.GroupID, actor domain.Identity) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)
	k := actorKey{group, actor}

	attempts := rl.history[k]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[k] = fresh
		return false
	}
	rl.history[k] = append(fresh, now)
	rl.sweep(windowStart)
	return true
}

// sweep forgets actors with no attempts inside the window.
func (rl *ActorRateLimiter) sweep(windowStart time.Time) {
	if len(rl.history) < 1024 {
		return
	}
	for k, attempts := range rl.history {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(windowStart) {
			delete(rl.history, k)
		}
	}
}
