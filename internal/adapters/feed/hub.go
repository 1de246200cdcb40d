// Package feed fans committed roster announcements out to WebSocket
// subscribers of a group.
package feed

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/telemetry"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Subscriber is the transport end of one feed connection.
// Owned by the adapter; the hub only calls Close on slow subscribers.
type Subscriber interface {
	TrySend([]byte) error
	Close()
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[domain.GroupID]map[Subscriber]struct{}
	policy Policy
}

func NewHub() *Hub {
	return NewHubWithPolicy(KickPolicy{})
}

func NewHubWithPolicy(p Policy) *Hub {
	if p == nil {
		p = KickPolicy{}
	}
	return &Hub{subs: make(map[domain.GroupID]map[Subscriber]struct{}), policy: p}
}

func (h *Hub) Subscribe(group domain.GroupID, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[group]
	if !ok {
		set = make(map[Subscriber]struct{})
		h.subs[group] = set
	}
	if _, dup := set[s]; !dup {
		set[s] = struct{}{}
		telemetry.FeedSubscribers.Inc()
	}
	log.Info().Str("module", "feed").Int64("group", int64(group)).Int("subscribers", len(set)).Msg("subscribed")
}

func (h *Hub) Unsubscribe(group domain.GroupID, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[group]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	telemetry.FeedSubscribers.Dec()
	if len(set) == 0 {
		delete(h.subs, group)
	}
	log.Info().Str("module", "feed").Int64("group", int64(group)).Msg("unsubscribed")
}

// Count returns the number of subscribers of group.
func (h *Hub) Count(group domain.GroupID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[group])
}

var _ core.Publisher = (*Hub)(nil)

// Publish delivers ev to every subscriber of ev.Group and returns how many
// accepted it. Subscribers whose buffer is full are handled by the hub's
// Policy.
func (h *Hub) Publish(ev core.Announcement) int {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "feed").Msg("marshal event")
		return 0
	}

	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subs[ev.Group]))
	for s := range h.subs[ev.Group] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	sent := 0
	var dropped []Subscriber
	for _, s := range targets {
		if err := s.TrySend(data); err != nil {
			if errors.Is(err, ErrClosed) || h.policy.OnBackPressure(ev.Group, s) == KickSubscriber {
				dropped = append(dropped, s)
			}
			continue
		}
		sent++
	}
	for _, s := range dropped {
		h.Unsubscribe(ev.Group, s)
		s.Close()
		telemetry.FeedDropped.Inc()
	}
	log.Debug().Str("module", "feed").Int64("group", int64(ev.Group)).Str("type", ev.Type).
		Int("sent_to", sent).Int("dropped", len(dropped)).Msg("publish result")
	return sent
}
