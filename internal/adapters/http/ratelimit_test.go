package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActorRateLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewActorRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow(1, 10))
	assert.True(t, rl.Allow(1, 10))
	assert.False(t, rl.Allow(1, 10))

	assert.True(t, rl.Allow(2, 10), "other group has its own window")
	assert.True(t, rl.Allow(1, 11), "other actor has its own window")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow(1, 10))
}

func TestActorRateLimiterDisabled(t *testing.T) {
	var rl *ActorRateLimiter
	assert.True(t, rl.Allow(1, 1))

	rl = NewActorRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow(1, 1))
	}
}
