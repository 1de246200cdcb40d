package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Rota/internal/app"
	"github.com/dkeye/Rota/internal/config"
	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/storage/memory"
)

type recorder struct {
	mu  sync.Mutex
	got []core.Announcement
}

func (r *recorder) Publish(a core.Announcement) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, a)
	return 1
}

func (r *recorder) all() []core.Announcement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Announcement(nil), r.got...)
}

func minsk(t *testing.T) config.Schedule {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Minsk")
	require.NoError(t, err)
	return config.Schedule{Weekday: time.Monday, Hour: 8, Minute: 0, Location: loc}
}

func TestNextGreeting(t *testing.T) {
	s := minsk(t)
	// Wednesday 2026-10-14 12:00 Minsk
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, s.Location)
	assert.Equal(t, time.Date(2026, 10, 19, 8, 0, 0, 0, s.Location), app.Next(now, s))

	// Monday before eight fires the same day
	now = time.Date(2026, 10, 19, 7, 59, 0, 0, s.Location)
	assert.Equal(t, time.Date(2026, 10, 19, 8, 0, 0, 0, s.Location), app.Next(now, s))

	// exactly at eight moves to next week
	now = time.Date(2026, 10, 19, 8, 0, 0, 0, s.Location)
	assert.Equal(t, time.Date(2026, 10, 26, 8, 0, 0, 0, s.Location), app.Next(now, s))

	// input in another zone
	now = time.Date(2026, 10, 19, 4, 30, 0, 0, time.UTC) // 07:30 Minsk
	assert.Equal(t, time.Date(2026, 10, 19, 8, 0, 0, 0, s.Location), app.Next(now, s))
}

func TestWeekIndexAdvancesByOne(t *testing.T) {
	s := minsk(t)
	first := time.Date(2026, 10, 19, 8, 0, 0, 0, s.Location)
	second := app.Next(first, s)
	assert.Equal(t, app.WeekIndex(first)+1, app.WeekIndex(second))
}

func TestFirePublishesToKnownGroups(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	for _, g := range []domain.GroupID{-2, -1} {
		require.NoError(t, store.Update(ctx, domain.Key{Group: g, Kind: "milk"}, func(cur domain.Roster) (domain.Roster, bool, error) {
			next, out := core.Join(cur, domain.Member{ID: 1, DisplayName: "A"})
			return next, out.Result.Changed(), nil
		}))
	}
	_, err := store.Get(ctx, domain.Key{Group: -3, Kind: "milk"})
	require.NoError(t, err)
	rec := &recorder{}
	g := &app.Greeter{
		Groups:    store,
		Publisher: rec,
		Phrase:    func(week int) string { return "wish" },
		Schedule:  minsk(t),
	}

	n := g.Fire(ctx, time.Now())
	assert.Equal(t, 2, n)
	got := rec.all()
	require.Len(t, got, 2)
	assert.Equal(t, domain.GroupID(-2), got[0].Group)
	assert.Equal(t, core.AnnounceGreeting, got[0].Type)
	assert.Equal(t, "wish", got[1].Text)
}

func TestRunStopsWithContext(t *testing.T) {
	g := &app.Greeter{
		Groups:    memory.New(),
		Publisher: &recorder{},
		Phrase:    func(int) string { return "" },
		Schedule:  minsk(t),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("greeter did not stop")
	}
}
