package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/config"
	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
)

const week = 7 * 24 * time.Hour

// GroupLister is the part of the store the greeter needs.
type GroupLister interface {
	Groups(ctx context.Context) ([]domain.GroupID, error)
}

// Greeter posts a weekly wish to every group with a non-empty roster. The wish is
// chosen by the number of whole weeks since the Unix epoch, so the rotation
// survives restarts without persisted state.
type Greeter struct {
	Groups    GroupLister
	Publisher core.Publisher
	Phrase    func(week int) string
	Schedule  config.Schedule
	Now       func() time.Time
}

// Next returns the first scheduled instant strictly after now.
func Next(now time.Time, s config.Schedule) time.Time {
	local := now.In(s.Location)
	days := (int(s.Weekday) - int(local.Weekday()) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day()+days, s.Hour, s.Minute, 0, 0, s.Location)
	if !candidate.After(local) {
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day()+7, s.Hour, s.Minute, 0, 0, s.Location)
	}
	return candidate
}

// WeekIndex numbers weeks since the Unix epoch.
func WeekIndex(t time.Time) int {
	return int(t.Unix() / int64(week/time.Second))
}

// Run blocks until ctx is done, firing once per scheduled instant.
func (g *Greeter) Run(ctx context.Context) {
	now := g.now()
	for {
		at := Next(now, g.Schedule)
		log.Info().Str("module", "app.greeter").Time("next", at).Msg("greeting scheduled")
		timer := time.NewTimer(at.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Str("module", "app.greeter").Msg("greeter stopped")
			return
		case <-timer.C:
		}
		g.Fire(ctx, at)
		now = at
	}
}

// Fire sends the greeting for instant at to every known group and returns
// how many groups it was published to.
func (g *Greeter) Fire(ctx context.Context, at time.Time) int {
	groups, err := g.Groups.Groups(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "app.greeter").Msg("list groups")
		return 0
	}
	text := g.Phrase(WeekIndex(at))
	for _, group := range groups {
		g.Publisher.Publish(core.Announcement{Type: core.AnnounceGreeting, Group: group, Text: text})
	}
	log.Info().Str("module", "app.greeter").Int("groups", len(groups)).Msg("greeting sent")
	return len(groups)
}

func (g *Greeter) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
