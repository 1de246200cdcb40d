package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/telemetry"
)

type Op string

const (
	OpJoin    Op = "join"
	OpLeave   Op = "leave"
	OpAdvance Op = "advance"
	OpRender  Op = "render"
	OpBind    Op = "bind"
)

// Engine drives the rotation transitions through the store. Each call is
// exactly one load → mutate → store cycle on one key.
type Engine struct {
	Store core.RosterStore
}

func NewEngine(store core.RosterStore) *Engine {
	return &Engine{Store: store}
}

// transition is a pure step applied to the loaded roster.
type transition func(domain.Roster) (domain.Roster, core.Outcome)

// cycle commits only when the outcome changed the roster. It returns the
// outcome of the run that was committed (or the last run for stores that
// retry) and the resulting roster.
func (e *Engine) cycle(ctx context.Context, op Op, key domain.Key, step transition) (core.Outcome, domain.Roster, error) {
	start := time.Now()
	var (
		out    core.Outcome
		result domain.Roster
	)
	err := e.Store.Update(ctx, key, func(cur domain.Roster) (domain.Roster, bool, error) {
		next, o := step(cur)
		out = o
		if !o.Result.Changed() {
			result = cur
			return cur, false, nil
		}
		result = next
		return next, true, nil
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	telemetry.StoreCycle.WithLabelValues(string(op), status).Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error().Err(err).Str("module", "app.engine").Str("op", string(op)).Str("key", key.String()).Msg("cycle failed")
		return core.Outcome{}, domain.Roster{}, err
	}
	telemetry.Transitions.WithLabelValues(string(key.Kind), string(op), string(out.Result)).Inc()
	log.Debug().Str("module", "app.engine").Str("op", string(op)).Str("key", key.String()).
		Str("result", string(out.Result)).Int("cursor", result.Cursor).Int("members", result.Len()).Msg("cycle done")
	return out, result, nil
}

func (e *Engine) Join(ctx context.Context, key domain.Key, m domain.Member) (core.Outcome, domain.Roster, error) {
	return e.cycle(ctx, OpJoin, key, func(r domain.Roster) (domain.Roster, core.Outcome) {
		return core.Join(r, m)
	})
}

func (e *Engine) Leave(ctx context.Context, key domain.Key, id domain.Identity) (core.Outcome, domain.Roster, error) {
	return e.cycle(ctx, OpLeave, key, func(r domain.Roster) (domain.Roster, core.Outcome) {
		return core.Leave(r, id)
	})
}

func (e *Engine) Advance(ctx context.Context, key domain.Key, caller domain.Identity) (core.Outcome, domain.Roster, error) {
	return e.cycle(ctx, OpAdvance, key, func(r domain.Roster) (domain.Roster, core.Outcome) {
		return core.Advance(r, caller)
	})
}

func (e *Engine) Bind(ctx context.Context, key domain.Key, announcementID string) (core.Outcome, domain.Roster, error) {
	return e.cycle(ctx, OpBind, key, func(r domain.Roster) (domain.Roster, core.Outcome) {
		return core.Bind(r, announcementID)
	})
}

// Show loads the roster for display, creating it when absent.
func (e *Engine) Show(ctx context.Context, key domain.Key) (domain.Roster, error) {
	r, err := e.Store.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("module", "app.engine").Str("key", key.String()).Msg("load failed")
		return domain.Roster{}, err
	}
	telemetry.Transitions.WithLabelValues(string(key.Kind), string(OpRender), string(core.Shown)).Inc()
	return r, nil
}
