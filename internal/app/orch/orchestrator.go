package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/announce"
	"github.com/dkeye/Rota/internal/app"
	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
)

var ErrUnknownKind = errors.New("unknown roster kind")

// Actor is the platform user behind an inbound event.
type Actor struct {
	ID          domain.Identity
	DisplayName string
}

// Event is one inbound request resolved to a roster and an actor.
type Event struct {
	Group domain.GroupID
	Kind  string
	Actor Actor
	Op    app.Op
	// AnnouncementID is only read for app.OpBind.
	AnnouncementID string
}

// Reply is everything an adapter needs to answer the actor and, on
// success, to update the posted listing.
type Reply struct {
	Result         core.Result    `json:"result"`
	Message        string         `json:"message"`
	Listing        string         `json:"listing,omitempty"`
	AnnouncementID string         `json:"announcement_id,omitempty"`
	Outgoing       *domain.Member `json:"outgoing,omitempty"`
	Incoming       *domain.Member `json:"incoming,omitempty"`
	Current        *domain.Member `json:"current,omitempty"`
}

type Orchestrator struct {
	Engine    *app.Engine
	Formatter announce.Formatter
	Publisher core.Publisher
	Topics    map[domain.Kind]announce.Topic
}

func (o *Orchestrator) resolve(group domain.GroupID, kind string) (domain.Key, announce.Topic, error) {
	key, err := domain.NewKey(group, kind)
	if err != nil {
		return domain.Key{}, announce.Topic{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	topic, ok := o.Topics[key.Kind]
	if !ok {
		return domain.Key{}, announce.Topic{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return key, topic, nil
}

// Handle applies one event. Expected refusals (already a member, not your
// turn, ...) come back as Reply.Result with a nil error; errors are reserved
// for bad input and store faults.
func (o *Orchestrator) Handle(ctx context.Context, ev Event) (Reply, error) {
	key, topic, err := o.resolve(ev.Group, ev.Kind)
	if err != nil {
		return Reply{}, err
	}
	if ev.Op != app.OpRender && ev.Op != app.OpBind && ev.Actor.ID == 0 {
		return Reply{}, domain.ErrIdentityZero
	}

	var (
		out    core.Outcome
		roster domain.Roster
	)
	switch ev.Op {
	case app.OpJoin:
		m, merr := domain.NewMember(ev.Actor.ID, ev.Actor.DisplayName)
		if merr != nil {
			return Reply{}, merr
		}
		out, roster, err = o.Engine.Join(ctx, key, m)
	case app.OpLeave:
		out, roster, err = o.Engine.Leave(ctx, key, ev.Actor.ID)
	case app.OpAdvance:
		out, roster, err = o.Engine.Advance(ctx, key, ev.Actor.ID)
	case app.OpBind:
		out, roster, err = o.Engine.Bind(ctx, key, ev.AnnouncementID)
	case app.OpRender:
		roster, err = o.Engine.Show(ctx, key)
		out = core.Outcome{Result: core.Shown}
	default:
		return Reply{}, fmt.Errorf("unsupported op %q", ev.Op)
	}
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Result:         out.Result,
		Listing:        o.Formatter.Listing(topic, roster),
		AnnouncementID: roster.AnnouncementID,
		Outgoing:       out.Outgoing,
		Incoming:       out.Incoming,
		Current:        out.Current,
	}
	if out.Result == core.Shown {
		reply.Message = reply.Listing
	} else {
		reply.Message = o.Formatter.Reply(topic, out)
	}

	log.Info().Str("module", "app.orch").Str("key", key.String()).Str("op", string(ev.Op)).
		Int64("actor", int64(ev.Actor.ID)).Str("result", string(out.Result)).Msg("event handled")

	o.announce(key, out, reply)
	return reply, nil
}

// announce runs after the store committed; a lost announcement never rolls
// the transition back.
func (o *Orchestrator) announce(key domain.Key, out core.Outcome, reply Reply) {
	if o.Publisher == nil {
		return
	}
	a := core.Announcement{
		Group:          key.Group,
		Kind:           key.Kind,
		Listing:        reply.Listing,
		AnnouncementID: reply.AnnouncementID,
		Outgoing:       out.Outgoing,
		Incoming:       out.Incoming,
	}
	switch out.Result {
	case core.Joined:
		a.Type = core.AnnounceJoined
	case core.Left:
		a.Type = core.AnnounceLeft
	case core.Advanced:
		a.Type = core.AnnounceAdvanced
		a.Text = reply.Message
	default:
		return
	}
	o.Publisher.Publish(a)
}
