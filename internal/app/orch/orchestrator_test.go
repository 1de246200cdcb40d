package orch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Rota/internal/announce"
	"github.com/dkeye/Rota/internal/app"
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

func newTestOrchestrator(t *testing.T) (*Orchestrator, *recorder) {
	t.Helper()
	f, err := announce.New("en")
	require.NoError(t, err)
	rec := &recorder{}
	return &Orchestrator{
		Engine:    app.NewEngine(memory.New()),
		Formatter: f,
		Publisher: rec,
		Topics: map[domain.Kind]announce.Topic{
			"milk":   {Title: "🥛 Milk queue", Emoji: "🥛"},
			"coffee": {Title: "☕ Coffee machine queue", Emoji: "☕"},
		},
	}, rec
}

func handle(t *testing.T, o *Orchestrator, op app.Op, kind string, id domain.Identity, name string) Reply {
	t.Helper()
	r, err := o.Handle(context.Background(), Event{Group: -7, Kind: kind, Op: op, Actor: Actor{ID: id, DisplayName: name}})
	require.NoError(t, err)
	return r
}

func TestRotationFlow(t *testing.T) {
	o, rec := newTestOrchestrator(t)

	r := handle(t, o, app.OpJoin, "milk", 1, "@alice")
	assert.Equal(t, core.Joined, r.Result)
	r = handle(t, o, app.OpJoin, "milk", 2, "@bob")
	assert.Equal(t, "🥛 Milk queue\n1. @alice ← current\n2. @bob", r.Listing)

	r = handle(t, o, app.OpAdvance, "milk", 2, "@bob")
	assert.Equal(t, core.NotYourTurn, r.Result)
	assert.Equal(t, "Not your turn! It is @alice's turn.", r.Message)

	r = handle(t, o, app.OpAdvance, "milk", 1, "@alice")
	require.Equal(t, core.Advanced, r.Result)
	assert.Equal(t, "@alice", r.Outgoing.DisplayName)
	assert.Equal(t, "@bob", r.Incoming.DisplayName)
	assert.Contains(t, r.Message, "@bob")
	assert.Equal(t, "🥛 Milk queue\n1. @bob ← current\n2. @alice", r.Listing)

	// coffee is a separate rotation
	r = handle(t, o, app.OpRender, "coffee", 0, "")
	assert.Equal(t, core.Shown, r.Result)
	assert.Equal(t, "☕ Coffee machine queue\n— queue is empty.", r.Message)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	types := make([]string, 0, len(rec.got))
	for _, a := range rec.got {
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{core.AnnounceJoined, core.AnnounceJoined, core.AnnounceAdvanced}, types)
	assert.Equal(t, domain.Kind("milk"), rec.got[2].Kind)
	assert.NotEmpty(t, rec.got[2].Text)
}

func TestLeaveHandsOverTurn(t *testing.T) {
	o, rec := newTestOrchestrator(t)
	handle(t, o, app.OpJoin, "milk", 1, "@alice")
	handle(t, o, app.OpJoin, "milk", 2, "@bob")

	r := handle(t, o, app.OpLeave, "milk", 1, "@alice")
	require.Equal(t, core.Left, r.Result)
	assert.Equal(t, "@bob", r.Incoming.DisplayName)
	assert.Equal(t, "👋 You left the 🥛 Milk queue. ➡️ @bob, it is your turn now.", r.Message)

	r = handle(t, o, app.OpLeave, "milk", 1, "@alice")
	assert.Equal(t, core.NotMember, r.Result)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.got, 3)
	assert.Equal(t, core.AnnounceLeft, rec.got[2].Type)
}

func TestBindTravelsWithListing(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	handle(t, o, app.OpJoin, "milk", 1, "@alice")

	r, err := o.Handle(context.Background(), Event{Group: -7, Kind: "milk", Op: app.OpBind, AnnouncementID: "42"})
	require.NoError(t, err)
	assert.Equal(t, core.Bound, r.Result)

	r = handle(t, o, app.OpRender, "milk", 0, "")
	assert.Equal(t, "42", r.AnnouncementID)
}

func TestHandleRejectsBadInput(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := o.Handle(ctx, Event{Group: 1, Kind: "tea", Op: app.OpJoin, Actor: Actor{ID: 1, DisplayName: "a"}})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = o.Handle(ctx, Event{Group: 1, Kind: "Milk!", Op: app.OpJoin, Actor: Actor{ID: 1, DisplayName: "a"}})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = o.Handle(ctx, Event{Group: 1, Kind: "milk", Op: app.OpAdvance})
	assert.ErrorIs(t, err, domain.ErrIdentityZero)

	_, err = o.Handle(ctx, Event{Group: 1, Kind: "milk", Op: app.OpJoin, Actor: Actor{ID: 1}})
	assert.ErrorIs(t, err, domain.ErrDisplayNameEmpty)

	_, err = o.Handle(ctx, Event{Group: 1, Kind: "milk", Op: "dance", Actor: Actor{ID: 1}})
	assert.Error(t, err)
}
