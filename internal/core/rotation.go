package core

import "github.com/dkeye/Rota/internal/domain"

// Result tags the outcome of a single transition.
type Result string

const (
	Joined        Result = "joined"
	AlreadyMember Result = "already_member"
	Left          Result = "left"
	NotMember     Result = "not_member"
	Advanced      Result = "advanced"
	EmptyQueue    Result = "empty_queue"
	NotYourTurn   Result = "not_your_turn"
	Shown         Result = "shown"
	Bound         Result = "bound"
)

// Changed reports whether a transition with this result mutated the roster.
func (r Result) Changed() bool {
	switch r {
	case Joined, Left, Advanced, Bound:
		return true
	}
	return false
}

// Outcome describes what a transition did. Fields are filled only where
// meaningful for the result.
type Outcome struct {
	Result Result
	// Outgoing and Incoming are set on Advanced. Incoming is also set on Left
	// when the leaver held the turn and somebody inherited it.
	Outgoing *domain.Member
	Incoming *domain.Member
	// Current is the rightful turn holder on NotYourTurn.
	Current *domain.Member
}

// Join appends m to the end of the rotation unless already present.
func Join(r domain.Roster, m domain.Member) (domain.Roster, Outcome) {
	if r.IndexOf(m.ID) >= 0 {
		return r, Outcome{Result: AlreadyMember}
	}
	next := r.Clone()
	if next.Empty() {
		next.Cursor = 0
	}
	next.Members = append(next.Members, m)
	return next, Outcome{Result: Joined}
}

// Leave removes id. A leaver holding the turn hands it to the successor
// occupying the same index, wrapping to the head when the leaver was last.
func Leave(r domain.Roster, id domain.Identity) (domain.Roster, Outcome) {
	idx := r.IndexOf(id)
	if idx < 0 {
		return r, Outcome{Result: NotMember}
	}
	next := r.Clone()
	next.Members = append(next.Members[:idx], next.Members[idx+1:]...)

	out := Outcome{Result: Left}
	switch {
	case next.Empty():
		next.Cursor = 0
	case idx < r.Cursor:
		next.Cursor--
	case idx == r.Cursor:
		if idx >= len(next.Members) {
			next.Cursor = 0
		}
		m := next.Members[next.Cursor]
		out.Incoming = &m
	}
	return next, out
}

// Advance moves the turn to the next member. Only the current holder may do it.
func Advance(r domain.Roster, caller domain.Identity) (domain.Roster, Outcome) {
	current, ok := r.Current()
	if !ok {
		return r, Outcome{Result: EmptyQueue}
	}
	if current.ID != caller {
		return r, Outcome{Result: NotYourTurn, Current: &current}
	}
	next := r.Clone()
	next.Cursor = (r.Cursor + 1) % len(next.Members)
	incoming := next.Members[next.Cursor]
	return next, Outcome{Result: Advanced, Outgoing: &current, Incoming: &incoming}
}

// Bind stores the announcement id without touching members or cursor.
func Bind(r domain.Roster, announcementID string) (domain.Roster, Outcome) {
	next := r.Clone()
	next.AnnouncementID = announcementID
	return next, Outcome{Result: Bound}
}
