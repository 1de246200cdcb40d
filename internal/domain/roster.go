package domain

import (
	"errors"
	"fmt"
)

// ErrInconsistentRoster marks state that breaks the roster invariants.
// A key holding such state is not written again until repaired by hand.
var ErrInconsistentRoster = errors.New("inconsistent roster")

// Roster is an ordered rotation plus the index of whose turn it is.
// Cursor is meaningless while Members is empty and is kept at 0.
type Roster struct {
	Members []Member `json:"members"`
	Cursor  int      `json:"cursor"`
	// AnnouncementID binds the roster to a previously posted listing so the
	// chat adapter can edit it in place. Optional.
	AnnouncementID string `json:"announcement_id,omitempty"`
}

// NewRoster validates members and cursor before handing out a Roster.
func NewRoster(members []Member, cursor int) (Roster, error) {
	r := Roster{Members: append([]Member(nil), members...), Cursor: cursor}
	if len(r.Members) == 0 {
		r.Cursor = 0
	}
	if err := r.Validate(); err != nil {
		return Roster{}, err
	}
	return r, nil
}

// Validate checks the cursor bound and identity uniqueness.
func (r Roster) Validate() error {
	if len(r.Members) == 0 {
		return nil
	}
	if r.Cursor < 0 || r.Cursor >= len(r.Members) {
		return fmt.Errorf("%w: cursor %d out of range [0,%d)", ErrInconsistentRoster, r.Cursor, len(r.Members))
	}
	seen := make(map[Identity]struct{}, len(r.Members))
	for _, m := range r.Members {
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: duplicate identity %d", ErrInconsistentRoster, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

func (r Roster) Len() int { return len(r.Members) }

func (r Roster) Empty() bool { return len(r.Members) == 0 }

// Current returns the member holding the turn. ok is false for an empty roster.
func (r Roster) Current() (Member, bool) {
	if r.Empty() || r.Cursor < 0 || r.Cursor >= len(r.Members) {
		return Member{}, false
	}
	return r.Members[r.Cursor], true
}

// IndexOf returns the position of id, or -1.
func (r Roster) IndexOf(id Identity) int {
	for i, m := range r.Members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy whose member slice can be mutated freely.
func (r Roster) Clone() Roster {
	c := r
	c.Members = append([]Member(nil), r.Members...)
	return c
}
