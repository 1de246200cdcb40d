package core

import (
	"fmt"
	"strings"

	"github.com/dkeye/Rota/internal/domain"
)

// EmptyListing is appended to the title when a roster has no members.
const EmptyListing = "— queue is empty."

// Entry is one line of a rendered roster.
type Entry struct {
	Position int // 1-based, in rotation order
	Member   domain.Member
	Current  bool
}

// Order lists members starting at the cursor and wrapping around exactly once.
func Order(r domain.Roster) []Entry {
	n := len(r.Members)
	if n == 0 {
		return nil
	}
	start := r.Cursor
	if start < 0 || start >= n {
		start = 0
	}
	out := make([]Entry, 0, n)
	for offset := 0; offset < n; offset++ {
		out = append(out, Entry{
			Position: offset + 1,
			Member:   r.Members[(start+offset)%n],
			Current:  offset == 0,
		})
	}
	return out
}

// Render formats the roster as plain text under title.
func Render(r domain.Roster, title string) string {
	entries := Order(r)
	if len(entries) == 0 {
		return title + "\n" + EmptyListing
	}
	var b strings.Builder
	b.WriteString(title)
	for _, e := range entries {
		line := fmt.Sprintf("%d. %s", e.Position, e.Member.DisplayName)
		if e.Current {
			line += " ← current"
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}
