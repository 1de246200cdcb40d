package core

import (
	"context"

	"github.com/dkeye/Rota/internal/domain"
)

// Mutator receives the stored roster for a key and returns the next state.
// commit=false leaves the stored state untouched. A Mutator may be invoked
// more than once per Update by stores that retry on conflict, so it must not
// have side effects beyond its return values and captured results.
type Mutator func(current domain.Roster) (next domain.Roster, commit bool, err error)

// RosterStore is the durable keyed storage of all rosters.
// Update runs one load → mutate → store cycle and serializes cycles on the
// same key; cycles on different keys never wait for each other.
type RosterStore interface {
	// Get returns the stored roster, creating an empty one when absent.
	Get(ctx context.Context, key domain.Key) (domain.Roster, error)
	Update(ctx context.Context, key domain.Key, fn Mutator) error
	// Groups lists every group with at least one member in any of its
	// rosters. Rosters that were only viewed do not count.
	Groups(ctx context.Context) ([]domain.GroupID, error)
	Close() error
}
