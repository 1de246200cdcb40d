// Package storetest is the behaviour every RosterStore must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
)

// Options tunes the suite for drivers with engine-level constraints.
type Options struct {
	// SingleWriter marks stores whose engine admits one write transaction
	// at a time (sqlite); the cross-key independence check is skipped.
	SingleWriter bool
}

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) core.RosterStore, opts Options) {
	t.Run("GetCreatesEmpty", func(t *testing.T) { testGetCreatesEmpty(t, open(t)) })
	t.Run("UpdateCommit", func(t *testing.T) { testUpdateCommit(t, open(t)) })
	t.Run("UpdateNoCommit", func(t *testing.T) { testUpdateNoCommit(t, open(t)) })
	t.Run("MutatorError", func(t *testing.T) { testMutatorError(t, open(t)) })
	t.Run("RejectsInconsistent", func(t *testing.T) { testRejectsInconsistent(t, open(t)) })
	t.Run("KindsIndependent", func(t *testing.T) { testKindsIndependent(t, open(t)) })
	t.Run("GroupsNeedMembers", func(t *testing.T) { testGroupsNeedMembers(t, open(t)) })
	t.Run("ConcurrentSameKey", func(t *testing.T) { testConcurrentSameKey(t, open(t)) })
	if !opts.SingleWriter {
		t.Run("DifferentKeysDoNotWait", func(t *testing.T) { testDifferentKeysDoNotWait(t, open(t)) })
	}
}

func key(t *testing.T, group domain.GroupID, kind string) domain.Key {
	t.Helper()
	k, err := domain.NewKey(group, kind)
	require.NoError(t, err)
	return k
}

func member(id int) domain.Member {
	return domain.Member{ID: domain.Identity(id), DisplayName: fmt.Sprintf("user-%d", id)}
}

func join(m domain.Member) core.Mutator {
	return func(cur domain.Roster) (domain.Roster, bool, error) {
		next, out := core.Join(cur, m)
		return next, out.Result.Changed(), nil
	}
}

func testGetCreatesEmpty(t *testing.T, s core.RosterStore) {
	ctx := context.Background()
	k := key(t, -1001, "milk")

	r, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.True(t, r.Empty())
	assert.Equal(t, 0, r.Cursor)

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups, "a viewed roster does not make a group known")

	require.NoError(t, s.Update(ctx, k, join(member(1))))
	groups, err = s.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupID{-1001}, groups)
}

func testUpdateCommit(t *testing.T, s core.RosterStore) {
	ctx := context.Background()
	k := key(t, 7, "coffee")

	require.NoError(t, s.Update(ctx, k, join(member(1))))
	require.NoError(t, s.Update(ctx, k, join(member(2))))
	require.NoError(t, s.Update(ctx, k, func(cur domain.Roster) (domain.Roster, bool, error) {
		next, out := core.Advance(cur, 1)
		return next, out.Result.Changed(), nil
	}))

	r, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []domain.Member{member(1), member(2)}, r.Members)
	assert.Equal(t, 1, r.Cursor)

	require.NoError(t, s.Update(ctx, k, func(cur domain.Roster) (domain.Roster, bool, error) {
		next, _ := core.Bind(cur, "announce-1")
		return next, true, nil
	}))
	r, err = s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, "announce-1", r.AnnouncementID)
	assert.Equal(t, 1, r.Cursor)
}

func testUpdateNoCommit(t *testing.T, s core.RosterStore) {
	ctx := context.Background()
	k := key(t, 7, "milk")
	require.NoError(t, s.Update(ctx, k, join(member(1))))

	require.NoError(t, s.Update(ctx, k, func(cur domain.Roster) (domain.Roster, bool, error) {
		cur.Members = nil
		return cur, false, nil
	}))

	r, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []domain.Member{member(1)}, r.Members)
}

func testMutatorError(t *testing.T, s core.RosterStore) {
	ctx := context.Background()
	k := key(t, 8, "milk")
	require.NoError(t, s.Update(ctx, k, join(member(1))))

	boom := errors.New("boom")
	err := s.Update(ctx, k, func(cur domain.Roster) (domain.Roster, bool, error) {
		return domain.Roster{}, true, boom
	})
	assert.ErrorIs(t, err, boom)

	r, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []domain.Member{member(1)}, r.Members)
}

func testRejectsInconsistent(t *testing.T, s core.RosterStore) {
	ctx := context.Background()
	k := key(t, 9, "milk")
	require.NoError(t, s.Update(ctx, k, join(member(1))))

	err := s.Update(ctx, k, func(cur domain.Roster) (domain.Roster, bool, error) {
		cur.Cursor = 5
		return cur, true, nil
	})
	assert.ErrorIs(t, err, domain.ErrInconsistentRoster)

	r, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Cursor)
}

func testKindsIndependent(t *testing.T, s core.RosterStore) {
	ctx := context.Background()
	milk, coffee := key(t, 10, "milk"), key(t, 10, "coffee")
	require.NoError(t, s.Update(ctx, milk, join(member(1))))

	r, err := s.Get(ctx, coffee)
	require.NoError(t, err)
	assert.True(t, r.Empty())

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupID{10}, groups)
}

func testGroupsNeedMembers(t *testing.T, s core.RosterStore) {
	ctx := context.Background()
	k := key(t, 20, "milk")
	require.NoError(t, s.Update(ctx, k, join(member(1))))
	require.NoError(t, s.Update(ctx, key(t, 21, "milk"), join(member(2))))
	require.NoError(t, s.Update(ctx, k, func(cur domain.Roster) (domain.Roster, bool, error) {
		next, _ := core.Leave(cur, 1)
		return next, true, nil
	}))

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupID{21}, groups)
}

func testConcurrentSameKey(t *testing.T, s core.RosterStore) {
	ctx := context.Background()
	k := key(t, 11, "milk")
	const n = 16

	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			errCh <- s.Update(ctx, k, join(member(id)))
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	r, err := s.Get(ctx, k)
	require.NoError(t, err)
	assert.Len(t, r.Members, n)
	assert.NoError(t, r.Validate())
}

func testDifferentKeysDoNotWait(t *testing.T, s core.RosterStore) {
	ctx := context.Background()
	a, b := key(t, 12, "milk"), key(t, 13, "milk")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	var once sync.Once
	go func() {
		done <- s.Update(ctx, a, func(cur domain.Roster) (domain.Roster, bool, error) {
			once.Do(func() { close(entered) })
			<-release
			next, _ := core.Join(cur, member(1))
			return next, true, nil
		})
	}()
	<-entered

	finished := make(chan error, 1)
	go func() { finished <- s.Update(ctx, b, join(member(2))) }()
	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("update on an unrelated key waited for a held cycle")
	}

	close(release)
	require.NoError(t, <-done)
}
