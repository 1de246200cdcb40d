package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Rota/internal/domain"
)

func TestNewMember(t *testing.T) {
	m, err := domain.NewMember(42, "  @alice ")
	require.NoError(t, err)
	assert.Equal(t, domain.Member{ID: 42, DisplayName: "@alice"}, m)

	_, err = domain.NewMember(0, "alice")
	assert.ErrorIs(t, err, domain.ErrIdentityZero)

	_, err = domain.NewMember(1, "   ")
	assert.ErrorIs(t, err, domain.ErrDisplayNameEmpty)

	_, err = domain.NewMember(1, strings.Repeat("я", domain.MaxDisplayNameLen+1))
	assert.ErrorIs(t, err, domain.ErrDisplayNameTooLong)

	_, err = domain.NewMember(1, strings.Repeat("я", domain.MaxDisplayNameLen))
	assert.NoError(t, err)
}

func TestNewRoster(t *testing.T) {
	a := domain.Member{ID: 1, DisplayName: "A"}
	b := domain.Member{ID: 2, DisplayName: "B"}

	r, err := domain.NewRoster([]domain.Member{a, b}, 1)
	require.NoError(t, err)
	cur, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, b, cur)

	_, err = domain.NewRoster([]domain.Member{a, b}, 2)
	assert.ErrorIs(t, err, domain.ErrInconsistentRoster)

	_, err = domain.NewRoster([]domain.Member{a, b}, -1)
	assert.ErrorIs(t, err, domain.ErrInconsistentRoster)

	_, err = domain.NewRoster([]domain.Member{a, a}, 0)
	assert.ErrorIs(t, err, domain.ErrInconsistentRoster)

	empty, err := domain.NewRoster(nil, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Cursor)
	_, ok = empty.Current()
	assert.False(t, ok)
}

func TestRosterClone(t *testing.T) {
	r := domain.Roster{Members: []domain.Member{{ID: 1, DisplayName: "A"}}}
	c := r.Clone()
	c.Members[0].DisplayName = "changed"
	assert.Equal(t, "A", r.Members[0].DisplayName)
}

func TestKeyRoundTrip(t *testing.T) {
	k, err := domain.NewKey(-100123, "coffee")
	require.NoError(t, err)
	assert.Equal(t, "-100123/coffee", k.String())

	back, err := domain.ParseKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, back)

	for _, bad := range []string{"", "abc", "x/milk", "1/", "1/Milk", "1/a b", "+5/milk", "05/milk", "-0/milk"} {
		_, err := domain.ParseKey(bad)
		assert.Error(t, err, bad)
	}

	_, err = domain.NewKey(1, strings.Repeat("k", 33))
	assert.ErrorIs(t, err, domain.ErrKindInvalid)
}
