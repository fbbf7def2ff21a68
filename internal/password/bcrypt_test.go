package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(MinCost)
	require.NoError(t, err)
	return h
}

func TestNewHasher_CostBounds(t *testing.T) {
	_, err := NewHasher(10)
	assert.Error(t, err)

	_, err = NewHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)

	h, err := NewHasher(13)
	require.NoError(t, err)
	assert.Equal(t, 13, h.Cost())
}

func TestHasher_RoundTrip(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("Str0ng!Passw0rd123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, MinCost, cost)

	assert.True(t, h.Verify("Str0ng!Passw0rd123", hash))
	assert.False(t, h.Verify("Str0ng!Passw0rd124", hash))
	assert.False(t, h.Verify("", hash))
}

func TestHasher_SaltsEveryHash(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("Same!Passw0rd99")
	require.NoError(t, err)
	b, err := h.Hash("Same!Passw0rd99")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("Same!Passw0rd99", a))
	assert.True(t, h.Verify("Same!Passw0rd99", b))
}

func TestHasher_MalformedHashNeverMatches(t *testing.T) {
	h := newTestHasher(t)

	for _, stored := range []string{"", "not-a-hash", "$2a$12$short", strings.Repeat("x", 60)} {
		assert.NotPanics(t, func() {
			assert.False(t, h.Verify("Str0ng!Passw0rd123", stored), "stored=%q", stored)
		})
	}
}

func TestHasher_RejectsOverlongPassword(t *testing.T) {
	h := newTestHasher(t)

	_, err := h.Hash(strings.Repeat("a", MaxLength+1))
	assert.ErrorIs(t, err, ErrTooLong)
}
