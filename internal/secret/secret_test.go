package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
)

func testManager() *Manager {
	return NewManagerWithCost(bcrypt.MinCost)
}

func TestDerive_RoundTrip(t *testing.T) {
	m := testManager()

	hash, err := m.Derive("hunter2x")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2x", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"))

	assert.True(t, m.Verify("hunter2x", hash))
	assert.False(t, m.Verify("hunter2y", hash))
}

func TestDerive_TooShort(t *testing.T) {
	m := testManager()

	_, err := m.Derive("12345")
	assert.ErrorIs(t, err, apperror.ErrSecretPolicy)

	// Surrounding whitespace does not count toward the length.
	_, err = m.Derive("   12345   ")
	assert.ErrorIs(t, err, apperror.ErrSecretPolicy)
}

func TestDerive_TooLong(t *testing.T) {
	m := testManager()
	_, err := m.Derive(strings.Repeat("x", MaxSecretLen+1))
	assert.ErrorIs(t, err, apperror.ErrSecretPolicy)
}

func TestDerive_Bounds(t *testing.T) {
	m := testManager()

	_, err := m.Derive(strings.Repeat("a", MinSecretLen))
	assert.NoError(t, err)

	_, err = m.Derive(strings.Repeat("a", MaxSecretLen))
	assert.NoError(t, err)
}

func TestDerive_TrimsBeforeHashing(t *testing.T) {
	m := testManager()

	hash, err := m.Derive("  secret99  ")
	require.NoError(t, err)
	assert.True(t, m.Verify("secret99", hash))
	assert.True(t, m.Verify("  secret99", hash))
}

func TestVerify_GarbageHash(t *testing.T) {
	m := testManager()
	assert.False(t, m.Verify("secret99", "not-a-bcrypt-hash"))
	assert.False(t, m.Verify("secret99", ""))
}

func TestGenerateRandom(t *testing.T) {
	m := testManager()
	seen := make(map[string]struct{})

	for i := 0; i < 32; i++ {
		s, err := GenerateRandom()
		require.NoError(t, err)
		assert.Len(t, s, MinSecretLen)
		for _, r := range s {
			assert.Contains(t, randomAlphabet, string(r))
		}

		// A generated secret always satisfies the derive policy.
		_, err = m.Derive(s)
		assert.NoError(t, err)
		seen[s] = struct{}{}
	}

	// 32 draws from 62^6 values collide with negligible probability.
	assert.Greater(t, len(seen), 1)
}
