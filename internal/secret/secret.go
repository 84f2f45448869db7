// Package secret derives, verifies, and generates the access secrets that
// gate private snippets. Secrets are stored only as bcrypt hashes; the raw
// value never reaches the repository or the logs.
package secret

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
)

// Secret length bounds, counted in code points after trimming.
const (
	MinSecretLen = 6
	MaxSecretLen = 20
)

// defaultCost is the bcrypt work factor. The hash is deliberately slow; it is
// the dominant latency contributor on private reads.
const defaultCost = 12

// Policy errors returned by Derive.
var (
	ErrSecretTooShort = apperror.SecretPolicy(
		fmt.Sprintf("access secret must be at least %d characters", MinSecretLen))
	ErrSecretTooLong = apperror.SecretPolicy(
		fmt.Sprintf("access secret must be %d characters or less", MaxSecretLen))
)

// Manager hashes and verifies access secrets. The cost is injectable so tests
// can use the bcrypt minimum instead of paying ~250ms per hash.
type Manager struct {
	cost int
}

// NewManager returns a Manager with the production bcrypt cost.
func NewManager() *Manager {
	return &Manager{cost: defaultCost}
}

// NewManagerWithCost returns a Manager with a custom bcrypt cost. Intended
// for tests; do not lower the cost in production.
func NewManagerWithCost(cost int) *Manager {
	return &Manager{cost: cost}
}

// Derive hashes a raw secret for storage. The secret is trimmed before the
// length policy is applied.
func (m *Manager) Derive(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	n := utf8.RuneCountInString(raw)
	if n < MinSecretLen {
		return "", ErrSecretTooShort
	}
	if n > MaxSecretLen {
		return "", ErrSecretTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), m.cost)
	if err != nil {
		return "", fmt.Errorf("secret: deriving hash: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether raw matches the stored hash. bcrypt compares in
// constant time with respect to the secret content, so response timing does
// not leak how many characters matched.
func (m *Manager) Verify(raw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(raw))) == nil
}

const randomAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRandom produces a 6-character alphanumeric secret from crypto/rand.
// It is offered to the caller as a pre-fill convenience and never applied
// automatically.
func GenerateRandom() (string, error) {
	buf := make([]byte, MinSecretLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("secret: reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = randomAlphabet[int(b)%len(randomAlphabet)]
	}
	return string(buf), nil
}
