package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
)

const (
	// bcryptCost matches the work factor the stored hashes were created with.
	bcryptCost = 12

	minPasswordLength = 6
)

// Hasher computes and verifies bcrypt password hashes. Hashing at cost 12
// takes on the order of hundreds of milliseconds, so concurrent hashes are
// bounded by a weighted semaphore: a burst of registrations queues on Acquire
// instead of occupying every scheduler thread at once.
type Hasher struct {
	sem *semaphore.Weighted
}

func NewHasher() *Hasher {
	return &Hasher{
		sem: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Hash computes a salted bcrypt hash of the plaintext. The output differs
// between calls for the same input; both verify correctly.
// The plaintext must never be logged or persisted by callers.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. A normal mismatch
// is (false, nil); a structurally invalid stored hash is (false, err) so
// callers can tell "wrong password" apart from corrupted data.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("invalid stored password hash: %w", err)
}

// ValidatePassword enforces the plaintext policy. It runs before any hashing.
func ValidatePassword(plaintext string) error {
	if plaintext == "" {
		return ErrPasswordRequired
	}
	if len(plaintext) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
