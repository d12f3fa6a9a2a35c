package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/msomdec/authcore/internal/domain"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher produces salted one-way digests and verifies plaintext
// passwords against them.
type PasswordHasher interface {
	// Hash returns a digest with a fresh random salt, so hashing the same
	// password twice yields two different digests.
	Hash(ctx context.Context, password string) (string, error)

	// Verify reports whether password matches digest. A mismatch is
	// (false, nil); a digest that cannot be decoded is an error.
	Verify(ctx context.Context, password, digest string) (bool, error)
}

// hashSlots bounds how many CPU-bound hash computations run at once so a
// burst of logins cannot starve request I/O.
type hashSlots struct {
	sem *semaphore.Weighted
}

func newHashSlots(n int64) hashSlots {
	if n < 1 {
		n = int64(runtime.GOMAXPROCS(0))
	}
	return hashSlots{sem: semaphore.NewWeighted(n)}
}

func (s hashSlots) run(ctx context.Context, fn func()) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire hash slot: %w", err)
	}
	defer s.sem.Release(1)
	fn()
	return nil
}

// BcryptHasher implements PasswordHasher with bcrypt. bcrypt embeds the salt
// and cost in the digest and compares in constant time.
type BcryptHasher struct {
	cost  int
	slots hashSlots
}

// NewBcryptHasher creates a BcryptHasher with the given work factor.
// maxConcurrent <= 0 defaults to GOMAXPROCS.
func NewBcryptHasher(cost int, maxConcurrent int64) *BcryptHasher {
	return &BcryptHasher{cost: cost, slots: newHashSlots(maxConcurrent)}
}

func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	var (
		digest []byte
		err    error
	)
	if slotErr := h.slots.run(ctx, func() {
		digest, err = bcrypt.GenerateFromPassword([]byte(password), h.cost)
	}); slotErr != nil {
		return "", slotErr
	}
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrInvalidInput)
		}
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, password, digest string) (bool, error) {
	var err error
	if slotErr := h.slots.run(ctx, func() {
		err = bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	}); slotErr != nil {
		return false, slotErr
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt compare: %w", err)
	}
}

// Argon2id parameters, encoded into every digest so they can be raised later
// without invalidating stored hashes.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// Argon2idHasher implements PasswordHasher with argon2id, storing digests in
// PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
type Argon2idHasher struct {
	slots hashSlots
}

// NewArgon2idHasher creates an Argon2idHasher. maxConcurrent <= 0 defaults
// to GOMAXPROCS.
func NewArgon2idHasher(maxConcurrent int64) *Argon2idHasher {
	return &Argon2idHasher{slots: newHashSlots(maxConcurrent)}
}

func (h *Argon2idHasher) Hash(ctx context.Context, password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	var key []byte
	if err := h.slots.run(ctx, func() {
		key = argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	}); err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2idHasher) Verify(ctx context.Context, password, digest string) (bool, error) {
	p, err := parseArgon2id(digest)
	if err != nil {
		return false, err
	}

	var computed []byte
	if err := h.slots.run(ctx, func() {
		computed = argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	}); err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

type argon2idParams struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2id(digest string) (*argon2idParams, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id digest")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("parse argon2id version: %w", err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, fmt.Errorf("parse argon2id params: %w", err)
	}
	if time == 0 || memory > 1<<21 {
		return nil, fmt.Errorf("argon2id params out of range: m=%d t=%d", memory, time)
	}
	if threads == 0 || threads > 255 {
		return nil, fmt.Errorf("argon2id threads out of range: %d", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("decode argon2id salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("decode argon2id key: %w", err)
	}
	if len(key) == 0 || len(key) > 1024 {
		return nil, fmt.Errorf("argon2id key length out of range: %d", len(key))
	}

	return &argon2idParams{
		memory:  memory,
		time:    time,
		threads: uint8(threads),
		salt:    salt,
		key:     key,
	}, nil
}
