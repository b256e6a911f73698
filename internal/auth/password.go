package auth

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

const (
	AlgorithmPBKDF2SHA1   = "PBKDF2-SHA1"
	AlgorithmPBKDF2SHA256 = "PBKDF2-SHA256"

	MinIterations     = 10_000
	DefaultIterations = 100_000

	saltSize = 16
	keySize  = 32
)

var ErrEmptyPassword = errors.New("password is empty")

// PasswordCredential is the stored form of a password. It is compared,
// never reversed.
type PasswordCredential struct {
	Salt       []byte
	Hash       []byte
	Iterations int
	Algorithm  string
}

// Hasher derives and verifies PBKDF2 password digests.
type Hasher struct {
	algorithm string
	newHash   func() hash.Hash
}

// NewHasher returns a hasher producing credentials tagged with algorithm.
// An empty algorithm selects PBKDF2-SHA1.
func NewHasher(algorithm string) (*Hasher, error) {
	if algorithm == "" {
		algorithm = AlgorithmPBKDF2SHA1
	}
	fn, ok := hashFor(algorithm)
	if !ok {
		return nil, fmt.Errorf("unsupported password algorithm %q", algorithm)
	}
	return &Hasher{algorithm: algorithm, newHash: fn}, nil
}

func hashFor(algorithm string) (func() hash.Hash, bool) {
	switch algorithm {
	case AlgorithmPBKDF2SHA1:
		return sha1.New, true
	case AlgorithmPBKDF2SHA256:
		return sha256.New, true
	default:
		return nil, false
	}
}

func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash derives a new credential from password with a fresh random salt.
// Any string, the empty one included, is hashed; rejecting missing
// passwords is up to callers. Iteration counts below MinIterations are
// raised to it.
func (h *Hasher) Hash(password string, iterations int) (PasswordCredential, error) {
	if iterations < MinIterations {
		iterations = MinIterations
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return PasswordCredential{}, fmt.Errorf("generate salt: %w", err)
	}

	return PasswordCredential{
		Salt:       salt,
		Hash:       pbkdf2.Key([]byte(password), salt, iterations, keySize, h.newHash),
		Iterations: iterations,
		Algorithm:  h.algorithm,
	}, nil
}

// Verify re-derives the digest for password and compares it with
// expectedHash in constant time. Malformed input yields false.
func (h *Hasher) Verify(password string, salt, expectedHash []byte, iterations int) bool {
	return verify(h.newHash, password, salt, expectedHash, iterations)
}

// VerifyCredential verifies password against a stored credential using the
// credential's own algorithm tag.
func (h *Hasher) VerifyCredential(password string, cred PasswordCredential) bool {
	fn, ok := hashFor(cred.Algorithm)
	if !ok {
		return false
	}
	return verify(fn, password, cred.Salt, cred.Hash, cred.Iterations)
}

func verify(fn func() hash.Hash, password string, salt, expectedHash []byte, iterations int) bool {
	if len(salt) == 0 || len(expectedHash) == 0 || iterations <= 0 {
		return false
	}
	derived := pbkdf2.Key([]byte(password), salt, iterations, len(expectedHash), fn)
	return subtle.ConstantTimeCompare(derived, expectedHash) == 1
}
