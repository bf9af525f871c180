package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/hexveil/authgate"
)

// ErrInvalidCredentials is returned for unknown identifiers and wrong
// secrets alike, so callers cannot probe for account existence.
var ErrInvalidCredentials = errors.New("invalid credentials")

type record struct {
	hash     []byte
	identity authgate.Identity
}

// MemoryStore is a concurrency-safe in-memory credential store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]record
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]record),
	}
}

// Register stores a bcrypt hash of secret for the identifier, replacing any
// previous registration.
func (s *MemoryStore) Register(identifier, secret string, id authgate.Identity) error {
	if strings.TrimSpace(identifier) == "" {
		return errors.New("identifier is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[identifier] = record{hash: hash, identity: id}
	return nil
}

// VerifyCredentials implements [authgate.CredentialVerifier].
func (s *MemoryStore) VerifyCredentials(ctx context.Context, identifier, secret string) (authgate.Identity, error) {
	s.mu.RLock()
	rec, ok := s.users[identifier]
	s.mu.RUnlock()

	if !ok {
		return authgate.Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.hash, []byte(secret)); err != nil {
		return authgate.Identity{}, ErrInvalidCredentials
	}
	return rec.identity, nil
}
