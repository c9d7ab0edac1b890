package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zitadel/oidc/v3/pkg/crypto"
)

// ErrNotExists is returned when no session is stored under the given ID.
var ErrNotExists = errors.New("session does not exist")

// Store keeps sessions in memory, encrypted at rest, keyed by an opaque
// session ID. Entries expire after the configured duration; a background
// collector bound to ctx removes stale ones.
type Store struct {
	data          sync.Map
	encryptionKey string
	expires       time.Duration
}

type item struct {
	expires time.Time
	session []byte
}

// NewStore creates a Store and starts its expiry collector.
func NewStore(ctx context.Context, encryptionKey string, expires time.Duration) *Store {
	store := &Store{
		data:          sync.Map{},
		encryptionKey: encryptionKey,
		expires:       expires,
	}
	go store.collect(ctx)

	return store
}

// NewID mints a fresh opaque session identifier.
func (s *Store) NewID() string {
	return uuid.NewString()
}

// Set stores sess under id, replacing any previous state.
func (s *Store) Set(id string, sess Session) error {
	jsonSession, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	encryptedBytes, err := crypto.EncryptBytesAES(jsonSession, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("encrypt error: %w", err)
	}

	s.data.Store(id, item{session: encryptedBytes, expires: time.Now().Add(s.expires)})

	return nil
}

// Get returns the session stored under id or ErrNotExists.
func (s *Store) Get(id string) (Session, error) {
	data, ok := s.data.Load(id)
	if !ok {
		return Session{}, ErrNotExists
	}

	entry, ok := data.(item)
	if !ok {
		s.Delete(id)

		return Session{}, ErrNotExists
	}

	encryptedBytes := make([]byte, len(entry.session))

	// crypto.DecryptBytesAES modifies the slice in place, so work on a copy.
	copy(encryptedBytes, entry.session)

	jsonSession, err := crypto.DecryptBytesAES(encryptedBytes, s.encryptionKey)
	if err != nil {
		return Session{}, fmt.Errorf("decrypt error: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(jsonSession, &sess); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	return sess, nil
}

// Delete removes the session stored under id.
func (s *Store) Delete(id string) {
	s.data.Delete(id)
}

func (s *Store) collect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Minute * 5):
			s.data.Range(func(id, data any) bool {
				entry, ok := data.(item)
				if !ok {
					panic(data)
				}

				if entry.expires.Compare(time.Now()) == -1 {
					s.data.Delete(id)
				}

				return true
			})
		}
	}
}
