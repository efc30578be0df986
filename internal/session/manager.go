package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/merchkit/storefront/pkg/config"
	"github.com/merchkit/storefront/pkg/logger"
	"github.com/merchkit/storefront/pkg/redis"
)

type snapshotStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SessionKey(storeSlug, sessionID string) string
}

// sessionLock serializes one session's mutations. refs counts holders and
// waiters so the entry can be dropped once the last one releases.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Manager persists session snapshots in Redis and serializes mutations per
// session. Different sessions never contend with each other, and the lock
// table holds entries only while a mutation is in flight.
type Manager struct {
	store  snapshotStore
	ttl    time.Duration
	logger *logger.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// NewManager builds a session manager backed by the Redis wrapper.
func NewManager(store snapshotStore, cfg config.SessionConfig, logg *logger.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		store:  store,
		ttl:    ttl,
		logger: logg,
		locks:  map[string]*sessionLock{},
	}, nil
}

// Load returns the stored session, or a fresh empty one when nothing is
// persisted yet or the snapshot cannot be decoded.
func (m *Manager) Load(ctx context.Context, storeSlug, sessionID string) (*Session, error) {
	if sessionID == "" {
		return NewSession(storeSlug), nil
	}

	raw, err := m.store.Get(ctx, m.store.SessionKey(storeSlug, sessionID))
	if errors.Is(err, redis.Nil) {
		sess := NewSession(storeSlug)
		sess.ID = sessionID
		return sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		if m.logger != nil {
			m.logger.Warn(m.logger.WithSessionID(ctx, sessionID), "discarding undecodable session snapshot")
		}
		fresh := NewSession(storeSlug)
		fresh.ID = sessionID
		return fresh, nil
	}
	return &sess, nil
}

// Save writes the session snapshot with the configured TTL.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.SessionKey(sess.StoreSlug, sess.ID), payload, m.ttl); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Delete drops the persisted snapshot.
func (m *Manager) Delete(ctx context.Context, storeSlug, sessionID string) error {
	return m.store.Del(ctx, m.store.SessionKey(storeSlug, sessionID))
}

// Mutate runs fn under the session's mutex, persisting the result when fn
// succeeds. Mutations on the same session apply strictly one at a time, so a
// slow upstream call cannot interleave with a later one.
func (m *Manager) Mutate(ctx context.Context, storeSlug, sessionID string, fn func(*Session) error) (*Session, error) {
	key := storeSlug + "/" + sessionID
	lock := m.acquire(key)
	defer m.release(key, lock)

	sess, err := m.Load(ctx, storeSlug, sessionID)
	if err != nil {
		return nil, err
	}
	if fnErr := fn(sess); fnErr != nil {
		// fn may have rolled the phase back deliberately; persist that
		// best-effort so the snapshot does not resurrect the old phase.
		if saveErr := m.Save(ctx, sess); saveErr != nil && m.logger != nil {
			m.logger.Error(ctx, "persisting session after failed mutation", saveErr)
		}
		return sess, fnErr
	}
	if err := m.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) acquire(key string) *sessionLock {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sessionLock{}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (m *Manager) release(key string, lock *sessionLock) {
	lock.mu.Unlock()

	m.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}

// lockCount reports how many sessions currently hold a lock entry.
func (m *Manager) lockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
