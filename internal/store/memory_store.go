package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/loginbridge/loginbridge/internal/constants"
)

const (
	memoryStoreMaxSize = 60000 // maximum number of entries to hold in memory
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore implements Store on a process-local map. It follows the same
// key convention and TTL semantics as RedisStore and backs tests and local
// single-instance runs.
type MemoryStore struct {
	maxSize       int
	sessionTTL    time.Duration
	entries       map[string]memoryEntry
	evictionQueue []string
	mu            sync.Mutex

	nowFunc func() time.Time
}

func NewMemoryStore(sessionTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		maxSize:    memoryStoreMaxSize,
		sessionTTL: sessionTTL,
		entries:    make(map[string]memoryEntry),
		nowFunc:    time.Now,
	}
}

func (m *MemoryStore) set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer func() { m.collectGarbage(); m.mu.Unlock() }()

	// Enforce maximum size.
	for len(m.entries) >= m.maxSize {
		oldest := m.evictionQueue[0]
		m.evictionQueue = m.evictionQueue[1:]
		delete(m.entries, oldest)
	}

	m.entries[key] = memoryEntry{value: value, expiresAt: m.nowFunc().Add(ttl)}
	m.evictionQueue = append(m.evictionQueue, key)
}

func (m *MemoryStore) get(key string, consume bool) ([]byte, bool) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if consume {
		delete(m.entries, key)
	}
	m.collectGarbage()
	m.mu.Unlock()

	if !ok || e.expiresAt.Before(m.nowFunc()) {
		return nil, false
	}
	return e.value, true
}

func (m *MemoryStore) delete(key string) bool {
	m.mu.Lock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	m.collectGarbage()
	m.mu.Unlock()
	return ok
}

// collectGarbage must be called with the mutex held.
func (m *MemoryStore) collectGarbage() {
	var evictionQueue []string
	for _, key := range m.evictionQueue {
		e, ok := m.entries[key]
		if !ok {
			continue
		}
		if m.nowFunc().Before(e.expiresAt) {
			evictionQueue = append(evictionQueue, key)
		} else {
			delete(m.entries, key)
		}
	}
	m.evictionQueue = evictionQueue
}

func (m *MemoryStore) StoreState(_ context.Context, state string) error {
	m.set(stateKey(state), []byte(stateMarker), constants.TransactionTTL)
	return nil
}

func (m *MemoryStore) ValidateState(_ context.Context, state string) (bool, error) {
	_, ok := m.get(stateKey(state), true)
	return ok, nil
}

func (m *MemoryStore) StorePKCEVerifier(_ context.Context, state, verifier string) error {
	m.set(pkceKey(state), []byte(verifier), constants.TransactionTTL)
	return nil
}

func (m *MemoryStore) RetrievePKCEVerifier(_ context.Context, state string) (string, error) {
	b, ok := m.get(pkceKey(state), true)
	if !ok {
		return "", nil
	}
	return string(b), nil
}

func (m *MemoryStore) Create(_ context.Context, sessionID string, data *SessionData) error {
	_, b, err := marshalRecord(sessionID, data, m.nowFunc(), m.sessionTTL)
	if err != nil {
		return err
	}
	m.set(sessionKey(sessionID), b, m.sessionTTL)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*SessionRecord, error) {
	b, ok := m.get(sessionKey(sessionID), false)
	if !ok {
		return nil, nil
	}
	var rec SessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptRecord, err)
	}
	if !rec.ExpiresAt.After(m.nowFunc()) {
		m.delete(sessionKey(sessionID))
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) Update(_ context.Context, sessionID string, data *SessionData) error {
	if _, ok := m.get(sessionKey(sessionID), false); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	_, b, err := marshalRecord(sessionID, data, m.nowFunc(), m.sessionTTL)
	if err != nil {
		return err
	}
	m.set(sessionKey(sessionID), b, m.sessionTTL)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) (int64, error) {
	if m.delete(sessionKey(sessionID)) {
		return 1, nil
	}
	return 0, nil
}

func (m *MemoryStore) Exists(_ context.Context, sessionID string) (bool, error) {
	_, ok := m.get(sessionKey(sessionID), false)
	return ok, nil
}

func (m *MemoryStore) TTL(_ context.Context, sessionID string) (time.Duration, error) {
	m.mu.Lock()
	e, ok := m.entries[sessionKey(sessionID)]
	m.mu.Unlock()
	if !ok {
		return -2 * time.Second, nil // mirrors the Redis convention for missing keys
	}
	return time.Until(e.expiresAt), nil
}

func (m *MemoryStore) RefreshTTL(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionKey(sessionID)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	e.expiresAt = m.nowFunc().Add(m.sessionTTL)
	m.entries[sessionKey(sessionID)] = e
	return nil
}
