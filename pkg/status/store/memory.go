package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-process map.
// Data does not survive a restart and is not shared between processes.
//
// Expired entries are invisible to Get and Scan immediately; Purge reclaims
// their memory.
type MemoryStore struct {
	// entries maps key to stored value.
	entries map[string]*memoryEntry

	// mu protects entries.
	mu sync.RWMutex

	// maxEntries is the maximum number of entries before eviction.
	maxEntries int

	// now returns the current time.
	now func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	updatedAt time.Time
}

// MemoryConfig configures the memory backend.
type MemoryConfig struct {
	// MaxEntries is the maximum number of keys to hold.
	// The least recently written entry is evicted when the limit is reached.
	// Default: 100,000
	MaxEntries int

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100000
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: cfg.MaxEntries,
		now:        cfg.Clock,
	}
}

// Put stores a copy of value under key.
func (m *MemoryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictOldestLocked(now)
	}

	m.entries[key] = &memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
		updatedAt: now,
	}

	return nil
}

// Get returns a copy of the value stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.entries[key]
	if !exists || !entry.expiresAt.After(now) {
		return nil, ErrNotFound
	}

	return append([]byte(nil), entry.value...), nil
}

// Scan returns up to limit live entries with the given key prefix.
func (m *MemoryStore) Scan(ctx context.Context, prefix string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Entry
	for key, entry := range m.entries {
		if !strings.HasPrefix(key, prefix) || !entry.expiresAt.After(now) {
			continue
		}
		result = append(result, Entry{Key: key, Value: append([]byte(nil), entry.value...)})
		if len(result) >= limit {
			break
		}
	}

	return result, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops all entries.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*memoryEntry)
	return nil
}

// Purge removes expired entries.
func (m *MemoryStore) Purge(ctx context.Context) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key, entry := range m.entries {
		if !entry.expiresAt.After(now) {
			delete(m.entries, key)
			removed++
		}
	}

	return removed, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// evictOldestLocked drops one expired entry if any, otherwise the entry
// with the oldest write. Caller must hold the write lock.
func (m *MemoryStore) evictOldestLocked(now time.Time) {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range m.entries {
		if !entry.expiresAt.After(now) {
			delete(m.entries, key)
			return
		}
		if oldestKey == "" || entry.updatedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.updatedAt
		}
	}

	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
