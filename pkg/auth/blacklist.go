package auth

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/gathering/gatekeeper/pkg/observability"
)

const (
	// DefaultCacheMaxSize bounds the in-memory blacklist cache. Size it
	// generously relative to expected revocations within one token TTL
	// window, since FIFO eviction discards the oldest entries on overflow.
	DefaultCacheMaxSize = 10000
	// DefaultStoreTimeout bounds every durable-store call
	DefaultStoreTimeout = 2 * time.Second

	reasonLogout = "logout"
)

// BlacklistConfig holds token blacklist tuning knobs
type BlacklistConfig struct {
	CacheMaxSize int
	StoreTimeout time.Duration
}

// DefaultBlacklistConfig returns the default blacklist configuration
func DefaultBlacklistConfig() BlacklistConfig {
	return BlacklistConfig{
		CacheMaxSize: DefaultCacheMaxSize,
		StoreTimeout: DefaultStoreTimeout,
	}
}

// Blacklist is a two-tier revocation store: a bounded FIFO-evicting
// in-memory cache in front of a durable store. The cache gives
// sub-millisecond lookups for hot tokens; the store survives restarts
// and is shared across processes.
//
// Store failures never propagate: Add degrades to cache-only and
// Contains fails open (treats the token as not revoked). Both outcomes
// are logged. The race between a logout and a concurrently in-flight
// request using the same token is accepted and bounded by token TTL.
type Blacklist struct {
	store        BlacklistStore
	storeTimeout time.Duration
	maxSize      int
	logger       *observability.Logger
	metrics      *observability.Metrics

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // insertion order, front = oldest
}

type blacklistEntry struct {
	fingerprint string
	expiresAt   time.Time
}

// NewBlacklist creates a token blacklist. store may be nil for a
// cache-only blacklist (revocations then do not survive restarts).
func NewBlacklist(store BlacklistStore, cfg BlacklistConfig, logger *observability.Logger, metrics *observability.Metrics) *Blacklist {
	if cfg.CacheMaxSize <= 0 {
		cfg.CacheMaxSize = DefaultCacheMaxSize
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Blacklist{
		store:        store,
		storeTimeout: cfg.StoreTimeout,
		maxSize:      cfg.CacheMaxSize,
		logger:       logger,
		metrics:      metrics,
		entries:      make(map[string]*list.Element),
		order:        list.New(),
	}
}

// Add revokes a token fingerprint until expiresAt. The durable write
// happens first; if it fails the entry still lands in the cache so
// revocation takes effect locally immediately.
func (b *Blacklist) Add(ctx context.Context, fingerprint string, expiresAt time.Time, userID string) {
	if b.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, b.storeTimeout)
		err := b.store.Insert(storeCtx, fingerprint, expiresAt, userID, reasonLogout)
		cancel()
		if err != nil {
			b.logger.WithError(err).WithField("fingerprint", fingerprint).
				Warn("failed to persist blacklist entry, revocation is cache-only")
			b.metrics.RecordBlacklistStoreError("insert")
		}
	}

	b.mu.Lock()
	b.insertLocked(fingerprint, expiresAt)
	b.mu.Unlock()
}

// Contains reports whether a fingerprint is revoked. Cache first; on a
// miss the durable store is consulted once and a hit is promoted into
// the cache. Store errors fail open.
func (b *Blacklist) Contains(ctx context.Context, fingerprint string) bool {
	now := time.Now()

	b.mu.Lock()
	if elem, ok := b.entries[fingerprint]; ok {
		entry := elem.Value.(*blacklistEntry)
		if entry.expiresAt.After(now) {
			b.mu.Unlock()
			return true
		}
		// Expired entry: the token would fail decode anyway, drop it
		b.removeLocked(elem)
		b.mu.Unlock()
		return false
	}
	b.mu.Unlock()

	if b.store == nil {
		return false
	}

	storeCtx, cancel := context.WithTimeout(ctx, b.storeTimeout)
	expiresAt, found, err := b.store.Lookup(storeCtx, fingerprint)
	cancel()
	if err != nil {
		b.logger.WithError(err).Warn("failed to check blacklist store, failing open")
		b.metrics.RecordBlacklistStoreError("lookup")
		return false
	}
	if !found {
		return false
	}

	b.mu.Lock()
	b.insertLocked(fingerprint, expiresAt)
	b.mu.Unlock()
	return true
}

// BlacklistStats describes the current blacklist state
type BlacklistStats struct {
	CacheSize      int   `json:"cache_size"`
	CacheMaxSize   int   `json:"cache_max_size"`
	StoreActive    int64 `json:"store_active_tokens"`
	StoreAvailable bool  `json:"store_available"`
}

// Stats returns cache and store statistics. A store error leaves
// StoreAvailable false rather than failing the call.
func (b *Blacklist) Stats(ctx context.Context) BlacklistStats {
	b.mu.Lock()
	stats := BlacklistStats{
		CacheSize:    len(b.entries),
		CacheMaxSize: b.maxSize,
	}
	b.mu.Unlock()

	if b.store == nil {
		return stats
	}

	storeCtx, cancel := context.WithTimeout(ctx, b.storeTimeout)
	count, err := b.store.CountActive(storeCtx)
	cancel()
	if err != nil {
		b.logger.WithError(err).Warn("failed to count active blacklist entries")
		return stats
	}
	stats.StoreActive = count
	stats.StoreAvailable = true
	return stats
}

// Sweep removes expired entries from the cache and the durable store.
// Intended to run on a schedule.
func (b *Blacklist) Sweep(ctx context.Context) (cacheRemoved int, storeRemoved int64) {
	now := time.Now()

	b.mu.Lock()
	for elem := b.order.Front(); elem != nil; {
		next := elem.Next()
		if !elem.Value.(*blacklistEntry).expiresAt.After(now) {
			b.removeLocked(elem)
			cacheRemoved++
		}
		elem = next
	}
	b.mu.Unlock()

	if b.store != nil {
		storeCtx, cancel := context.WithTimeout(ctx, b.storeTimeout)
		removed, err := b.store.DeleteExpired(storeCtx)
		cancel()
		if err != nil {
			b.logger.WithError(err).Warn("failed to delete expired blacklist entries from store")
		} else {
			storeRemoved = removed
		}
	}

	return cacheRemoved, storeRemoved
}

// insertLocked adds or refreshes an entry, evicting the oldest inserted
// entries when the cache exceeds capacity. Caller holds b.mu.
func (b *Blacklist) insertLocked(fingerprint string, expiresAt time.Time) {
	if elem, ok := b.entries[fingerprint]; ok {
		// Refresh in place, keeping the original insertion order
		elem.Value.(*blacklistEntry).expiresAt = expiresAt
		return
	}

	b.entries[fingerprint] = b.order.PushBack(&blacklistEntry{
		fingerprint: fingerprint,
		expiresAt:   expiresAt,
	})

	for len(b.entries) > b.maxSize {
		oldest := b.order.Front()
		b.removeLocked(oldest)
	}

	b.metrics.SetBlacklistCacheSize(len(b.entries))
}

// removeLocked drops an entry. Caller holds b.mu.
func (b *Blacklist) removeLocked(elem *list.Element) {
	b.order.Remove(elem)
	delete(b.entries, elem.Value.(*blacklistEntry).fingerprint)
	b.metrics.SetBlacklistCacheSize(len(b.entries))
}
