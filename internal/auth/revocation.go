package auth

import (
	"sync"
	"time"
)

// RevocationList is an in-memory set of revoked token IDs. Entries carry the
// token's own expiry so the set never outgrows the live token population.
type RevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewRevocationList creates a revocation list that prunes expired entries
// every cleanupInterval.
func NewRevocationList(cleanupInterval time.Duration) *RevocationList {
	rl := &RevocationList{
		entries: make(map[string]time.Time),
	}

	go rl.cleanup(cleanupInterval)

	return rl
}

// Add marks a token ID as revoked until its expiry.
func (rl *RevocationList) Add(tokenID string, expiresAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.entries[tokenID] = expiresAt
}

// Contains reports whether the token ID is revoked and not yet expired.
func (rl *RevocationList) Contains(tokenID string) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	expiresAt, ok := rl.entries[tokenID]
	if !ok {
		return false
	}
	return time.Now().Before(expiresAt)
}

// cleanup periodically removes expired entries to prevent memory leaks
func (rl *RevocationList) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		rl.prune()
	}
}

func (rl *RevocationList) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for id, expiresAt := range rl.entries {
		if now.After(expiresAt) {
			delete(rl.entries, id)
		}
	}
}
