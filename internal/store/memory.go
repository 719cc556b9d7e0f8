package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/efs-sdk/accessmanager/internal/core"
)

type cacheKey struct {
	class  core.OperationClass
	target core.StorageTarget
}

type cacheEntry struct {
	key   cacheKey
	token core.AccessToken
}

// TokenCache keeps issued tokens in memory so they can be handed out again
// while they are still usable. Entries are scanned in insertion order.
type TokenCache struct {
	mu      sync.RWMutex
	entries []cacheEntry
	buffer  time.Duration
}

// NewTokenCache creates a cache that treats tokens expiring within buffer as stale.
func NewTokenCache(buffer time.Duration) *TokenCache {
	return &TokenCache{
		entries: make([]cacheEntry, 0),
		buffer:  buffer,
	}
}

func keyOf(class core.OperationClass, organization, space string) cacheKey {
	return cacheKey{
		class:  class,
		target: core.StorageTarget{Organization: organization, Space: space}.Key(),
	}
}

// Get returns the token of the first entry matching the key if it is still usable.
// Only the first match is looked at; a stale first match is a miss even if a
// fresher duplicate exists further down.
func (c *TokenCache) Get(class core.OperationClass, organization, space string) (string, bool, error) {
	key := keyOf(class, organization, space)

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.key != key {
			continue
		}
		valid, err := e.token.IsValid(c.buffer)
		if err != nil {
			return "", false, fmt.Errorf("cached %s token for %s: %w", class, key.target, err)
		}
		if !valid {
			return "", false, nil
		}
		return e.token.Token, true, nil
	}
	return "", false, nil
}

// Put appends the token. Existing entries for the same key are left for Sweep.
func (c *TokenCache) Put(token core.AccessToken) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, cacheEntry{
		key:   keyOf(token.Class, token.Organization, token.Space),
		token: token,
	})
}

// Sweep removes every entry that is no longer usable. Malformed entries are
// removed as well and reported through the returned error.
func (c *TokenCache) Sweep() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var (
		result  *multierror.Error
		kept    = make([]cacheEntry, 0, len(c.entries))
		removed int
	)
	for _, e := range c.entries {
		valid, err := e.token.IsValidAt(now, c.buffer)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s token for %s: %w", e.token.Class, e.key.target, err))
		}
		if !valid {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	c.entries = kept
	return removed, result.ErrorOrNil()
}

// Len returns the number of entries, including stale ones not yet swept.
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// List describes all entries. Token values are replaced by their fingerprint.
func (c *TokenCache) List(fingerprint core.Fingerprinter) []core.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	list := make([]core.CacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		item := core.CacheEntry{
			Class:        e.token.Class,
			Organization: e.token.Organization,
			Space:        e.token.Space,
		}
		if fingerprint != nil {
			item.Fingerprint = fingerprint(e.token.Token)
		}
		if expiry, err := e.token.ExpiresAt(); err == nil {
			item.ExpiresAt = expiry
			item.Valid = now.Before(expiry.Add(-c.buffer))
		}
		list = append(list, item)
	}
	return list
}
