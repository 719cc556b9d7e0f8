package azure

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/efs-sdk/accessmanager/internal/core"
)

var _ core.AccountResolver = (*CachingResolver)(nil)

// CachingResolver remembers successful resolutions for a while.
// Failed lookups are never cached so a newly created account shows up at once.
type CachingResolver struct {
	next  core.AccountResolver
	cache *expirable.LRU[string, *core.StorageAccount]
}

func NewCachingResolver(next core.AccountResolver, size int, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		next:  next,
		cache: expirable.NewLRU[string, *core.StorageAccount](size, nil, ttl),
	}
}

func (c *CachingResolver) Resolve(ctx context.Context, organization string) (*core.StorageAccount, error) {
	key := strings.ToLower(organization)
	if account, ok := c.cache.Get(key); ok {
		return account, nil
	}
	account, err := c.next.Resolve(ctx, organization)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, account)
	return account, nil
}

// Purge drops every cached resolution.
func (c *CachingResolver) Purge() {
	c.cache.Purge()
}
