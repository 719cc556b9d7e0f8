package client

import (
	"context"

	"github.com/efs-sdk/accessmanager/internal/api"
	"github.com/efs-sdk/accessmanager/internal/core"
)

// ListCachedTokens retrieves the tokens currently held in the server's cache.
func (c *Client) ListCachedTokens(ctx context.Context) ([]core.CacheEntry, string, error) {
	var resp []core.CacheEntry
	correlation, err := c.get(ctx, c.url().
		setPath(api.ListActiveTokensRoute).
		build(), &resp)
	return resp, correlation, err
}
