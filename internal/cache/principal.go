package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tallyhub/tallyhub/internal/model"
)

const (
	// principalCachePrefix is the Redis key prefix for cached principals.
	principalCachePrefix = "principal:"
	// DefaultPrincipalTTL is used when no TTL is configured.
	DefaultPrincipalTTL = time.Minute
)

// cachedPrincipal is the stored form. Only active users are cached.
type cachedPrincipal struct {
	UserID    string `json:"uid"`
	Username  string `json:"un"`
	Superuser bool   `json:"su,omitempty"`
}

func principalKey(userID string) string {
	return principalCachePrefix + userID
}

func encodePrincipal(p model.Principal) ([]byte, error) {
	return json.Marshal(cachedPrincipal{
		UserID:    p.UserID,
		Username:  p.Username,
		Superuser: p.Superuser,
	})
}

func decodePrincipal(data []byte) (*model.Principal, bool) {
	var cached cachedPrincipal
	if err := json.Unmarshal(data, &cached); err != nil || cached.UserID == "" {
		return nil, false
	}
	return &model.Principal{
		UserID:        cached.UserID,
		Username:      cached.Username,
		Superuser:     cached.Superuser,
		Authenticated: true,
	}, true
}

// GetPrincipal returns the cached principal for userID.
// Returns nil on a miss; a corrupted entry counts as a miss.
func (c *Cache) GetPrincipal(ctx context.Context, userID string) (*model.Principal, error) {
	data, err := c.client.Get(ctx, principalKey(userID)).Bytes()
	if err != nil {
		c.metrics.IncPrincipalCacheMiss()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}

	p, ok := decodePrincipal(data)
	if !ok {
		c.metrics.IncPrincipalCacheMiss()
		return nil, nil
	}
	c.metrics.IncPrincipalCacheHit()
	return p, nil
}

// SetPrincipal caches an authenticated principal.
func (c *Cache) SetPrincipal(ctx context.Context, p model.Principal) error {
	if !p.Authenticated || p.UserID == "" {
		return nil
	}
	data, err := encodePrincipal(p)
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}
	return c.client.Set(ctx, principalKey(p.UserID), data, c.ttl).Err()
}

// DeletePrincipal drops a cached principal, e.g. after a role change.
func (c *Cache) DeletePrincipal(ctx context.Context, userID string) error {
	return c.client.Del(ctx, principalKey(userID)).Err()
}
