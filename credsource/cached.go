package credsource

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/flexigpt/skillchain-go/spec"
)

const (
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheMaxHolders = 1024
)

type CacheConfig struct {
	TTL        time.Duration
	MaxHolders int64
}

// Cached wraps a slow CredentialSource (chain indexer, API) with a per-holder
// cache. Concurrent misses for the same holder share one upstream fetch.
// Errors are not cached.
type Cached struct {
	src   spec.CredentialSource
	ttl   time.Duration
	cache *ristretto.Cache[string, []spec.Credential]
	group singleflight.Group

	// joined, when set, runs once a caller is attached to a fetch.
	joined func()
}

var _ spec.CredentialSource = (*Cached)(nil)

func NewCached(src spec.CredentialSource, cfg CacheConfig) (*Cached, error) {
	if src == nil {
		return nil, errors.New("nil credential source")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	maxHolders := cfg.MaxHolders
	if maxHolders <= 0 {
		maxHolders = defaultCacheMaxHolders
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []spec.Credential]{
		NumCounters:        maxHolders * 10,
		MaxCost:            maxHolders,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Cached{src: src, ttl: ttl, cache: cache}, nil
}

// Credentials serves holder from the cache or fetches it upstream. The shared
// fetch is detached from any one caller, so a caller that gives up only stops
// its own wait.
func (c *Cached) Credentials(ctx context.Context, holder string) ([]spec.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := holderKey(holder)
	if creds, ok := c.cache.Get(key); ok {
		return slices.Clone(creds), nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		creds, err := c.src.Credentials(fetchCtx, holder)
		if err != nil {
			return nil, err
		}
		c.cache.SetWithTTL(key, creds, 1, c.ttl)
		c.cache.Wait()
		return creds, nil
	})
	if c.joined != nil {
		c.joined()
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		creds, _ := res.Val.([]spec.Credential)
		return slices.Clone(creds), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached credentials of holder.
func (c *Cached) Invalidate(holder string) {
	c.cache.Del(holderKey(holder))
}

func (c *Cached) Close() {
	c.cache.Close()
}
