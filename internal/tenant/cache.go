package tenant

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/model"
)

// WrapLruCache caches successful resolutions for ttl. Rejected keys are not
// cached so a freshly provisioned key works on its next request.
func WrapLruCache(next Resolver, size int, ttl time.Duration) Resolver {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruResolver{
		next:  next,
		cache: expirable.NewLRU[string, model.Tenant](size, nil, ttl),
	}
}

type lruResolver struct {
	next  Resolver
	cache *expirable.LRU[string, model.Tenant]
}

func (l *lruResolver) ResolveAPIKey(ctx context.Context, key string) (*model.Tenant, error) {
	cacheKey := HashAPIKey(key)
	if cached, ok := l.cache.Get(cacheKey); ok {
		logutil.GetLogger(ctx).Debug("api key cache hit", zap.Int64("tenant_id", cached.ID))
		t := cached
		return &t, nil
	}
	t, err := l.next.ResolveAPIKey(ctx, key)
	if err != nil {
		return nil, err
	}
	l.cache.Add(cacheKey, *t)
	return t, nil
}
