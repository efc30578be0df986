package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/merchkit/storefront/internal/upstream"
	"github.com/merchkit/storefront/pkg/config"
	pkgerrors "github.com/merchkit/storefront/pkg/errors"
	"github.com/merchkit/storefront/pkg/logger"
	"github.com/merchkit/storefront/pkg/redis"
)

// Snapshot is everything a storefront page needs in one load.
type Snapshot struct {
	Store      *upstream.Store      `json:"store"`
	Products   []upstream.Product   `json:"products"`
	Categories []upstream.Category  `json:"categories"`
	Promotions []upstream.Promotion `json:"promotions"`
}

// Hooks is the optional merchant-integration surface invoked after each
// successful load. A nil Hooks is valid; a failing hook is logged and never
// breaks the page.
type Hooks interface {
	StorefrontLoaded(ctx context.Context, snapshot *Snapshot) error
}

type cacheStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	CacheKey(parts ...string) string
}

// Params collects the loader's dependencies.
type Params struct {
	Upstream *upstream.Client
	Cache    cacheStore
	CacheCfg config.CacheConfig
	Hooks    Hooks
	Logger   *logger.Logger
}

// Loader assembles storefront snapshots from the store API, with a short-TTL
// Redis cache in front of the unfiltered catalog.
type Loader struct {
	upstream *upstream.Client
	cache    cacheStore
	cacheCfg config.CacheConfig
	hooks    Hooks
	logger   *logger.Logger
}

// New fails fast when the upstream client is missing; everything else is
// optional.
func New(params Params) (*Loader, error) {
	if params.Upstream == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	return &Loader{
		upstream: params.Upstream,
		cache:    params.Cache,
		cacheCfg: params.CacheCfg,
		hooks:    params.Hooks,
		logger:   params.Logger,
	}, nil
}

// Load fetches the full storefront for the slug. Store, products, and
// categories are joined fatally; promotions degrade to empty on failure.
// Filtered product queries bypass the snapshot cache.
func (l *Loader) Load(ctx context.Context, slug string, filters upstream.ProductFilters) (*Snapshot, error) {
	cacheable := filters.IsZero()
	if cacheable {
		if snapshot := l.fromCache(ctx, slug); snapshot != nil {
			return snapshot, nil
		}
	}

	api, err := l.upstream.ForStore(slug)
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		store, err := api.GetStore(gctx)
		if err != nil {
			return err
		}
		snapshot.Store = store
		return nil
	})
	g.Go(func() error {
		products, err := api.GetProducts(gctx, filters)
		if err != nil {
			return err
		}
		snapshot.Products = products
		return nil
	})
	g.Go(func() error {
		categories, err := api.GetCategories(gctx)
		if err != nil {
			return err
		}
		snapshot.Categories = categories
		return nil
	})
	g.Go(func() error {
		promotions, err := api.GetPromotions(gctx)
		if err != nil {
			if l.logger != nil {
				l.logger.Warn(l.logger.WithStoreSlug(ctx, slug), "promotions unavailable, rendering without them")
			}
			return nil
		}
		snapshot.Promotions = promotions
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cacheable {
		l.toCache(ctx, slug, snapshot)
	}
	l.invokeHooks(ctx, slug, snapshot)
	return snapshot, nil
}

// LoadStore fetches only the store settings, for flows that do not need the
// catalog.
func (l *Loader) LoadStore(ctx context.Context, slug string) (*upstream.Store, error) {
	if snapshot := l.fromCache(ctx, slug); snapshot != nil {
		return snapshot.Store, nil
	}
	api, err := l.upstream.ForStore(slug)
	if err != nil {
		return nil, err
	}
	return api.GetStore(ctx)
}

func (l *Loader) fromCache(ctx context.Context, slug string) *Snapshot {
	if l.cache == nil || !l.cacheCfg.Enabled {
		return nil
	}
	raw, err := l.cache.Get(ctx, l.cache.CacheKey("catalog", slug))
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		if l.logger != nil {
			l.logger.Warn(l.logger.WithStoreSlug(ctx, slug), "catalog cache read failed")
		}
		return nil
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil || snapshot.Store == nil {
		return nil
	}
	return &snapshot
}

func (l *Loader) toCache(ctx context.Context, slug string, snapshot *Snapshot) {
	if l.cache == nil || !l.cacheCfg.Enabled {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := l.cache.Set(ctx, l.cache.CacheKey("catalog", slug), payload, l.cacheCfg.CatalogTTL); err != nil {
		if l.logger != nil {
			l.logger.Warn(l.logger.WithStoreSlug(ctx, slug), "catalog cache write failed")
		}
	}
}

func (l *Loader) invokeHooks(ctx context.Context, slug string, snapshot *Snapshot) {
	if l.hooks == nil {
		return
	}
	if err := l.hooks.StorefrontLoaded(ctx, snapshot); err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeIntegration, err, "storefront hook failed")
		if l.logger != nil {
			l.logger.Error(l.logger.WithStoreSlug(ctx, slug), "storefront hook failed", wrapped)
		}
	}
}
