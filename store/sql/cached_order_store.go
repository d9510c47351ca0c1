package sqlstore

import (
	"context"
	"net/url"
	"strings"

	"github.com/goliatone/go-orderflow/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const orderCacheKeyPrefix = "go-orderflow::order::v1"

// CachedOrderStore layers a read cache over the durable order store.
// Point reads are served from cache; every mutation deletes the keys
// it may have invalidated before the caller observes the result.
type CachedOrderStore struct {
	base  core.Registry
	cache repositorycache.CacheService
}

func NewCachedOrderStore(base core.Registry, cacheService repositorycache.CacheService) (*CachedOrderStore, error) {
	if base == nil {
		return nil, storeInternal("sqlstore: base order store is required", nil)
	}
	if cacheService == nil {
		return nil, storeInternal("sqlstore: order cache service is required", nil)
	}
	return &CachedOrderStore{base: base, cache: cacheService}, nil
}

// OrderCacheKey returns the deterministic cache key contract for order
// point reads: go-orderflow::order::v1::id::<order_id>.
func OrderCacheKey(orderID string) (string, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return "", storeBadInput("sqlstore: order id is required", nil)
	}
	return strings.Join([]string{orderCacheKeyPrefix, "id", url.PathEscape(id)}, "::"), nil
}

// ActiveOrderCacheKey returns the cache key for a customer's single
// active order: go-orderflow::order::v1::active::<customer_id>.
func ActiveOrderCacheKey(customerID string) (string, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return "", storeBadInput("sqlstore: customer id is required", nil)
	}
	return strings.Join([]string{orderCacheKeyPrefix, "active", url.PathEscape(id)}, "::"), nil
}

func (s *CachedOrderStore) Create(ctx context.Context, in core.CreateOrderInput) (core.Order, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Order{}, storeInternal("sqlstore: cached order store is not configured", nil)
	}
	created, err := s.base.Create(ctx, in)
	if err != nil {
		return core.Order{}, err
	}
	if err := s.invalidate(ctx, created); err != nil {
		return core.Order{}, err
	}
	return created, nil
}

func (s *CachedOrderStore) Get(ctx context.Context, orderID string) (core.Order, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Order{}, storeInternal("sqlstore: cached order store is not configured", nil)
	}
	cacheKey, err := OrderCacheKey(orderID)
	if err != nil {
		return core.Order{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Order, error) {
		return s.base.Get(ctx, orderID)
	})
}

func (s *CachedOrderStore) FindActiveByCustomer(ctx context.Context, customerID string) (core.Order, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Order{}, storeInternal("sqlstore: cached order store is not configured", nil)
	}
	cacheKey, err := ActiveOrderCacheKey(customerID)
	if err != nil {
		return core.Order{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Order, error) {
		return s.base.FindActiveByCustomer(ctx, customerID)
	})
}

func (s *CachedOrderStore) Update(
	ctx context.Context,
	orderID string,
	expected core.State,
	mutate func(*core.Order) error,
) (core.Order, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Order{}, storeInternal("sqlstore: cached order store is not configured", nil)
	}
	updated, err := s.base.Update(ctx, orderID, expected, mutate)
	if err != nil {
		return core.Order{}, err
	}
	if err := s.invalidate(ctx, updated); err != nil {
		return core.Order{}, err
	}
	return updated, nil
}

func (s *CachedOrderStore) List(ctx context.Context) ([]core.Order, error) {
	if s == nil || s.base == nil {
		return nil, storeInternal("sqlstore: cached order store is not configured", nil)
	}
	return s.base.List(ctx)
}

func (s *CachedOrderStore) ListByState(ctx context.Context, state core.State) ([]core.Order, error) {
	if s == nil || s.base == nil {
		return nil, storeInternal("sqlstore: cached order store is not configured", nil)
	}
	return s.base.ListByState(ctx, state)
}

func (s *CachedOrderStore) invalidate(ctx context.Context, order core.Order) error {
	orderKey, err := OrderCacheKey(order.ID)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, orderKey); err != nil {
		return err
	}
	activeKey, err := ActiveOrderCacheKey(order.CustomerID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, activeKey)
}
