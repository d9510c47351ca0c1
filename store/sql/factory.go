package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-orderflow/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db    *bun.DB
	cache repositorycache.CacheService

	orderStore                *OrderStore
	cachedOrderStore          *CachedOrderStore
	notificationDispatchStore *NotificationDispatchStore
	outboxStore               *OutboxStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// WithCacheService layers the read cache over the order store. Must be
// applied before BuildStores resolves the store set.
func (f *RepositoryFactory) WithCacheService(cacheService repositorycache.CacheService) *RepositoryFactory {
	if f == nil {
		return nil
	}
	f.cache = cacheService
	return f
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.orderStore != nil && f.notificationDispatchStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

// OrderStore returns the cached registry when a cache service was
// configured, the durable store otherwise.
func (f *RepositoryFactory) OrderStore() core.Registry {
	if f == nil {
		return nil
	}
	if f.cachedOrderStore != nil {
		return f.cachedOrderStore
	}
	if f.orderStore == nil {
		return nil
	}
	return f.orderStore
}

func (f *RepositoryFactory) DispatchLedger() core.DispatchLedger {
	if f == nil || f.notificationDispatchStore == nil {
		return nil
	}
	return f.notificationDispatchStore
}

func (f *RepositoryFactory) NotificationOutbox() core.NotificationOutbox {
	if f == nil || f.outboxStore == nil {
		return nil
	}
	return f.outboxStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	orderStore, err := NewOrderStore(f.db)
	if err != nil {
		return err
	}
	f.orderStore = orderStore

	if f.cache != nil {
		cachedOrderStore, cacheErr := NewCachedOrderStore(orderStore, f.cache)
		if cacheErr != nil {
			return cacheErr
		}
		f.cachedOrderStore = cachedOrderStore
	}

	notificationDispatchStore, err := NewNotificationDispatchStore(f.db)
	if err != nil {
		return err
	}
	f.notificationDispatchStore = notificationDispatchStore

	outboxStore, err := NewOutboxStore(f.db)
	if err != nil {
		return err
	}
	f.outboxStore = outboxStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
