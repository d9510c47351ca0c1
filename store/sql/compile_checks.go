package sqlstore

import "github.com/goliatone/go-orderflow/core"

var (
	_ core.Registry               = (*OrderStore)(nil)
	_ core.Registry               = (*CachedOrderStore)(nil)
	_ core.DispatchLedger         = (*NotificationDispatchStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
