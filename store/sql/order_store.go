package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-orderflow/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// OrderStore is the durable core.Registry. Compare-and-transition
// updates run inside a transaction so concurrent attempts on the same
// order serialize at the database.
type OrderStore struct {
	db    *bun.DB
	repo  repository.Repository[*orderRecord]
	newID func() string
}

// OrderStoreOption customizes an OrderStore.
type OrderStoreOption func(*OrderStore)

// WithOrderIDGenerator overrides the short-id mint. The store still
// regenerates on collision.
func WithOrderIDGenerator(generate func() string) OrderStoreOption {
	return func(s *OrderStore) {
		if generate != nil {
			s.newID = generate
		}
	}
}

func NewOrderStore(db *bun.DB, opts ...OrderStoreOption) (*OrderStore, error) {
	if db == nil {
		return nil, storeInternal("sqlstore: bun db is required", nil)
	}
	repo := repository.NewRepository[*orderRecord](db, orderHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, storeInternal("sqlstore: invalid order repository wiring", map[string]any{"cause": err.Error()})
		}
	}
	store := &OrderStore{db: db, repo: repo, newID: core.NewOrderID}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func terminalStates() []string {
	return []string{
		string(core.StateCompleted),
		string(core.StateRejected),
		string(core.StateCancelled),
	}
}

func (s *OrderStore) Create(ctx context.Context, in core.CreateOrderInput) (core.Order, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Order{}, storeInternal("sqlstore: order store is not configured", nil)
	}
	if err := in.Validate(); err != nil {
		return core.Order{}, err
	}

	now := time.Now().UTC()
	base := orderRecord{
		CustomerID:       strings.TrimSpace(in.CustomerID),
		CustomerName:     strings.TrimSpace(in.CustomerName),
		OriginalImageRef: strings.TrimSpace(in.ImageRef),
		State:            string(core.StateAwaitingTierSelection),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var created core.Order
	var err error
	for attempt := 0; attempt < createIDAttempts; attempt++ {
		record := base
		record.ID = s.newID()
		err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			existing := new(orderRecord)
			scanErr := tx.NewSelect().
				Model(existing).
				Where("customer_id = ?", record.CustomerID).
				Where("state NOT IN (?)", bun.In(terminalStates())).
				Limit(1).
				Scan(ctx)
			switch {
			case scanErr == nil:
				return storeDuplicateActive(record.CustomerID, existing.ID)
			case !errors.Is(scanErr, sql.ErrNoRows):
				return scanErr
			}

			taken, takenErr := tx.NewSelect().
				Model((*orderRecord)(nil)).
				Where("id = ?", record.ID).
				Exists(ctx)
			if takenErr != nil {
				return takenErr
			}
			if taken {
				return errOrderIDTaken
			}

			if _, insertErr := tx.NewInsert().
				Model(&record).
				Exec(ctx); insertErr != nil {
				if isOrderIDConflict(insertErr) {
					return errOrderIDTaken
				}
				return insertErr
			}
			created = record.toDomain()
			return nil
		})
		if !errors.Is(err, errOrderIDTaken) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, errOrderIDTaken) {
			return core.Order{}, storeInternal("sqlstore: could not allocate a unique order id", nil)
		}
		return core.Order{}, err
	}
	return created, nil
}

// createIDAttempts bounds short-id regeneration before giving up.
const createIDAttempts = 5

var errOrderIDTaken = errors.New("sqlstore: order id already taken")

// isOrderIDConflict recognizes a primary-key unique violation from
// either shipped dialect so a racing mint retries with a fresh id.
func isOrderIDConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate key") {
		return false
	}
	return strings.Contains(msg, "orders.id") || strings.Contains(msg, "orders_pkey")
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (core.Order, error) {
	if s == nil || s.repo == nil {
		return core.Order{}, storeInternal("sqlstore: order store is not configured", nil)
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return core.Order{}, storeBadInput("sqlstore: order id is required", nil)
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", id),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Order{}, err
	}
	if len(records) == 0 {
		return core.Order{}, storeNotFound("sqlstore: order not found", map[string]any{"order_id": id})
	}
	return records[0].toDomain(), nil
}

func (s *OrderStore) FindActiveByCustomer(ctx context.Context, customerID string) (core.Order, error) {
	if s == nil || s.repo == nil {
		return core.Order{}, storeInternal("sqlstore: order store is not configured", nil)
	}
	id := strings.TrimSpace(customerID)
	if id == "" {
		return core.Order{}, storeBadInput("sqlstore: customer id is required", nil)
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("customer_id", "=", id),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.state NOT IN (?)", bun.In(terminalStates()))
		}),
		repository.OrderBy("created_at ASC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Order{}, err
	}
	if len(records) == 0 {
		return core.Order{}, storeNotFound("sqlstore: customer has no active order", map[string]any{"customer_id": id})
	}
	return records[0].toDomain(), nil
}

func (s *OrderStore) Update(
	ctx context.Context,
	orderID string,
	expected core.State,
	mutate func(*core.Order) error,
) (core.Order, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.Order{}, storeInternal("sqlstore: order store is not configured", nil)
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return core.Order{}, storeBadInput("sqlstore: order id is required", nil)
	}
	if mutate == nil {
		return core.Order{}, storeBadInput("sqlstore: mutator is required", nil)
	}

	var updated core.Order
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current := new(orderRecord)
		scanErr := tx.NewSelect().
			Model(current).
			Where("id = ?", id).
			Limit(1).
			Scan(ctx)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return storeNotFound("sqlstore: order not found", map[string]any{"order_id": id})
		}
		if scanErr != nil {
			return scanErr
		}
		if core.State(current.State) != expected {
			return storeStale(id, expected, core.State(current.State))
		}

		working := current.toDomain()
		if mutateErr := mutate(&working); mutateErr != nil {
			return mutateErr
		}
		if !working.State.Valid() {
			return storeInternal("sqlstore: mutator produced an invalid state", map[string]any{
				"order_id": id,
				"state":    string(working.State),
			})
		}
		working.ID = current.ID
		working.CustomerID = current.CustomerID
		working.CreatedAt = current.CreatedAt
		working.UpdatedAt = time.Now().UTC()

		next := orderRecordFromDomain(working)
		if _, updateErr := tx.NewUpdate().
			Model(next).
			WherePK().
			Exec(ctx); updateErr != nil {
			return updateErr
		}
		updated = working
		return nil
	})
	if err != nil {
		return core.Order{}, err
	}
	return updated, nil
}

func (s *OrderStore) List(ctx context.Context) ([]core.Order, error) {
	if s == nil || s.repo == nil {
		return nil, storeInternal("sqlstore: order store is not configured", nil)
	}
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("created_at ASC"),
		repository.OrderBy("id ASC"),
	)
	if err != nil {
		return nil, err
	}
	return toDomainOrders(records), nil
}

func (s *OrderStore) ListByState(ctx context.Context, state core.State) ([]core.Order, error) {
	if s == nil || s.repo == nil {
		return nil, storeInternal("sqlstore: order store is not configured", nil)
	}
	if !state.Valid() {
		return nil, storeBadInput("sqlstore: unknown order state", map[string]any{"state": string(state)})
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("state", "=", string(state)),
		repository.OrderBy("created_at ASC"),
		repository.OrderBy("id ASC"),
	)
	if err != nil {
		return nil, err
	}
	return toDomainOrders(records), nil
}

func toDomainOrders(records []*orderRecord) []core.Order {
	out := make([]core.Order, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out
}
