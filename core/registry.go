package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OrderIDLength is the customer-facing order id width: the first 8 hex
// chars of a v4 UUID. Every Registry implementation mints ids of this
// shape and regenerates on collision inside its critical section.
const OrderIDLength = 8

// NewOrderID mints a short order id. Callers own collision handling.
func NewOrderID() string {
	return uuid.NewString()[:OrderIDLength]
}

// MemoryRegistry is the volatile Registry implementation. A single
// RWMutex guards the primary map and both indexes so every mutation
// observes and updates them transactionally; reads return clones.
type MemoryRegistry struct {
	mu         sync.RWMutex
	orders     map[string]Order
	byCustomer map[string]string // customer id -> active order id
	byState    map[State]map[string]struct{}
	now        func() time.Time
	newID      func() string
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		orders:     make(map[string]Order),
		byCustomer: make(map[string]string),
		byState:    make(map[State]map[string]struct{}),
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: NewOrderID,
	}
}

func (r *MemoryRegistry) Create(ctx context.Context, in CreateOrderInput) (Order, error) {
	if r == nil {
		return Order{}, orderInternal("core: registry is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	if err := in.Validate(); err != nil {
		return Order{}, err
	}
	customerID := strings.TrimSpace(in.CustomerID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if activeID, ok := r.byCustomer[customerID]; ok {
		return Order{}, orderDuplicateActive(customerID, activeID)
	}

	id := r.newID()
	for _, exists := r.orders[id]; exists; _, exists = r.orders[id] {
		id = r.newID()
	}

	order := newOrder(id, in, r.now())
	r.orders[id] = order
	r.byCustomer[customerID] = id
	r.indexState(order.State, id)
	return order.Clone(), nil
}

func (r *MemoryRegistry) Get(ctx context.Context, orderID string) (Order, error) {
	if r == nil {
		return Order{}, orderInternal("core: registry is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	id := strings.TrimSpace(orderID)
	r.mu.RLock()
	order, ok := r.orders[id]
	r.mu.RUnlock()
	if !ok {
		return Order{}, orderNotFound("core: order not found", map[string]any{"order_id": id})
	}
	return order.Clone(), nil
}

func (r *MemoryRegistry) FindActiveByCustomer(ctx context.Context, customerID string) (Order, error) {
	if r == nil {
		return Order{}, orderInternal("core: registry is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	id := strings.TrimSpace(customerID)
	r.mu.RLock()
	orderID, ok := r.byCustomer[id]
	var order Order
	if ok {
		order = r.orders[orderID]
	}
	r.mu.RUnlock()
	if !ok {
		return Order{}, orderNotFound("core: customer has no active order", map[string]any{"customer_id": id})
	}
	return order.Clone(), nil
}

// Update implements the compare-and-transition contract. The mutator
// runs on a working copy inside the critical section; nothing is
// committed when it errors, and the customer/state indexes move with
// the primary map in the same section.
func (r *MemoryRegistry) Update(
	ctx context.Context,
	orderID string,
	expected State,
	mutate func(*Order) error,
) (Order, error) {
	if r == nil {
		return Order{}, orderInternal("core: registry is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	if mutate == nil {
		return Order{}, orderBadInput("core: mutator is required", nil)
	}
	id := strings.TrimSpace(orderID)

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[id]
	if !ok {
		return Order{}, orderNotFound("core: order not found", map[string]any{"order_id": id})
	}
	if current.State != expected {
		return Order{}, orderStale(id, expected, current.State)
	}

	working := current.Clone()
	if err := mutate(&working); err != nil {
		return Order{}, err
	}
	if !working.State.Valid() {
		return Order{}, orderInternal("core: mutator produced an invalid state", map[string]any{
			"order_id": id,
			"state":    string(working.State),
		})
	}
	working.ID = current.ID
	working.CustomerID = current.CustomerID
	working.CreatedAt = current.CreatedAt
	working.UpdatedAt = r.now()

	r.orders[id] = working
	if working.State != current.State {
		r.unindexState(current.State, id)
		r.indexState(working.State, id)
	}
	if working.State.Terminal() {
		if r.byCustomer[working.CustomerID] == id {
			delete(r.byCustomer, working.CustomerID)
		}
	}
	return working.Clone(), nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]Order, error) {
	if r == nil {
		return nil, orderInternal("core: registry is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Order, 0, len(r.orders))
	for _, order := range r.orders {
		out = append(out, order.Clone())
	}
	r.mu.RUnlock()
	sortOrders(out)
	return out, nil
}

func (r *MemoryRegistry) ListByState(ctx context.Context, state State) ([]Order, error) {
	if r == nil {
		return nil, orderInternal("core: registry is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := r.byState[state]
	out := make([]Order, 0, len(ids))
	for id := range ids {
		out = append(out, r.orders[id].Clone())
	}
	r.mu.RUnlock()
	sortOrders(out)
	return out, nil
}

func (r *MemoryRegistry) indexState(state State, orderID string) {
	ids, ok := r.byState[state]
	if !ok {
		ids = make(map[string]struct{})
		r.byState[state] = ids
	}
	ids[orderID] = struct{}{}
}

func (r *MemoryRegistry) unindexState(state State, orderID string) {
	if ids, ok := r.byState[state]; ok {
		delete(ids, orderID)
		if len(ids) == 0 {
			delete(r.byState, state)
		}
	}
}

// sortOrders yields deterministic enumeration: oldest first, order id
// as tiebreak. Delivery resolution without an explicit order id relies
// on this ordering.
func sortOrders(orders []Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

var _ Registry = (*MemoryRegistry)(nil)
