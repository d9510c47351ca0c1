package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestRegistry() *MemoryRegistry {
	registry := NewMemoryRegistry()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	registry.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return registry
}

func mustCreate(t *testing.T, registry *MemoryRegistry, customerID string) Order {
	t.Helper()
	order, err := registry.Create(context.Background(), CreateOrderInput{
		CustomerID:   customerID,
		CustomerName: "Customer " + customerID,
		ImageRef:     "file-" + customerID,
	})
	if err != nil {
		t.Fatalf("create order for %s: %v", customerID, err)
	}
	return order
}

func TestMemoryRegistry_CreateStartsAwaitingTierSelection(t *testing.T) {
	registry := newTestRegistry()
	order := mustCreate(t, registry, "cust-1")

	if order.State != StateAwaitingTierSelection {
		t.Fatalf("expected new order in %s, got %s", StateAwaitingTierSelection, order.State)
	}
	if len(order.ID) != OrderIDLength {
		t.Fatalf("expected %d-char order id, got %q", OrderIDLength, order.ID)
	}
	if order.CreatedAt.IsZero() || order.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
}

func TestMemoryRegistry_SecondActiveOrderRejected(t *testing.T) {
	registry := newTestRegistry()
	mustCreate(t, registry, "cust-1")

	_, err := registry.Create(context.Background(), CreateOrderInput{
		CustomerID: "cust-1",
		ImageRef:   "another-file",
	})
	if !IsDuplicateActive(err) {
		t.Fatalf("expected duplicate-active rejection, got %v", err)
	}

	orders, err := registry.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(orders))
	}
}

func TestMemoryRegistry_IDCollisionRegenerated(t *testing.T) {
	registry := newTestRegistry()
	ids := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	registry.newID = func() string {
		id := ids[0]
		if len(ids) > 1 {
			ids = ids[1:]
		}
		return id
	}

	first := mustCreate(t, registry, "cust-1")
	second := mustCreate(t, registry, "cust-2")

	if first.ID != "aaaaaaaa" {
		t.Fatalf("unexpected first id %q", first.ID)
	}
	if second.ID != "bbbbbbbb" {
		t.Fatalf("expected collision to regenerate, got %q", second.ID)
	}
}

func TestMemoryRegistry_UpdateRejectsStaleState(t *testing.T) {
	registry := newTestRegistry()
	order := mustCreate(t, registry, "cust-1")

	_, err := registry.Update(context.Background(), order.ID, StateAwaitingTierSelection, func(o *Order) error {
		o.TierPrice = 30
		o.State = StateAwaitingPayment
		return nil
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}

	_, err = registry.Update(context.Background(), order.ID, StateAwaitingTierSelection, func(o *Order) error {
		o.State = StateAwaitingPayment
		return nil
	})
	if !IsStaleTransition(err) {
		t.Fatalf("expected stale-transition conflict, got %v", err)
	}
}

func TestMemoryRegistry_UpdateErrorCommitsNothing(t *testing.T) {
	registry := newTestRegistry()
	order := mustCreate(t, registry, "cust-1")

	_, err := registry.Update(context.Background(), order.ID, StateAwaitingTierSelection, func(o *Order) error {
		o.State = StateAwaitingPayment
		return orderBadInput("core: boom", nil)
	})
	if err == nil {
		t.Fatalf("expected mutator error to propagate")
	}

	got, err := registry.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != StateAwaitingTierSelection {
		t.Fatalf("expected state unchanged, got %s", got.State)
	}
}

func TestMemoryRegistry_TerminalStateFreesCustomer(t *testing.T) {
	registry := newTestRegistry()
	order := mustCreate(t, registry, "cust-1")

	_, err := registry.Update(context.Background(), order.ID, StateAwaitingTierSelection, func(o *Order) error {
		o.State = StateCancelled
		return nil
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := registry.FindActiveByCustomer(context.Background(), "cust-1"); !IsNotFound(err) {
		t.Fatalf("expected no active order after cancel, got %v", err)
	}

	replacement := mustCreate(t, registry, "cust-1")
	if replacement.ID == order.ID {
		t.Fatalf("expected a fresh order id")
	}

	// The cancelled order stays retained for status queries.
	retained, err := registry.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get cancelled order: %v", err)
	}
	if retained.State != StateCancelled {
		t.Fatalf("expected retained order cancelled, got %s", retained.State)
	}
}

func TestMemoryRegistry_ListByStateTracksTransitions(t *testing.T) {
	registry := newTestRegistry()
	order := mustCreate(t, registry, "cust-1")
	mustCreate(t, registry, "cust-2")

	awaiting, err := registry.ListByState(context.Background(), StateAwaitingTierSelection)
	if err != nil {
		t.Fatalf("list by state: %v", err)
	}
	if len(awaiting) != 2 {
		t.Fatalf("expected 2 awaiting orders, got %d", len(awaiting))
	}

	if _, err := registry.Update(context.Background(), order.ID, StateAwaitingTierSelection, func(o *Order) error {
		o.TierPrice = 20
		o.State = StateAwaitingPayment
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	awaiting, err = registry.ListByState(context.Background(), StateAwaitingTierSelection)
	if err != nil {
		t.Fatalf("list by state: %v", err)
	}
	if len(awaiting) != 1 {
		t.Fatalf("expected 1 awaiting order after transition, got %d", len(awaiting))
	}
	paying, err := registry.ListByState(context.Background(), StateAwaitingPayment)
	if err != nil {
		t.Fatalf("list by state: %v", err)
	}
	if len(paying) != 1 || paying[0].ID != order.ID {
		t.Fatalf("expected the transitioned order in %s", StateAwaitingPayment)
	}
}

func TestMemoryRegistry_ListIsOldestFirst(t *testing.T) {
	registry := newTestRegistry()
	first := mustCreate(t, registry, "cust-1")
	second := mustCreate(t, registry, "cust-2")
	third := mustCreate(t, registry, "cust-3")

	orders, err := registry.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{first.ID, second.ID, third.ID}
	for idx, order := range orders {
		if order.ID != want[idx] {
			t.Fatalf("unexpected ordering at %d: got %s want %s", idx, order.ID, want[idx])
		}
	}
}

func TestMemoryRegistry_ConcurrentUpdateSingleWinner(t *testing.T) {
	registry := newTestRegistry()
	order := mustCreate(t, registry, "cust-1")

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	losses := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Update(context.Background(), order.ID, StateAwaitingTierSelection, func(o *Order) error {
				o.TierPrice = 30
				o.State = StateAwaitingPayment
				return nil
			})
			if err != nil {
				losses <- err
				return
			}
			wins <- struct{}{}
		}()
	}
	wg.Wait()
	close(wins)
	close(losses)

	if got := len(wins); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
	for err := range losses {
		if !IsStaleTransition(err) {
			t.Fatalf("expected losers to observe stale transitions, got %v", err)
		}
	}
}

func TestMemoryRegistry_ConcurrentCreatesKeepInvariant(t *testing.T) {
	registry := newTestRegistry()

	const attempts = 16
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Create(context.Background(), CreateOrderInput{
				CustomerID: "cust-1",
				ImageRef:   "file",
			})
		}()
	}
	wg.Wait()

	orders, err := registry.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	active := 0
	for _, order := range orders {
		if order.Active() {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected one active order under concurrent creates, got %d", active)
	}
}
