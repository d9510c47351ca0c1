package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureDeliverer struct {
	mu        sync.Mutex
	delivered []Notification
	failures  map[string]int
}

func (d *captureDeliverer) Deliver(ctx context.Context, note Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures != nil && d.failures[note.ID] > 0 {
		d.failures[note.ID]--
		return errors.New("transport unavailable")
	}
	d.delivered = append(d.delivered, note)
	return nil
}

func (d *captureDeliverer) kinds() []NotificationKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	kinds := make([]NotificationKind, 0, len(d.delivered))
	for _, note := range d.delivered {
		kinds = append(kinds, note.Kind)
	}
	return kinds
}

type memoryLedger struct {
	mu   sync.Mutex
	seen map[string]DispatchRecord
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{seen: make(map[string]DispatchRecord)}
}

func (l *memoryLedger) Seen(ctx context.Context, idempotencyKey string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[idempotencyKey]
	return ok, nil
}

func (l *memoryLedger) Record(ctx context.Context, entry DispatchRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[entry.IdempotencyKey] = entry
	return nil
}

func TestMemoryOutbox_ClaimAckRetry(t *testing.T) {
	outbox := NewMemoryOutbox()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := outbox.Enqueue(ctx, Notification{Kind: NoteMenu}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	claimed, err := outbox.ClaimBatch(ctx, 2)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected 2 claimed, got %d", len(claimed))
	}
	if outbox.Pending() != 1 {
		t.Fatalf("expected 1 pending after claim, got %d", outbox.Pending())
	}

	if err := outbox.Ack(ctx, claimed[0].ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := outbox.Ack(ctx, claimed[0].ID); !IsNotFound(err) {
		t.Fatalf("double ack should fail, got %v", err)
	}

	if err := outbox.Retry(ctx, claimed[1], time.Now().Add(-time.Second), errors.New("boom")); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if outbox.Pending() != 2 {
		t.Fatalf("expected retried entry back in pending, got %d", outbox.Pending())
	}

	claimed, err = outbox.ClaimBatch(ctx, 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	for _, note := range claimed {
		if note.ID == "" {
			t.Fatalf("expected ids assigned on enqueue")
		}
	}
}

func TestMemoryOutbox_BackoffHidesEntries(t *testing.T) {
	outbox := NewMemoryOutbox()
	ctx := context.Background()

	if err := outbox.Enqueue(ctx, Notification{Kind: NoteMenu}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	claimed, err := outbox.ClaimBatch(ctx, 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("claim: %v (%d)", err, len(claimed))
	}
	if err := outbox.Retry(ctx, claimed[0], time.Now().Add(time.Hour), errors.New("boom")); err != nil {
		t.Fatalf("retry: %v", err)
	}

	claimed, err = outbox.ClaimBatch(ctx, 1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("backoff entry must stay hidden, got %d", len(claimed))
	}
}

func TestNotificationDispatcher_DeliversAndDedupes(t *testing.T) {
	outbox := NewMemoryOutbox()
	deliverer := &captureDeliverer{}
	ledger := newMemoryLedger()
	dispatcher, err := NewNotificationDispatcher(outbox, deliverer, DispatchConfig{}, WithDispatchLedger(ledger))
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	ctx := context.Background()

	note := Notification{ID: "note-1", Kind: NoteCompleted, OrderID: "ord-1", RecipientKey: "cust-1", Recipient: RecipientCustomer}
	if err := outbox.Enqueue(ctx, note); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, err := dispatcher.DispatchPending(ctx, 0)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if stats.Delivered != 1 {
		t.Fatalf("expected 1 delivered, got %+v", stats)
	}

	// A replayed entry with the same identity is absorbed by the ledger.
	if err := outbox.Enqueue(ctx, note); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	stats, err = dispatcher.DispatchPending(ctx, 0)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if stats.Delivered != 1 || len(deliverer.delivered) != 1 {
		t.Fatalf("expected dedupe to skip transport, got stats %+v deliveries %d", stats, len(deliverer.delivered))
	}
}

func TestNotificationDispatcher_RetriesThenDelivers(t *testing.T) {
	outbox := NewMemoryOutbox()
	moment := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	outbox.now = func() time.Time { return moment }

	deliverer := &captureDeliverer{failures: map[string]int{"note-1": 1}}
	dispatcher, err := NewNotificationDispatcher(outbox, deliverer, DispatchConfig{InitialBackoff: time.Second})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	dispatcher.now = func() time.Time { return moment }
	ctx := context.Background()

	if err := outbox.Enqueue(ctx, Notification{ID: "note-1", Kind: NoteMenu}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, dispatchErr := dispatcher.DispatchPending(ctx, 0)
	if dispatchErr == nil {
		t.Fatalf("expected first pass to report the delivery error")
	}
	if stats.Retried != 1 || stats.Delivered != 0 {
		t.Fatalf("expected a retry on first pass, got %+v", stats)
	}

	moment = moment.Add(time.Minute)
	stats, dispatchErr = dispatcher.DispatchPending(ctx, 0)
	if dispatchErr != nil {
		t.Fatalf("second pass: %v", dispatchErr)
	}
	if stats.Delivered != 1 {
		t.Fatalf("expected delivery on second pass, got %+v", stats)
	}
}

func TestNotificationDispatcher_DropsAfterMaxAttempts(t *testing.T) {
	outbox := NewMemoryOutbox()
	moment := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	outbox.now = func() time.Time { return moment }

	deliverer := &captureDeliverer{failures: map[string]int{"note-1": 100}}
	dispatcher, err := NewNotificationDispatcher(outbox, deliverer, DispatchConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Second,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	dispatcher.now = func() time.Time { return moment }
	ctx := context.Background()

	if err := outbox.Enqueue(ctx, Notification{ID: "note-1", Kind: NoteMenu}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, _ := dispatcher.DispatchPending(ctx, 0)
	if stats.Retried != 1 {
		t.Fatalf("expected retry on first pass, got %+v", stats)
	}

	moment = moment.Add(time.Hour)
	stats, _ = dispatcher.DispatchPending(ctx, 0)
	if stats.Failed != 1 {
		t.Fatalf("expected drop at max attempts, got %+v", stats)
	}
	if outbox.Pending() != 0 {
		t.Fatalf("dropped entry must leave the outbox, got %d pending", outbox.Pending())
	}
}
