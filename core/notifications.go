package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Recipient string

const (
	RecipientCustomer Recipient = "customer"
	RecipientOperator Recipient = "operator"
)

// NotificationKind names the side effect for the delivery collaborator.
type NotificationKind string

const (
	NoteOrderCreated      NotificationKind = "order.created"
	NotePaymentLink       NotificationKind = "order.payment_link"
	NoteProofReceived     NotificationKind = "order.proof_received"
	NoteReviewRequested   NotificationKind = "order.review_requested"
	NoteApproved          NotificationKind = "order.approved"
	NoteRejected          NotificationKind = "order.rejected"
	NoteProofRetry        NotificationKind = "order.proof_retry"
	NoteEmailSaved        NotificationKind = "order.email_saved"
	NoteEmailInvalid      NotificationKind = "order.email_invalid"
	NoteDeliveryRequested NotificationKind = "order.delivery_requested"
	NoteCompleted         NotificationKind = "order.completed"
	NoteCancelled         NotificationKind = "order.cancelled"
	NoteOngoingOrder      NotificationKind = "order.ongoing"
	NoteMenu              NotificationKind = "order.menu"
	NoteStatus            NotificationKind = "order.status"
	NoteContactRequest    NotificationKind = "order.contact_request"
	NoteOriginalImage     NotificationKind = "order.original_image"
	NotePaymentProof      NotificationKind = "order.payment_proof"
)

// Notification is the outbound side-effect description emitted by the
// core for the external delivery collaborator. Delivery is decoupled
// from the committed transition that produced it.
type Notification struct {
	ID           string
	Recipient    Recipient
	RecipientKey string
	Kind         NotificationKind
	OrderID      string
	PayloadRefs  []string
	Metadata     map[string]any
	Attempts     int
	NextAttempt  time.Time
	CreatedAt    time.Time
}

func (n Notification) idempotencyKey() string {
	return strings.Join([]string{string(n.Kind), n.OrderID, string(n.Recipient), n.RecipientKey, n.ID}, "::")
}

func customerNote(order Order, kind NotificationKind, refs ...string) Notification {
	return Notification{
		ID:           uuid.NewString(),
		Recipient:    RecipientCustomer,
		RecipientKey: order.CustomerID,
		Kind:         kind,
		OrderID:      order.ID,
		PayloadRefs:  refs,
	}
}

func operatorNote(operatorID string, order Order, kind NotificationKind, refs ...string) Notification {
	return Notification{
		ID:           uuid.NewString(),
		Recipient:    RecipientOperator,
		RecipientKey: operatorID,
		Kind:         kind,
		OrderID:      order.ID,
		PayloadRefs:  refs,
	}
}

// MemoryOutbox is the volatile NotificationOutbox. Claimed entries stay
// invisible until acked or retried so two dispatcher passes never
// deliver the same entry concurrently.
type MemoryOutbox struct {
	mu      sync.Mutex
	pending []Notification
	claimed map[string]Notification
	now     func() time.Time
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{
		claimed: make(map[string]Notification),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (o *MemoryOutbox) Enqueue(ctx context.Context, note Notification) error {
	if o == nil {
		return orderInternal("core: outbox is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(note.ID) == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = o.now()
	}
	o.mu.Lock()
	o.pending = append(o.pending, note)
	o.mu.Unlock()
	return nil
}

func (o *MemoryOutbox) ClaimBatch(ctx context.Context, limit int) ([]Notification, error) {
	if o == nil {
		return nil, orderInternal("core: outbox is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	now := o.now()

	o.mu.Lock()
	defer o.mu.Unlock()

	sort.SliceStable(o.pending, func(i, j int) bool {
		return o.pending[i].CreatedAt.Before(o.pending[j].CreatedAt)
	})

	claimed := make([]Notification, 0, limit)
	rest := o.pending[:0]
	for _, note := range o.pending {
		if len(claimed) < limit && !note.NextAttempt.After(now) {
			o.claimed[note.ID] = note
			claimed = append(claimed, note)
			continue
		}
		rest = append(rest, note)
	}
	o.pending = rest
	return claimed, nil
}

func (o *MemoryOutbox) Ack(ctx context.Context, noteID string) error {
	if o == nil {
		return orderInternal("core: outbox is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.claimed[noteID]; !ok {
		return orderNotFound("core: notification is not claimed", map[string]any{"notification_id": noteID})
	}
	delete(o.claimed, noteID)
	return nil
}

func (o *MemoryOutbox) Retry(ctx context.Context, note Notification, nextAttemptAt time.Time, cause error) error {
	if o == nil {
		return orderInternal("core: outbox is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.claimed, note.ID)
	note.Attempts++
	note.NextAttempt = nextAttemptAt
	o.pending = append(o.pending, note)
	return nil
}

// Pending reports the visible backlog size.
func (o *MemoryOutbox) Pending() int {
	if o == nil {
		return 0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

var _ NotificationOutbox = (*MemoryOutbox)(nil)

type DispatchStats struct {
	Claimed   int
	Delivered int
	Retried   int
	Failed    int
}

// NotificationDispatcher drains the outbox into the delivery
// collaborator with bounded retry and ledger-based dedup. Delivery
// failure never rolls back the transition that enqueued the entry.
type NotificationDispatcher struct {
	outbox    NotificationOutbox
	deliverer NotificationDeliverer
	ledger    DispatchLedger
	logger    Logger
	config    DispatchConfig
	now       func() time.Time
}

func NewNotificationDispatcher(
	outbox NotificationOutbox,
	deliverer NotificationDeliverer,
	config DispatchConfig,
	opts ...DispatcherOption,
) (*NotificationDispatcher, error) {
	if outbox == nil {
		return nil, fmt.Errorf("core: notification outbox is required")
	}
	if deliverer == nil {
		return nil, fmt.Errorf("core: notification deliverer is required")
	}
	config = config.WithDefaults()
	d := &NotificationDispatcher{
		outbox:    outbox,
		deliverer: deliverer,
		config:    config,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if d.logger == nil {
		d.logger = nopLogger()
	}
	return d, nil
}

type DispatcherOption func(*NotificationDispatcher)

func WithDispatchLedger(ledger DispatchLedger) DispatcherOption {
	return func(d *NotificationDispatcher) {
		d.ledger = ledger
	}
}

func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *NotificationDispatcher) {
		d.logger = logger
	}
}

func (d *NotificationDispatcher) DispatchPending(ctx context.Context, batchSize int) (DispatchStats, error) {
	if d == nil || d.outbox == nil || d.deliverer == nil {
		return DispatchStats{}, fmt.Errorf("core: notification dispatcher is not configured")
	}
	limit := batchSize
	if limit <= 0 {
		limit = d.config.BatchSize
	}
	notes, err := d.outbox.ClaimBatch(ctx, limit)
	if err != nil {
		return DispatchStats{}, err
	}

	stats := DispatchStats{Claimed: len(notes)}
	var dispatchErr error
	for _, note := range notes {
		if err := d.dispatchOne(ctx, note); err != nil {
			if note.Attempts+1 >= d.config.MaxAttempts {
				stats.Failed++
				d.logger.Error("notification dropped after max attempts",
					"notification_id", note.ID,
					"kind", string(note.Kind),
					"order_id", note.OrderID,
					"error", err,
				)
				if ackErr := d.outbox.Ack(ctx, note.ID); ackErr != nil {
					dispatchErr = errors.Join(dispatchErr, ackErr)
				}
			} else {
				stats.Retried++
				if retryErr := d.outbox.Retry(ctx, note, d.now().Add(d.backoff(note.Attempts)), err); retryErr != nil {
					dispatchErr = errors.Join(dispatchErr, retryErr)
				}
			}
			dispatchErr = errors.Join(dispatchErr, err)
			continue
		}
		if err := d.outbox.Ack(ctx, note.ID); err != nil {
			dispatchErr = errors.Join(dispatchErr, err)
			continue
		}
		stats.Delivered++
	}
	return stats, dispatchErr
}

func (d *NotificationDispatcher) dispatchOne(ctx context.Context, note Notification) error {
	key := note.idempotencyKey()
	if d.ledger != nil {
		seen, err := d.ledger.Seen(ctx, key)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	if err := d.deliverer.Deliver(ctx, note); err != nil {
		return fmt.Errorf("core: notification delivery failed for %q: %w", note.ID, err)
	}
	if d.ledger != nil {
		if err := d.ledger.Record(ctx, DispatchRecord{
			NotificationID: note.ID,
			Kind:           note.Kind,
			RecipientKey:   note.RecipientKey,
			IdempotencyKey: key,
			Status:         "sent",
			Metadata:       note.Metadata,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (d *NotificationDispatcher) backoff(attempts int) time.Duration {
	backoff := time.Duration(float64(d.config.InitialBackoff) * math.Pow(2, float64(attempts)))
	if backoff > d.config.MaxBackoff || backoff <= 0 {
		backoff = d.config.MaxBackoff
	}
	return backoff
}
