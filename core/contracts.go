package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// Registry is the concurrency-safe order store. All mutations to a
// given order id are linearizable: concurrent attempts to advance the
// same order serialize so exactly one succeeds past a given state.
type Registry interface {
	// Create registers a new order in AWAITING_TIER_SELECTION. It
	// fails with ORDER_DUPLICATE_ACTIVE when the customer already has
	// a non-terminal order.
	Create(ctx context.Context, in CreateOrderInput) (Order, error)

	Get(ctx context.Context, orderID string) (Order, error)

	// FindActiveByCustomer returns the customer's single non-terminal
	// order, or ORDER_NOT_FOUND.
	FindActiveByCustomer(ctx context.Context, customerID string) (Order, error)

	// Update applies mutate atomically when the order's current state
	// still matches expected; otherwise it fails with
	// ORDER_STALE_TRANSITION and the caller observes the newer state.
	Update(ctx context.Context, orderID string, expected State, mutate func(*Order) error) (Order, error)

	List(ctx context.Context) ([]Order, error)

	ListByState(ctx context.Context, state State) ([]Order, error)
}

// MetricsRecorder mirrors the minimal counter/histogram surface the
// service emits lifecycle metrics through.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// NotificationOutbox buffers side-effect descriptions between commit
// and delivery. Enqueue happens post-commit; delivery is best effort.
type NotificationOutbox interface {
	Enqueue(ctx context.Context, note Notification) error
	ClaimBatch(ctx context.Context, limit int) ([]Notification, error)
	Ack(ctx context.Context, noteID string) error
	Retry(ctx context.Context, note Notification, nextAttemptAt time.Time, cause error) error
}

// NotificationDeliverer hands a side-effect description to the external
// delivery collaborator (the chat transport, in production).
type NotificationDeliverer interface {
	Deliver(ctx context.Context, note Notification) error
}

// DispatchLedger deduplicates notification delivery across retries.
type DispatchLedger interface {
	Seen(ctx context.Context, idempotencyKey string) (bool, error)
	Record(ctx context.Context, entry DispatchRecord) error
}

type DispatchRecord struct {
	NotificationID string
	Kind           NotificationKind
	RecipientKey   string
	IdempotencyKey string
	Status         string
	Error          string
	Metadata       map[string]any
}

// Mailer forwards the delivered artifact to a captured email address.
// Composition and SMTP transport live outside the core.
type Mailer interface {
	SendArtifact(ctx context.Context, address, artifactRef, orderID string) error
}

// RepositoryStoreFactory builds the durable store set from a
// persistence client or *bun.DB, matching store/sql.RepositoryFactory.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type StoreProvider interface {
	OrderStore() Registry
	DispatchLedger() DispatchLedger
}
