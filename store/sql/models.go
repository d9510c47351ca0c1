package sqlstore

import (
	"time"

	"github.com/goliatone/go-orderflow/core"
	"github.com/uptrace/bun"
)

type orderRecord struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID                string    `bun:"id,pk"`
	CustomerID        string    `bun:"customer_id,notnull"`
	CustomerName      string    `bun:"customer_name"`
	OriginalImageRef  string    `bun:"original_image_ref,notnull"`
	TierPrice         int       `bun:"tier_price,notnull"`
	PaymentProofRef   string    `bun:"payment_proof_ref"`
	DeliveredImageRef string    `bun:"delivered_image_ref"`
	ContactEmail      string    `bun:"contact_email"`
	State             string    `bun:"state,notnull"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *orderRecord) toDomain() core.Order {
	if r == nil {
		return core.Order{}
	}
	return core.Order{
		ID:                r.ID,
		CustomerID:        r.CustomerID,
		CustomerName:      r.CustomerName,
		OriginalImageRef:  r.OriginalImageRef,
		TierPrice:         r.TierPrice,
		PaymentProofRef:   r.PaymentProofRef,
		DeliveredImageRef: r.DeliveredImageRef,
		ContactEmail:      r.ContactEmail,
		State:             core.State(r.State),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func orderRecordFromDomain(order core.Order) *orderRecord {
	return &orderRecord{
		ID:                order.ID,
		CustomerID:        order.CustomerID,
		CustomerName:      order.CustomerName,
		OriginalImageRef:  order.OriginalImageRef,
		TierPrice:         order.TierPrice,
		PaymentProofRef:   order.PaymentProofRef,
		DeliveredImageRef: order.DeliveredImageRef,
		ContactEmail:      order.ContactEmail,
		State:             string(order.State),
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

type notificationDispatchRecord struct {
	bun.BaseModel `bun:"table:notification_dispatches,alias:nd"`

	ID             string         `bun:"id,pk"`
	NotificationID string         `bun:"notification_id,notnull"`
	Kind           string         `bun:"kind,notnull"`
	RecipientKey   string         `bun:"recipient_key,notnull"`
	IdempotencyKey string         `bun:"idempotency_key,notnull,unique"`
	Status         string         `bun:"status,notnull"`
	Error          string         `bun:"error"`
	Metadata       map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type notificationOutboxRecord struct {
	bun.BaseModel `bun:"table:notification_outbox,alias:no"`

	ID            string         `bun:"id,pk"`
	Recipient     string         `bun:"recipient,notnull"`
	RecipientKey  string         `bun:"recipient_key,notnull"`
	Kind          string         `bun:"kind,notnull"`
	OrderID       string         `bun:"order_id"`
	PayloadRefs   []string       `bun:"payload_refs,type:jsonb,notnull"`
	Metadata      map[string]any `bun:"metadata,type:jsonb,notnull"`
	Status        string         `bun:"status,notnull"`
	Attempts      int            `bun:"attempts,notnull"`
	NextAttemptAt *time.Time     `bun:"next_attempt_at,nullzero"`
	LastError     string         `bun:"last_error"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func copyAnyMap(input map[string]any) map[string]any {
	out := map[string]any{}
	for key, value := range input {
		out[key] = value
	}
	return out
}
