package core

import (
	"strings"
	"time"
)

// State identifies where an order sits in its lifecycle.
type State string

const (
	StateAwaitingTierSelection  State = "AWAITING_TIER_SELECTION"
	StateAwaitingPayment        State = "AWAITING_PAYMENT"
	StateAwaitingOperatorReview State = "AWAITING_OPERATOR_REVIEW"
	StateAwaitingEmail          State = "AWAITING_EMAIL"
	StateAwaitingDelivery       State = "AWAITING_DELIVERY"
	StateCompleted              State = "COMPLETED"
	StateRejected               State = "REJECTED"
	StateCancelled              State = "CANCELLED"
)

var stateRank = map[State]int{
	StateAwaitingTierSelection:  0,
	StateAwaitingPayment:        1,
	StateAwaitingOperatorReview: 2,
	StateAwaitingEmail:          3,
	StateAwaitingDelivery:       4,
	StateCompleted:              5,
	StateRejected:               5,
	StateCancelled:              5,
}

func (s State) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

// Terminal reports whether no further transitions are permitted.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateRejected, StateCancelled:
		return true
	}
	return false
}

// Rank orders states by lifecycle progress. Dispatch resolution prefers
// the order whose state ranks highest when several could accept the
// same payload.
func (s State) Rank() int {
	rank, ok := stateRank[s]
	if !ok {
		return -1
	}
	return rank
}

// Order is the unit of work tracking one customer's request end to end.
type Order struct {
	ID                string
	CustomerID        string
	CustomerName      string
	OriginalImageRef  string
	TierPrice         int
	PaymentProofRef   string
	DeliveredImageRef string
	ContactEmail      string
	State             State
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Active reports whether the order still accepts events.
func (o Order) Active() bool {
	return !o.State.Terminal()
}

// TierSelected reports whether the customer has picked a priced tier.
func (o Order) TierSelected() bool {
	return o.TierPrice > 0
}

func (o Order) Clone() Order {
	return o
}

type CreateOrderInput struct {
	CustomerID   string
	CustomerName string
	ImageRef     string
}

func (in CreateOrderInput) Validate() error {
	if strings.TrimSpace(in.CustomerID) == "" {
		return orderBadInput("core: customer id is required", nil)
	}
	if strings.TrimSpace(in.ImageRef) == "" {
		return orderBadInput("core: image ref is required", nil)
	}
	return nil
}

func newOrder(id string, in CreateOrderInput, now time.Time) Order {
	return Order{
		ID:               id,
		CustomerID:       strings.TrimSpace(in.CustomerID),
		CustomerName:     strings.TrimSpace(in.CustomerName),
		OriginalImageRef: strings.TrimSpace(in.ImageRef),
		State:            StateAwaitingTierSelection,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
