package core

import (
	"context"
	"strings"
)

// PayloadResolution names what an inbound customer payload means for
// the order the dispatcher selected.
type PayloadResolution string

const (
	ResolveNewSubmission PayloadResolution = "new_submission"
	ResolvePaymentProof  PayloadResolution = "payment_proof"
	ResolveEmail         PayloadResolution = "email"
	ResolveOngoingOrder  PayloadResolution = "ongoing_order"
	ResolveMenu          PayloadResolution = "menu"
)

// Dispatcher resolves which order an inbound payload applies to. When
// several interpretations could match, the order further along its
// lifecycle wins over treating the payload as a new submission.
type Dispatcher struct {
	registry Registry
}

func NewDispatcher(registry Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// ResolvePhoto decides whether a customer photo is payment proof for
// an order mid-payment, the image of a brand-new order, or noise while
// another order is in flight.
func (d *Dispatcher) ResolvePhoto(ctx context.Context, customerID string) (PayloadResolution, Order, error) {
	if d == nil || d.registry == nil {
		return "", Order{}, orderInternal("core: dispatcher is not configured", nil)
	}
	active, err := d.registry.FindActiveByCustomer(ctx, customerID)
	if err != nil {
		if IsNotFound(err) {
			return ResolveNewSubmission, Order{}, nil
		}
		return "", Order{}, err
	}
	if active.State == StateAwaitingPayment {
		return ResolvePaymentProof, active, nil
	}
	return ResolveOngoingOrder, active, nil
}

// ResolveText decides whether free text is an email for an order
// awaiting one, an ongoing-order notice, or the menu fallback.
func (d *Dispatcher) ResolveText(ctx context.Context, customerID string) (PayloadResolution, Order, error) {
	if d == nil || d.registry == nil {
		return "", Order{}, orderInternal("core: dispatcher is not configured", nil)
	}
	active, err := d.registry.FindActiveByCustomer(ctx, customerID)
	if err != nil {
		if IsNotFound(err) {
			return ResolveMenu, Order{}, nil
		}
		return "", Order{}, err
	}
	if active.State == StateAwaitingEmail {
		return ResolveEmail, active, nil
	}
	return ResolveOngoingOrder, active, nil
}

// ResolveDelivery locates the target for an artifact upload. With an
// explicit order id it is a direct lookup; without one the oldest
// order awaiting delivery is chosen, deterministically, rather than
// whichever map iteration happens to yield first.
func (d *Dispatcher) ResolveDelivery(ctx context.Context, orderID string) (Order, error) {
	if d == nil || d.registry == nil {
		return Order{}, orderInternal("core: dispatcher is not configured", nil)
	}
	if id := strings.TrimSpace(orderID); id != "" {
		return d.registry.Get(ctx, id)
	}
	waiting, err := d.registry.ListByState(ctx, StateAwaitingDelivery)
	if err != nil {
		return Order{}, err
	}
	if len(waiting) == 0 {
		return Order{}, orderNotFound("core: no order is awaiting delivery", nil)
	}
	return waiting[0], nil
}
