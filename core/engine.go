package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Engine holds the pure transition logic: given an order and an event
// it either mutates the order to its next state and describes the side
// effects, or rejects the event. It never touches the registry.
type Engine struct {
	config Config
	policy *EmailPolicy
}

func NewEngine(cfg Config, policy *EmailPolicy) *Engine {
	if policy == nil {
		policy = NewEmailPolicy(cfg.EmailDenyList)
	}
	return &Engine{config: cfg, policy: policy}
}

// transitionSources is the canonical event -> required source states
// table. Operator verbs are keyed separately because a single event
// kind covers several transitions.
var transitionSources = map[EventKind][]State{
	EventSelectTier:         {StateAwaitingTierSelection},
	EventSubmitPaymentProof: {StateAwaitingPayment},
	EventSubmitEmail:        {StateAwaitingEmail},
	EventSkipEmail:          {StateAwaitingEmail},
	EventDeliverArtifact:    {StateAwaitingDelivery},
}

var operatorVerbSources = map[OperatorVerb][]State{
	VerbApprove:         {StateAwaitingOperatorReview},
	VerbReject:          {StateAwaitingOperatorReview},
	VerbAskProof:        {StateAwaitingOperatorReview},
	VerbRequestDelivery: {StateAwaitingEmail},
}

// Apply advances the order for a mutating event. It is meant to run
// inside the registry's atomic update; an error leaves the order
// untouched.
func (e *Engine) Apply(order *Order, evt Event) ([]Notification, error) {
	if e == nil || order == nil {
		return nil, orderInternal("core: engine requires an order", nil)
	}
	switch event := evt.(type) {
	case SelectTier:
		return e.applySelectTier(order, event)
	case SubmitPaymentProof:
		return e.applySubmitProof(order, event)
	case SubmitEmail:
		return e.applySubmitEmail(order, event)
	case SkipEmail:
		return e.applySkipEmail(order)
	case CustomerCancel:
		return e.applyCancel(order)
	case OperatorAction:
		return e.applyOperatorAction(order, event)
	case DeliverArtifact:
		return e.applyDeliver(order, event)
	case SubmitImage, ContactRequest:
		return nil, orderInternal(
			fmt.Sprintf("core: event %q does not transition an existing order", evt.Kind()),
			nil,
		)
	default:
		return nil, orderInternal(fmt.Sprintf("core: unhandled event %q", evt.Kind()), nil)
	}
}

func (e *Engine) applySelectTier(order *Order, evt SelectTier) ([]Notification, error) {
	if err := requireSource(order, EventSelectTier, transitionSources[EventSelectTier]); err != nil {
		return nil, err
	}
	tier, ok := e.config.Tier(evt.Price)
	if !ok {
		return nil, orderValidationFailed("tier", "unknown tier price "+strconv.Itoa(evt.Price))
	}
	order.TierPrice = tier.Price
	order.State = StateAwaitingPayment

	note := customerNote(*order, NotePaymentLink)
	note.Metadata = map[string]any{
		"price":        tier.Price,
		"payment_link": tier.PaymentLink,
	}
	return []Notification{note}, nil
}

func (e *Engine) applySubmitProof(order *Order, evt SubmitPaymentProof) ([]Notification, error) {
	if err := requireSource(order, EventSubmitPaymentProof, transitionSources[EventSubmitPaymentProof]); err != nil {
		return nil, err
	}
	proof := strings.TrimSpace(evt.ProofRef)
	if proof == "" {
		return nil, orderBadInput("core: proof ref is required", nil)
	}
	if !order.TierSelected() {
		return nil, orderInternal("core: order reached payment without a tier", map[string]any{"order_id": order.ID})
	}
	order.PaymentProofRef = proof
	order.State = StateAwaitingOperatorReview

	review := operatorNote(e.config.OperatorID, *order, NoteReviewRequested, proof)
	review.Metadata = map[string]any{
		"customer_name": order.CustomerName,
		"customer_id":   order.CustomerID,
		"price":         order.TierPrice,
		"actions":       reviewActions(),
	}
	return []Notification{
		customerNote(*order, NoteProofReceived),
		review,
	}, nil
}

func (e *Engine) applySubmitEmail(order *Order, evt SubmitEmail) ([]Notification, error) {
	if err := requireSource(order, EventSubmitEmail, transitionSources[EventSubmitEmail]); err != nil {
		return nil, err
	}
	if err := e.policy.Check(evt.Address); err != nil {
		return nil, err
	}
	order.ContactEmail = strings.TrimSpace(evt.Address)
	order.State = StateAwaitingDelivery

	return []Notification{
		customerNote(*order, NoteEmailSaved),
		operatorNote(e.config.OperatorID, *order, NoteDeliveryRequested),
	}, nil
}

func (e *Engine) applySkipEmail(order *Order) ([]Notification, error) {
	if err := requireSource(order, EventSkipEmail, transitionSources[EventSkipEmail]); err != nil {
		return nil, err
	}
	order.State = StateAwaitingDelivery
	return []Notification{
		operatorNote(e.config.OperatorID, *order, NoteDeliveryRequested),
	}, nil
}

func (e *Engine) applyCancel(order *Order) ([]Notification, error) {
	if order.State.Terminal() {
		return nil, orderInvalidTransition(order.ID, order.State, EventCustomerCancel)
	}
	order.State = StateCancelled
	return []Notification{customerNote(*order, NoteCancelled)}, nil
}

func (e *Engine) applyOperatorAction(order *Order, evt OperatorAction) ([]Notification, error) {
	if !evt.Verb.Mutating() {
		return nil, orderInternal("core: view verbs do not transition orders", map[string]any{"verb": string(evt.Verb)})
	}
	sources, ok := operatorVerbSources[evt.Verb]
	if !ok {
		return nil, orderBadInput(fmt.Sprintf("core: unsupported operator verb %q", evt.Verb), nil)
	}
	if err := requireSource(order, EventOperatorAction, sources); err != nil {
		return nil, err
	}

	switch evt.Verb {
	case VerbApprove:
		if e.config.EmailCaptureEnabled() {
			order.State = StateAwaitingEmail
			return []Notification{customerNote(*order, NoteApproved)}, nil
		}
		order.State = StateAwaitingDelivery
		return []Notification{
			customerNote(*order, NoteApproved),
			operatorNote(e.config.OperatorID, *order, NoteDeliveryRequested),
		}, nil
	case VerbReject:
		order.State = StateRejected
		return []Notification{customerNote(*order, NoteRejected)}, nil
	case VerbAskProof:
		order.State = StateAwaitingPayment
		return []Notification{customerNote(*order, NoteProofRetry)}, nil
	case VerbRequestDelivery:
		order.State = StateAwaitingDelivery
		return []Notification{
			operatorNote(e.config.OperatorID, *order, NoteDeliveryRequested),
		}, nil
	}
	return nil, orderBadInput(fmt.Sprintf("core: unsupported operator verb %q", evt.Verb), nil)
}

func (e *Engine) applyDeliver(order *Order, evt DeliverArtifact) ([]Notification, error) {
	if err := requireSource(order, EventDeliverArtifact, transitionSources[EventDeliverArtifact]); err != nil {
		return nil, err
	}
	artifact := strings.TrimSpace(evt.ArtifactRef)
	if artifact == "" {
		return nil, orderBadInput("core: artifact ref is required", nil)
	}
	order.DeliveredImageRef = artifact
	order.State = StateCompleted

	note := customerNote(*order, NoteCompleted, artifact)
	if order.ContactEmail != "" {
		note.Metadata = map[string]any{"email": order.ContactEmail}
	}
	return []Notification{note}, nil
}

func requireSource(order *Order, kind EventKind, sources []State) error {
	for _, state := range sources {
		if order.State == state {
			return nil
		}
	}
	return orderInvalidTransition(order.ID, order.State, kind)
}

func reviewActions() []string {
	return []string{
		string(VerbApprove),
		string(VerbReject),
		string(VerbAskProof),
		string(VerbViewOriginal),
		string(VerbViewProof),
	}
}
