package core

import (
	"fmt"
	"strings"
)

// EventKind discriminates the closed inbound event set.
type EventKind string

const (
	EventSubmitImage        EventKind = "order.submit_image"
	EventSelectTier         EventKind = "order.select_tier"
	EventSubmitPaymentProof EventKind = "order.submit_payment_proof"
	EventSubmitEmail        EventKind = "order.submit_email"
	EventSkipEmail          EventKind = "order.skip_email"
	EventCustomerCancel     EventKind = "order.customer_cancel"
	EventContactRequest     EventKind = "order.contact_request"
	EventOperatorAction     EventKind = "order.operator_action"
	EventDeliverArtifact    EventKind = "order.deliver_artifact"
)

// Event is the closed set of inbound lifecycle events. The transport
// layer constructs these; the engine matches them exhaustively.
type Event interface {
	Kind() EventKind
	event()
}

type SubmitImage struct {
	CustomerID  string
	DisplayName string
	ImageRef    string
}

func (SubmitImage) Kind() EventKind { return EventSubmitImage }
func (SubmitImage) event()          {}

type SelectTier struct {
	CustomerID string
	Price      int
}

func (SelectTier) Kind() EventKind { return EventSelectTier }
func (SelectTier) event()          {}

type SubmitPaymentProof struct {
	CustomerID string
	ProofRef   string
}

func (SubmitPaymentProof) Kind() EventKind { return EventSubmitPaymentProof }
func (SubmitPaymentProof) event()          {}

type SubmitEmail struct {
	CustomerID string
	Address    string
}

func (SubmitEmail) Kind() EventKind { return EventSubmitEmail }
func (SubmitEmail) event()          {}

type SkipEmail struct {
	CustomerID string
}

func (SkipEmail) Kind() EventKind { return EventSkipEmail }
func (SkipEmail) event()          {}

type CustomerCancel struct {
	CustomerID string
}

func (CustomerCancel) Kind() EventKind { return EventCustomerCancel }
func (CustomerCancel) event()          {}

// ContactRequest relays a customer support request to the operator.
// It never touches order state.
type ContactRequest struct {
	CustomerID  string
	DisplayName string
	Username    string
}

func (ContactRequest) Kind() EventKind { return EventContactRequest }
func (ContactRequest) event()          {}

// OperatorVerb enumerates the privileged review actions.
type OperatorVerb string

const (
	VerbApprove         OperatorVerb = "approve"
	VerbReject          OperatorVerb = "reject"
	VerbAskProof        OperatorVerb = "ask_proof"
	VerbRequestDelivery OperatorVerb = "request_delivery"
	VerbViewOriginal    OperatorVerb = "view_original"
	VerbViewProof       OperatorVerb = "view_proof"
)

func (v OperatorVerb) Valid() bool {
	switch v {
	case VerbApprove, VerbReject, VerbAskProof, VerbRequestDelivery, VerbViewOriginal, VerbViewProof:
		return true
	}
	return false
}

// Mutating reports whether the verb advances order state. View verbs
// only emit operator notifications.
func (v OperatorVerb) Mutating() bool {
	switch v {
	case VerbViewOriginal, VerbViewProof:
		return false
	}
	return true
}

type OperatorAction struct {
	OperatorID string
	OrderID    string
	Verb       OperatorVerb
}

func (OperatorAction) Kind() EventKind { return EventOperatorAction }
func (OperatorAction) event()          {}

func (a OperatorAction) Validate() error {
	if strings.TrimSpace(a.OrderID) == "" {
		return orderBadInput("core: order id is required", nil)
	}
	if !a.Verb.Valid() {
		return orderBadInput(
			fmt.Sprintf("core: unsupported operator verb %q", a.Verb),
			map[string]any{"verb": string(a.Verb)},
		)
	}
	return nil
}

// DeliverArtifact records the processed image. OrderID may be empty;
// resolution then falls back to the oldest order awaiting delivery.
type DeliverArtifact struct {
	OperatorID  string
	OrderID     string
	ArtifactRef string
}

func (DeliverArtifact) Kind() EventKind { return EventDeliverArtifact }
func (DeliverArtifact) event()          {}

// Privileged reports whether the event requires the operator identity.
func Privileged(evt Event) bool {
	switch evt.(type) {
	case OperatorAction, DeliverArtifact:
		return true
	}
	return false
}
