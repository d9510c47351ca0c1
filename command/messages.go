package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-orderflow/core"
)

const (
	TypeSubmitImage        = "orderflow.command.submit_image"
	TypeSelectTier         = "orderflow.command.select_tier"
	TypeSubmitPaymentProof = "orderflow.command.submit_payment_proof"
	TypeSubmitEmail        = "orderflow.command.submit_email"
	TypeSkipEmail          = "orderflow.command.skip_email"
	TypeCancelOrder        = "orderflow.command.cancel_order"
	TypeContactRequest     = "orderflow.command.contact_request"
	TypeOperatorAction     = "orderflow.command.operator_action"
	TypeDeliverArtifact    = "orderflow.command.deliver_artifact"
)

type SubmitImageMessage struct {
	Event core.SubmitImage
}

func (SubmitImageMessage) Type() string { return TypeSubmitImage }

func (m SubmitImageMessage) Validate() error {
	if err := requireCustomer(m.Event.CustomerID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Event.ImageRef) == "" {
		return fmt.Errorf("command: image ref is required")
	}
	return nil
}

type SelectTierMessage struct {
	Event core.SelectTier
}

func (SelectTierMessage) Type() string { return TypeSelectTier }

func (m SelectTierMessage) Validate() error {
	if err := requireCustomer(m.Event.CustomerID); err != nil {
		return err
	}
	if m.Event.Price <= 0 {
		return fmt.Errorf("command: tier price must be positive")
	}
	return nil
}

type SubmitPaymentProofMessage struct {
	Event core.SubmitPaymentProof
}

func (SubmitPaymentProofMessage) Type() string { return TypeSubmitPaymentProof }

func (m SubmitPaymentProofMessage) Validate() error {
	if err := requireCustomer(m.Event.CustomerID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Event.ProofRef) == "" {
		return fmt.Errorf("command: proof ref is required")
	}
	return nil
}

type SubmitEmailMessage struct {
	Event core.SubmitEmail
}

func (SubmitEmailMessage) Type() string { return TypeSubmitEmail }

func (m SubmitEmailMessage) Validate() error {
	if err := requireCustomer(m.Event.CustomerID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Event.Address) == "" {
		return fmt.Errorf("command: email address is required")
	}
	return nil
}

type SkipEmailMessage struct {
	Event core.SkipEmail
}

func (SkipEmailMessage) Type() string { return TypeSkipEmail }

func (m SkipEmailMessage) Validate() error {
	return requireCustomer(m.Event.CustomerID)
}

type CancelOrderMessage struct {
	Event core.CustomerCancel
}

func (CancelOrderMessage) Type() string { return TypeCancelOrder }

func (m CancelOrderMessage) Validate() error {
	return requireCustomer(m.Event.CustomerID)
}

type ContactRequestMessage struct {
	Event core.ContactRequest
}

func (ContactRequestMessage) Type() string { return TypeContactRequest }

func (m ContactRequestMessage) Validate() error {
	return requireCustomer(m.Event.CustomerID)
}

type OperatorActionMessage struct {
	Event core.OperatorAction
}

func (OperatorActionMessage) Type() string { return TypeOperatorAction }

func (m OperatorActionMessage) Validate() error {
	if strings.TrimSpace(m.Event.OperatorID) == "" {
		return fmt.Errorf("command: operator id is required")
	}
	if strings.TrimSpace(m.Event.OrderID) == "" {
		return fmt.Errorf("command: order id is required")
	}
	if !m.Event.Verb.Valid() {
		return fmt.Errorf("command: unsupported operator verb %q", m.Event.Verb)
	}
	return nil
}

// DeliverArtifactMessage may omit the order id; resolution then falls
// back to the oldest order awaiting delivery.
type DeliverArtifactMessage struct {
	Event core.DeliverArtifact
}

func (DeliverArtifactMessage) Type() string { return TypeDeliverArtifact }

func (m DeliverArtifactMessage) Validate() error {
	if strings.TrimSpace(m.Event.OperatorID) == "" {
		return fmt.Errorf("command: operator id is required")
	}
	if strings.TrimSpace(m.Event.ArtifactRef) == "" {
		return fmt.Errorf("command: artifact ref is required")
	}
	return nil
}

func requireCustomer(customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return commandValidationError("customer_id", "customer id is required")
	}
	return nil
}
