package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-orderflow/core"
)

type MutatingService interface {
	Handle(ctx context.Context, evt core.Event) (core.Result, error)
}

type SubmitImageCommand struct {
	service MutatingService
}

func NewSubmitImageCommand(service MutatingService) *SubmitImageCommand {
	return &SubmitImageCommand{service: service}
}

func (c *SubmitImageCommand) Execute(ctx context.Context, msg SubmitImageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: submit image service is required")
	}
	out, err := c.service.Handle(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SelectTierCommand struct {
	service MutatingService
}

func NewSelectTierCommand(service MutatingService) *SelectTierCommand {
	return &SelectTierCommand{service: service}
}

func (c *SelectTierCommand) Execute(ctx context.Context, msg SelectTierMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: select tier service is required")
	}
	out, err := c.service.Handle(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SubmitPaymentProofCommand struct {
	service MutatingService
}

func NewSubmitPaymentProofCommand(service MutatingService) *SubmitPaymentProofCommand {
	return &SubmitPaymentProofCommand{service: service}
}

func (c *SubmitPaymentProofCommand) Execute(ctx context.Context, msg SubmitPaymentProofMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: payment proof service is required")
	}
	out, err := c.service.Handle(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SubmitEmailCommand struct {
	service MutatingService
}

func NewSubmitEmailCommand(service MutatingService) *SubmitEmailCommand {
	return &SubmitEmailCommand{service: service}
}

func (c *SubmitEmailCommand) Execute(ctx context.Context, msg SubmitEmailMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: submit email service is required")
	}
	out, err := c.service.Handle(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SkipEmailCommand struct {
	service MutatingService
}

func NewSkipEmailCommand(service MutatingService) *SkipEmailCommand {
	return &SkipEmailCommand{service: service}
}

func (c *SkipEmailCommand) Execute(ctx context.Context, msg SkipEmailMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: skip email service is required")
	}
	out, err := c.service.Handle(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CancelOrderCommand struct {
	service MutatingService
}

func NewCancelOrderCommand(service MutatingService) *CancelOrderCommand {
	return &CancelOrderCommand{service: service}
}

func (c *CancelOrderCommand) Execute(ctx context.Context, msg CancelOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: cancel order service is required")
	}
	out, err := c.service.Handle(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ContactRequestCommand struct {
	service MutatingService
}

func NewContactRequestCommand(service MutatingService) *ContactRequestCommand {
	return &ContactRequestCommand{service: service}
}

func (c *ContactRequestCommand) Execute(ctx context.Context, msg ContactRequestMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: contact request service is required")
	}
	out, err := c.service.Handle(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type OperatorActionCommand struct {
	service MutatingService
}

func NewOperatorActionCommand(service MutatingService) *OperatorActionCommand {
	return &OperatorActionCommand{service: service}
}

func (c *OperatorActionCommand) Execute(ctx context.Context, msg OperatorActionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: operator action service is required")
	}
	out, err := c.service.Handle(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeliverArtifactCommand struct {
	service MutatingService
}

func NewDeliverArtifactCommand(service MutatingService) *DeliverArtifactCommand {
	return &DeliverArtifactCommand{service: service}
}

func (c *DeliverArtifactCommand) Execute(ctx context.Context, msg DeliverArtifactMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: deliver artifact service is required")
	}
	out, err := c.service.Handle(ctx, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
