package orderflow

import (
	"context"
	"fmt"
	"reflect"

	ordercommand "github.com/goliatone/go-orderflow/command"
	"github.com/goliatone/go-orderflow/core"
	orderquery "github.com/goliatone/go-orderflow/query"
)

type CommandQueryService interface {
	ordercommand.MutatingService
	orderquery.StatusReader
	orderquery.OrderReader
}

type Commands struct {
	SubmitImage        *ordercommand.SubmitImageCommand
	SelectTier         *ordercommand.SelectTierCommand
	SubmitPaymentProof *ordercommand.SubmitPaymentProofCommand
	SubmitEmail        *ordercommand.SubmitEmailCommand
	SkipEmail          *ordercommand.SkipEmailCommand
	CancelOrder        *ordercommand.CancelOrderCommand
	ContactRequest     *ordercommand.ContactRequestCommand
	OperatorAction     *ordercommand.OperatorActionCommand
	DeliverArtifact    *ordercommand.DeliverArtifactCommand
}

type Queries struct {
	OrderStatus *orderquery.OrderStatusQuery
	GetOrder    *orderquery.GetOrderQuery
	ListOrders  *orderquery.ListOrdersQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	orderReader orderquery.OrderReader
}

// WithOrderReader routes the read-side queries to a dedicated reader,
// typically a replica-backed store, instead of the lifecycle service.
func WithOrderReader(reader orderquery.OrderReader) FacadeOption {
	return func(options *facadeOptions) {
		options.orderReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("orderflow: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.orderReader
	if reader == nil {
		reader = resolveOrderReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		SubmitImage:        ordercommand.NewSubmitImageCommand(service),
		SelectTier:         ordercommand.NewSelectTierCommand(service),
		SubmitPaymentProof: ordercommand.NewSubmitPaymentProofCommand(service),
		SubmitEmail:        ordercommand.NewSubmitEmailCommand(service),
		SkipEmail:          ordercommand.NewSkipEmailCommand(service),
		CancelOrder:        ordercommand.NewCancelOrderCommand(service),
		ContactRequest:     ordercommand.NewContactRequestCommand(service),
		OperatorAction:     ordercommand.NewOperatorActionCommand(service),
		DeliverArtifact:    ordercommand.NewDeliverArtifactCommand(service),
	}
	facade.queries = Queries{
		OrderStatus: orderquery.NewOrderStatusQuery(service),
		GetOrder:    orderquery.NewGetOrderQuery(reader),
		ListOrders:  orderquery.NewListOrdersQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveOrderReader prefers reading orders straight from the order
// registry when the service exposes one. Composed services may wrap
// the registry behind an untyped provider, so the lookup tolerates
// both the direct accessor and a Registry method found by reflection.
func resolveOrderReader(service CommandQueryService) orderquery.OrderReader {
	if service == nil {
		return nil
	}
	if provider, ok := service.(interface{ Registry() core.Registry }); ok {
		if registry := provider.Registry(); registry != nil {
			return registryOrderReader{registry: registry}
		}
		return service
	}

	serviceValue := reflect.ValueOf(service)
	if !serviceValue.IsValid() {
		return service
	}
	if serviceValue.Kind() == reflect.Ptr && serviceValue.IsNil() {
		return service
	}
	method := serviceValue.MethodByName("Registry")
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return service
	}
	results, ok := safeReflectCall(method)
	if !ok || len(results) != 1 {
		return service
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return service
	}
	if candidate.Kind() == reflect.Ptr && candidate.IsNil() {
		return service
	}
	registry, ok := candidate.Interface().(core.Registry)
	if !ok || registry == nil {
		return service
	}
	return registryOrderReader{registry: registry}
}

// registryOrderReader serves reads from the registry without passing
// through lifecycle handling.
type registryOrderReader struct {
	registry core.Registry
}

func (r registryOrderReader) Order(ctx context.Context, orderID string) (core.Order, error) {
	return r.registry.Get(ctx, orderID)
}

func (r registryOrderReader) Orders(ctx context.Context) ([]core.Order, error) {
	return r.registry.List(ctx)
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
