package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Service coordinates the order lifecycle: guard, dispatch, engine,
// registry commit, then post-commit notification enqueue. A transition
// is committed once the registry mutation returns; notification and
// mail delivery are best effort and never roll it back.
type Service struct {
	config          Config
	logger          Logger
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	registry        Registry
	engine          *Engine
	dispatcher      *Dispatcher
	guard           *OperatorGuard
	policy          *EmailPolicy
	outbox          NotificationOutbox
	ledger          DispatchLedger
	mailer          Mailer
	now             func() time.Time
}

func New(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("orderflow", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("orderflow"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time {
			return time.Now().UTC()
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.registry == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				builder.registry = storeProvider.OrderStore()
				if builder.ledger == nil {
					builder.ledger = storeProvider.DispatchLedger()
				}
				if builder.outbox == nil {
					if outboxProvider, ok := storeProvider.(interface{ NotificationOutbox() NotificationOutbox }); ok {
						builder.outbox = outboxProvider.NotificationOutbox()
					}
				}
			}
		}
	}
	if builder.registry == nil {
		builder.registry = NewMemoryRegistry()
	}
	if builder.outbox == nil {
		builder.outbox = NewMemoryOutbox()
	}

	policy := NewEmailPolicy(finalConfig.EmailDenyList)
	service := &Service{
		config:          finalConfig,
		logger:          logger,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		registry:        builder.registry,
		engine:          NewEngine(finalConfig, policy),
		dispatcher:      NewDispatcher(builder.registry),
		guard:           NewOperatorGuard(finalConfig.OperatorID),
		policy:          policy,
		outbox:          builder.outbox,
		ledger:          builder.ledger,
		mailer:          builder.mailer,
		now:             builder.now,
	}
	return service, nil
}

// Result reports the committed order snapshot, when there is one, and
// the side-effect descriptions the transition produced. Notifications
// are already enqueued; they are returned so synchronous callers can
// answer the originating actor directly.
type Result struct {
	Order         *Order
	Notifications []Notification
}

// Handle applies one inbound event. Errors carry the recoverable
// taxonomy; the process never terminates on them.
func (s *Service) Handle(ctx context.Context, evt Event) (Result, error) {
	if s == nil {
		return Result{}, orderInternal("core: service is nil", nil)
	}
	if evt == nil {
		return Result{}, s.mapError(orderBadInput("core: event is required", nil))
	}
	startedAt := s.now()

	if Privileged(evt) {
		if err := s.guard.Authorize(operatorOf(evt)); err != nil {
			s.observeEvent(ctx, startedAt, evt, err, "")
			return Result{}, s.mapError(err)
		}
	}

	result, err := s.handle(ctx, evt)
	s.observeEvent(ctx, startedAt, evt, err, orderIDOf(result))
	if err != nil {
		return result, s.mapError(err)
	}
	return result, nil
}

func (s *Service) handle(ctx context.Context, evt Event) (Result, error) {
	switch event := evt.(type) {
	case SubmitImage:
		return s.handleSubmitImage(ctx, event)
	case SelectTier:
		return s.advanceActive(ctx, event.CustomerID, event)
	case SubmitPaymentProof:
		return s.advanceActive(ctx, event.CustomerID, event)
	case SubmitEmail:
		return s.handleSubmitEmail(ctx, event)
	case SkipEmail:
		return s.advanceActive(ctx, event.CustomerID, event)
	case CustomerCancel:
		return s.advanceActive(ctx, event.CustomerID, event)
	case ContactRequest:
		return s.handleContactRequest(ctx, event)
	case OperatorAction:
		return s.handleOperatorAction(ctx, event)
	case DeliverArtifact:
		return s.handleDeliverArtifact(ctx, event)
	default:
		return Result{}, orderInternal(fmt.Sprintf("core: unhandled event %q", evt.Kind()), nil)
	}
}

func (s *Service) handleSubmitImage(ctx context.Context, evt SubmitImage) (Result, error) {
	order, err := s.registry.Create(ctx, CreateOrderInput{
		CustomerID:   evt.CustomerID,
		CustomerName: evt.DisplayName,
		ImageRef:     evt.ImageRef,
	})
	if err != nil {
		if IsDuplicateActive(err) {
			notice := Notification{
				Recipient:    RecipientCustomer,
				RecipientKey: strings.TrimSpace(evt.CustomerID),
				Kind:         NoteOngoingOrder,
			}
			s.enqueue(ctx, notice)
			return Result{Notifications: []Notification{notice}}, err
		}
		return Result{}, err
	}

	created := customerNote(order, NoteOrderCreated)
	created.Metadata = map[string]any{"tiers": s.tierPrices()}
	s.enqueue(ctx, created)
	return Result{Order: &order, Notifications: []Notification{created}}, nil
}

// advanceActive runs the engine against the customer's single active
// order through the registry's compare-and-transition. A concurrent
// winner surfaces as ORDER_STALE_TRANSITION; the loser is a rejected
// duplicate, never double-applied.
func (s *Service) advanceActive(ctx context.Context, customerID string, evt Event) (Result, error) {
	active, err := s.registry.FindActiveByCustomer(ctx, customerID)
	if err != nil {
		return Result{}, err
	}
	return s.transition(ctx, active.ID, active.State, evt)
}

func (s *Service) handleSubmitEmail(ctx context.Context, evt SubmitEmail) (Result, error) {
	active, err := s.registry.FindActiveByCustomer(ctx, evt.CustomerID)
	if err != nil {
		return Result{}, err
	}
	result, err := s.transition(ctx, active.ID, active.State, evt)
	if err != nil && IsValidationFailed(err) {
		// The order stays in AWAITING_EMAIL; prompt a retry.
		retry := customerNote(active, NoteEmailInvalid)
		s.enqueue(ctx, retry)
		result.Notifications = append(result.Notifications, retry)
		return result, err
	}
	return result, err
}

func (s *Service) handleContactRequest(ctx context.Context, evt ContactRequest) (Result, error) {
	if strings.TrimSpace(evt.CustomerID) == "" {
		return Result{}, orderBadInput("core: customer id is required", nil)
	}
	note := Notification{
		Recipient:    RecipientOperator,
		RecipientKey: s.config.OperatorID,
		Kind:         NoteContactRequest,
		Metadata: map[string]any{
			"customer_id":   strings.TrimSpace(evt.CustomerID),
			"customer_name": strings.TrimSpace(evt.DisplayName),
			"username":      strings.TrimSpace(evt.Username),
		},
	}
	s.enqueue(ctx, note)
	return Result{Notifications: []Notification{note}}, nil
}

func (s *Service) handleOperatorAction(ctx context.Context, evt OperatorAction) (Result, error) {
	if err := evt.Validate(); err != nil {
		return Result{}, err
	}
	order, err := s.registry.Get(ctx, evt.OrderID)
	if err != nil {
		return Result{}, err
	}
	if !evt.Verb.Mutating() {
		return s.handleViewAction(ctx, order, evt.Verb)
	}
	return s.transition(ctx, order.ID, order.State, evt)
}

func (s *Service) handleViewAction(ctx context.Context, order Order, verb OperatorVerb) (Result, error) {
	var note Notification
	switch verb {
	case VerbViewOriginal:
		note = operatorNote(s.config.OperatorID, order, NoteOriginalImage, order.OriginalImageRef)
	case VerbViewProof:
		if strings.TrimSpace(order.PaymentProofRef) == "" {
			return Result{}, orderNotFound("core: order has no payment proof yet", map[string]any{"order_id": order.ID})
		}
		note = operatorNote(s.config.OperatorID, order, NotePaymentProof, order.PaymentProofRef)
	default:
		return Result{}, orderBadInput(fmt.Sprintf("core: unsupported view verb %q", verb), nil)
	}
	s.enqueue(ctx, note)
	return Result{Order: &order, Notifications: []Notification{note}}, nil
}

func (s *Service) handleDeliverArtifact(ctx context.Context, evt DeliverArtifact) (Result, error) {
	order, err := s.dispatcher.ResolveDelivery(ctx, evt.OrderID)
	if err != nil {
		return Result{}, err
	}
	result, err := s.transition(ctx, order.ID, order.State, evt)
	if err != nil {
		return result, err
	}
	s.forwardToMailer(ctx, result.Order)
	return result, nil
}

// transition commits one lifecycle step atomically and enqueues the
// resulting notifications after the commit.
func (s *Service) transition(ctx context.Context, orderID string, expected State, evt Event) (Result, error) {
	var notes []Notification
	updated, err := s.registry.Update(ctx, orderID, expected, func(order *Order) error {
		var applyErr error
		notes, applyErr = s.engine.Apply(order, evt)
		return applyErr
	})
	if err != nil {
		return Result{}, err
	}
	for _, note := range notes {
		s.enqueue(ctx, note)
	}
	return Result{Order: &updated, Notifications: notes}, nil
}

// forwardToMailer hands the artifact to the email collaborator when an
// address was captured and still passes policy. Best effort.
func (s *Service) forwardToMailer(ctx context.Context, order *Order) {
	if s.mailer == nil || order == nil {
		return
	}
	address := strings.TrimSpace(order.ContactEmail)
	if address == "" || !s.policy.Valid(address) {
		return
	}
	if err := s.mailer.SendArtifact(ctx, address, order.DeliveredImageRef, order.ID); err != nil {
		s.logger.Error("artifact email forwarding failed",
			"order_id", order.ID,
			"error", err,
		)
	}
}

// enqueue hands a side-effect description to the outbox. Failures are
// logged and swallowed: the transition is already committed.
func (s *Service) enqueue(ctx context.Context, note Notification) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Enqueue(ctx, note); err != nil {
		s.logger.Error("notification enqueue failed",
			"kind", string(note.Kind),
			"order_id", note.OrderID,
			"error", err,
		)
	}
}

// Status answers a customer status query: the active order when one
// exists, otherwise the most recent retained order.
type StatusInfo struct {
	Found   bool
	OrderID string
	State   State
}

func (s *Service) Status(ctx context.Context, customerID string) (StatusInfo, error) {
	if s == nil {
		return StatusInfo{}, orderInternal("core: service is nil", nil)
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return StatusInfo{}, s.mapError(orderBadInput("core: customer id is required", nil))
	}
	active, err := s.registry.FindActiveByCustomer(ctx, customerID)
	if err == nil {
		return StatusInfo{Found: true, OrderID: active.ID, State: active.State}, nil
	}
	if !IsNotFound(err) {
		return StatusInfo{}, s.mapError(err)
	}

	orders, err := s.registry.List(ctx)
	if err != nil {
		return StatusInfo{}, s.mapError(err)
	}
	info := StatusInfo{}
	for _, order := range orders {
		if order.CustomerID == customerID {
			info = StatusInfo{Found: true, OrderID: order.ID, State: order.State}
		}
	}
	return info, nil
}

// Orders enumerates every retained order, oldest first.
func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	if s == nil {
		return nil, orderInternal("core: service is nil", nil)
	}
	orders, err := s.registry.List(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return orders, nil
}

// Order returns one order by id.
func (s *Service) Order(ctx context.Context, orderID string) (Order, error) {
	if s == nil {
		return Order{}, orderInternal("core: service is nil", nil)
	}
	order, err := s.registry.Get(ctx, orderID)
	if err != nil {
		return Order{}, s.mapError(err)
	}
	return order, nil
}

// Config exposes the resolved configuration.
func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Registry exposes the order store for composition.
func (s *Service) Registry() Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

// Outbox exposes the notification buffer for the dispatch runner.
func (s *Service) Outbox() NotificationOutbox {
	if s == nil {
		return nil
	}
	return s.outbox
}

// DispatchLedger exposes the dedup ledger, when configured.
func (s *Service) DispatchLedger() DispatchLedger {
	if s == nil {
		return nil
	}
	return s.ledger
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (s *Service) tierPrices() []int {
	prices := make([]int, 0, len(s.config.Tiers))
	for _, tier := range s.config.Tiers {
		prices = append(prices, tier.Price)
	}
	return prices
}

func operatorOf(evt Event) string {
	switch event := evt.(type) {
	case OperatorAction:
		return event.OperatorID
	case DeliverArtifact:
		return event.OperatorID
	}
	return ""
}

func orderIDOf(result Result) string {
	if result.Order == nil {
		return ""
	}
	return result.Order.ID
}

func nopLogger() Logger {
	return glog.Nop()
}
