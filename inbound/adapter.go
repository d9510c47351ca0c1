package inbound

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-orderflow/core"
	"github.com/goliatone/go-orderflow/identity"
)

const (
	SurfacePhoto    = "photo"
	SurfaceText     = "text"
	SurfaceCallback = "callback"
	SurfaceCommand  = "command"
)

const (
	CommandStart   = "start"
	CommandStatus  = "status"
	CommandCancel  = "cancel"
	CommandContact = "contact"
	CommandSend    = "send"
)

// ChatUpdate is the transport-shaped inbound payload. The chat client
// decodes its wire format into this and the adapter decides what the
// payload means for the order lifecycle.
type ChatUpdate struct {
	UpdateID string
	Surface  string
	From     identity.RawActor

	Text     string
	Command  string
	Args     []string
	Callback string
	PhotoRef string
	Caption  string
}

// Dispatch reports how one update was handled. Deduped updates carry
// neither an event nor a result.
type Dispatch struct {
	Actor     identity.ActorRef
	Event     core.Event
	Result    core.Result
	Deduped   bool
	Throttled bool
}

type LifecycleService interface {
	Handle(ctx context.Context, evt core.Event) (core.Result, error)
	Status(ctx context.Context, customerID string) (core.StatusInfo, error)
	Registry() core.Registry
	Config() core.Config
}

// Adapter maps chat updates onto lifecycle events. Redelivered updates
// are absorbed through the claim store: business rejections complete
// the claim, infrastructure failures reopen it for retry.
type Adapter struct {
	service  LifecycleService
	actors   *identity.Resolver
	payloads *core.Dispatcher
	claims   ClaimStore
	burst    BurstController
	keyTTL   time.Duration
}

type AdapterOption func(*Adapter)

func WithClaimStore(store ClaimStore) AdapterOption {
	return func(a *Adapter) {
		a.claims = store
	}
}

// WithBurstController throttles rapid repeats of one interaction
// before they consume claims. Throttled updates are dropped without
// reaching the lifecycle service.
func WithBurstController(controller BurstController) AdapterOption {
	return func(a *Adapter) {
		a.burst = controller
	}
}

func WithClaimTTL(ttl time.Duration) AdapterOption {
	return func(a *Adapter) {
		a.keyTTL = ttl
	}
}

func NewAdapter(service LifecycleService, actors *identity.Resolver, opts ...AdapterOption) (*Adapter, error) {
	if service == nil {
		return nil, inboundInternal("inbound: lifecycle service is required", nil)
	}
	if actors == nil {
		return nil, inboundInternal("inbound: actor resolver is required", nil)
	}
	adapter := &Adapter{
		service:  service,
		actors:   actors,
		payloads: core.NewDispatcher(service.Registry()),
		claims:   NewInMemoryClaimStore(),
		keyTTL:   10 * time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter, nil
}

func (a *Adapter) HandleUpdate(ctx context.Context, upd ChatUpdate) (Dispatch, error) {
	if a == nil || a.service == nil {
		return Dispatch{}, inboundInternal("inbound: adapter is not configured", nil)
	}

	actor, err := a.actors.Resolve(upd.From)
	if err != nil {
		return Dispatch{}, inboundWrapError(
			err,
			goerrors.CategoryBadInput,
			"inbound: resolve update actor",
			400,
			core.OrderErrorBadInput,
			map[string]any{"surface": normalizeSurface(upd.Surface)},
		)
	}
	dispatch := Dispatch{Actor: actor}

	if a.burst != nil {
		decision, burstErr := a.burst.Allow(ctx, upd)
		if burstErr != nil {
			return Dispatch{}, inboundWrapError(
				burstErr,
				goerrors.CategoryOperation,
				"inbound: burst control",
				500,
				core.OrderErrorInternal,
				map[string]any{"update_id": upd.UpdateID},
			)
		}
		if !decision.Allow {
			dispatch.Throttled = true
			return dispatch, nil
		}
	}

	claimID := ""
	if a.claims != nil && strings.TrimSpace(upd.UpdateID) != "" {
		key := normalizeSurface(upd.Surface) + ":" + strings.TrimSpace(upd.UpdateID)
		var accepted bool
		claimID, accepted, err = a.claims.Claim(ctx, key, a.keyTTL)
		if err != nil {
			return Dispatch{}, inboundWrapError(
				err,
				goerrors.CategoryOperation,
				"inbound: claim update",
				500,
				core.OrderErrorInternal,
				map[string]any{"update_id": upd.UpdateID},
			)
		}
		if !accepted {
			dispatch.Deduped = true
			return dispatch, nil
		}
	}

	evt, synthesized, err := a.mapUpdate(ctx, actor, upd)
	if err != nil {
		a.completeClaim(ctx, claimID)
		return dispatch, err
	}
	if evt == nil {
		if synthesized != nil {
			dispatch.Result = *synthesized
		}
		a.completeClaim(ctx, claimID)
		return dispatch, nil
	}
	dispatch.Event = evt

	result, err := a.service.Handle(ctx, evt)
	dispatch.Result = result
	if err != nil {
		if recoverableRejection(err) {
			// The actor got their answer; redelivering the same update
			// would only repeat the rejection.
			a.completeClaim(ctx, claimID)
			return dispatch, err
		}
		if a.claims != nil && claimID != "" {
			_ = a.claims.Fail(ctx, claimID, err, time.Time{})
		}
		return dispatch, err
	}
	a.completeClaim(ctx, claimID)
	return dispatch, nil
}

func (a *Adapter) completeClaim(ctx context.Context, claimID string) {
	if a.claims == nil || claimID == "" {
		return
	}
	_ = a.claims.Complete(ctx, claimID)
}

func (a *Adapter) mapUpdate(ctx context.Context, actor identity.ActorRef, upd ChatUpdate) (core.Event, *core.Result, error) {
	switch normalizeSurface(upd.Surface) {
	case SurfaceCommand:
		return a.mapCommand(ctx, actor, upd)
	case SurfacePhoto:
		return a.mapPhoto(ctx, actor, upd)
	case SurfaceText:
		return a.mapText(ctx, actor, upd)
	case SurfaceCallback:
		return a.mapCallback(actor, upd)
	default:
		return nil, nil, inboundBadInput(
			fmt.Sprintf("inbound: unsupported surface %q", upd.Surface),
			map[string]any{"surface": upd.Surface},
		)
	}
}

func (a *Adapter) mapCommand(ctx context.Context, actor identity.ActorRef, upd ChatUpdate) (core.Event, *core.Result, error) {
	command := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(upd.Command)), "/")
	switch command {
	case CommandStart:
		return nil, a.menuReply(actor), nil
	case CommandStatus:
		info, err := a.service.Status(ctx, actor.ID)
		if err != nil {
			return nil, nil, err
		}
		return nil, a.statusReply(actor, info), nil
	case CommandCancel:
		return core.CustomerCancel{CustomerID: actor.ID}, nil, nil
	case CommandContact:
		return core.ContactRequest{
			CustomerID:  actor.ID,
			DisplayName: actor.DisplayName,
			Username:    actor.Username,
		}, nil, nil
	case CommandSend:
		orderID := ""
		if len(upd.Args) > 0 {
			orderID = strings.TrimSpace(upd.Args[0])
		}
		return core.DeliverArtifact{
			OperatorID:  actor.ID,
			OrderID:     orderID,
			ArtifactRef: strings.TrimSpace(upd.PhotoRef),
		}, nil, nil
	default:
		return nil, nil, inboundBadInput(
			fmt.Sprintf("inbound: unsupported command %q", upd.Command),
			map[string]any{"command": upd.Command},
		)
	}
}

func (a *Adapter) mapPhoto(ctx context.Context, actor identity.ActorRef, upd ChatUpdate) (core.Event, *core.Result, error) {
	photoRef := strings.TrimSpace(upd.PhotoRef)
	if photoRef == "" {
		return nil, nil, inboundBadInput("inbound: photo ref is required", nil)
	}
	if actor.IsOperator() {
		// An operator photo is the processed artifact; the caption may
		// name the target order.
		return core.DeliverArtifact{
			OperatorID:  actor.ID,
			OrderID:     strings.TrimSpace(upd.Caption),
			ArtifactRef: photoRef,
		}, nil, nil
	}

	resolution, order, err := a.payloads.ResolvePhoto(ctx, actor.ID)
	if err != nil {
		return nil, nil, err
	}
	switch resolution {
	case core.ResolveNewSubmission:
		return core.SubmitImage{
			CustomerID:  actor.ID,
			DisplayName: actor.DisplayName,
			ImageRef:    photoRef,
		}, nil, nil
	case core.ResolvePaymentProof:
		return core.SubmitPaymentProof{
			CustomerID: actor.ID,
			ProofRef:   photoRef,
		}, nil, nil
	default:
		return nil, a.ongoingReply(actor, order), nil
	}
}

func (a *Adapter) mapText(ctx context.Context, actor identity.ActorRef, upd ChatUpdate) (core.Event, *core.Result, error) {
	resolution, order, err := a.payloads.ResolveText(ctx, actor.ID)
	if err != nil {
		return nil, nil, err
	}
	switch resolution {
	case core.ResolveEmail:
		return core.SubmitEmail{
			CustomerID: actor.ID,
			Address:    strings.TrimSpace(upd.Text),
		}, nil, nil
	case core.ResolveMenu:
		return nil, a.menuReply(actor), nil
	default:
		return nil, a.ongoingReply(actor, order), nil
	}
}

func (a *Adapter) mapCallback(actor identity.ActorRef, upd ChatUpdate) (core.Event, *core.Result, error) {
	action, arg, _ := strings.Cut(strings.TrimSpace(upd.Callback), ":")
	arg = strings.TrimSpace(arg)
	switch action {
	case "tier":
		price, err := strconv.Atoi(arg)
		if err != nil {
			return nil, nil, inboundBadInput(
				fmt.Sprintf("inbound: malformed tier callback %q", upd.Callback),
				map[string]any{"callback": upd.Callback},
			)
		}
		return core.SelectTier{CustomerID: actor.ID, Price: price}, nil, nil
	case "skip_email":
		return core.SkipEmail{CustomerID: actor.ID}, nil, nil
	case "cancel":
		return core.CustomerCancel{CustomerID: actor.ID}, nil, nil
	}

	verb, ok := callbackVerbs[action]
	if !ok {
		return nil, nil, inboundBadInput(
			fmt.Sprintf("inbound: unsupported callback %q", upd.Callback),
			map[string]any{"callback": upd.Callback},
		)
	}
	return core.OperatorAction{
		OperatorID: actor.ID,
		OrderID:    arg,
		Verb:       verb,
	}, nil, nil
}

var callbackVerbs = map[string]core.OperatorVerb{
	"approve":          core.VerbApprove,
	"reject":           core.VerbReject,
	"ask_proof":        core.VerbAskProof,
	"request_delivery": core.VerbRequestDelivery,
	"view_img":         core.VerbViewOriginal,
	"view_proof":       core.VerbViewProof,
}

func (a *Adapter) menuReply(actor identity.ActorRef) *core.Result {
	prices := make([]int, 0, len(a.service.Config().Tiers))
	for _, tier := range a.service.Config().Tiers {
		prices = append(prices, tier.Price)
	}
	return &core.Result{Notifications: []core.Notification{{
		Recipient:    core.RecipientCustomer,
		RecipientKey: actor.ID,
		Kind:         core.NoteMenu,
		Metadata:     map[string]any{"tiers": prices},
	}}}
}

func (a *Adapter) statusReply(actor identity.ActorRef, info core.StatusInfo) *core.Result {
	metadata := map[string]any{"found": info.Found}
	if info.Found {
		metadata["order_id"] = info.OrderID
		metadata["state"] = string(info.State)
	}
	return &core.Result{Notifications: []core.Notification{{
		Recipient:    core.RecipientCustomer,
		RecipientKey: actor.ID,
		Kind:         core.NoteStatus,
		OrderID:      info.OrderID,
		Metadata:     metadata,
	}}}
}

func (a *Adapter) ongoingReply(actor identity.ActorRef, order core.Order) *core.Result {
	return &core.Result{Notifications: []core.Notification{{
		Recipient:    core.RecipientCustomer,
		RecipientKey: actor.ID,
		Kind:         core.NoteOngoingOrder,
		OrderID:      order.ID,
		Metadata:     map[string]any{"state": string(order.State)},
	}}}
}

func recoverableRejection(err error) bool {
	return core.IsInvalidTransition(err) ||
		core.IsDuplicateActive(err) ||
		core.IsValidationFailed(err) ||
		core.IsNotFound(err) ||
		core.IsUnauthorized(err) ||
		core.IsStaleTransition(err)
}

func normalizeSurface(surface string) string {
	return strings.TrimSpace(strings.ToLower(surface))
}
