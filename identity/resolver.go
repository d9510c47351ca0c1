package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-orderflow/core"
)

var ErrUnknownActor = errors.New("identity: actor not recognized")

type UnknownActorError struct {
	Cause error
}

func (e *UnknownActorError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrUnknownActor.Error()
	}
	return ErrUnknownActor.Error() + ": " + e.Cause.Error()
}

func (e *UnknownActorError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrUnknownActor
	}
	return errors.Join(ErrUnknownActor, e.Cause)
}

func (e *UnknownActorError) ToOrderError() *goerrors.Error {
	message := ErrUnknownActor.Error()
	if e != nil && e.Cause != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.OrderErrorBadInput)
}

func unknownActor(cause error) error {
	return &UnknownActorError{Cause: cause}
}

// ActorKind separates the two principals the lifecycle knows about.
type ActorKind string

const (
	KindCustomer ActorKind = "customer"
	KindOperator ActorKind = "operator"
)

// ActorRef is the canonical actor reference the core consumes. The
// transport hands over whatever identity shape it has; resolution
// produces a stable "kind:id" pair.
type ActorRef struct {
	Kind        ActorKind
	ID          string
	DisplayName string
	Username    string
}

func (a ActorRef) String() string {
	return string(a.Kind) + ":" + a.ID
}

func (a ActorRef) IsOperator() bool {
	return a.Kind == KindOperator
}

// ParseActorRef reverses ActorRef.String.
func ParseActorRef(value string) (ActorRef, error) {
	kind, id, found := strings.Cut(strings.TrimSpace(value), ":")
	if !found {
		return ActorRef{}, unknownActor(fmt.Errorf("missing kind separator in %q", value))
	}
	switch ActorKind(kind) {
	case KindCustomer, KindOperator:
	default:
		return ActorRef{}, unknownActor(fmt.Errorf("unsupported actor kind %q", kind))
	}
	if strings.TrimSpace(id) == "" {
		return ActorRef{}, unknownActor(fmt.Errorf("empty actor id in %q", value))
	}
	return ActorRef{Kind: ActorKind(kind), ID: strings.TrimSpace(id)}, nil
}

type Config struct {
	// OperatorID is the privileged transport identity. Matching is
	// exact after normalization.
	OperatorID string

	// OperatorAliases allow the same principal to act under secondary
	// handles, a username alongside a numeric chat id.
	OperatorAliases []string
}

// Resolver classifies raw transport identities. Everything that is not
// the configured operator is a customer; the guard makes the final
// authorization call.
type Resolver struct {
	operatorID string
	aliases    map[string]struct{}
}

func NewResolver(cfg Config) *Resolver {
	aliases := make(map[string]struct{}, len(cfg.OperatorAliases))
	for _, alias := range cfg.OperatorAliases {
		normalized := normalizeHandle(alias)
		if normalized == "" {
			continue
		}
		aliases[normalized] = struct{}{}
	}
	return &Resolver{
		operatorID: strings.TrimSpace(cfg.OperatorID),
		aliases:    aliases,
	}
}

// RawActor is the transport-shaped identity. ID may arrive as a string,
// a number, or a json.Number depending on the chat transport's decoder.
type RawActor struct {
	ID          any
	Username    string
	DisplayName string
}

func (r *Resolver) Resolve(raw RawActor) (ActorRef, error) {
	if r == nil {
		return ActorRef{}, unknownActor(nil)
	}
	id := readID(raw.ID)
	if id == "" {
		return ActorRef{}, unknownActor(fmt.Errorf("empty transport id"))
	}

	ref := ActorRef{
		Kind:        KindCustomer,
		ID:          id,
		DisplayName: strings.TrimSpace(raw.DisplayName),
		Username:    normalizeHandle(raw.Username),
	}
	if r.isOperator(id, ref.Username) {
		ref.Kind = KindOperator
	}
	return ref, nil
}

func (r *Resolver) isOperator(id, username string) bool {
	if r.operatorID != "" && id == r.operatorID {
		return true
	}
	if _, ok := r.aliases[id]; ok {
		return true
	}
	if username != "" {
		if _, ok := r.aliases[username]; ok {
			return true
		}
	}
	return false
}

func normalizeHandle(value string) string {
	return strings.TrimPrefix(strings.TrimSpace(strings.ToLower(value)), "@")
}

func readID(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	case json.Number:
		return strings.TrimSpace(typed.String())
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}
