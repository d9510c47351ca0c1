package identity

import (
	"errors"
	"testing"

	"github.com/goliatone/go-orderflow/core"
)

func TestUnknownActorError_ToOrderError(t *testing.T) {
	err := &UnknownActorError{Cause: errors.New("empty transport id")}
	mapped := err.ToOrderError()
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.TextCode != core.OrderErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.OrderErrorBadInput, mapped.TextCode)
	}
	if mapped.Code != 400 {
		t.Fatalf("expected status code 400, got %d", mapped.Code)
	}
}

func TestUnknownActorError_PreservesSentinel(t *testing.T) {
	err := unknownActor(errors.New("unsupported actor kind"))
	if !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("expected errors.Is(err, ErrUnknownActor) to be true")
	}
}
