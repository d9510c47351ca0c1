package query

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-orderflow/core"
)

func TestGetOrderQuery_NilReaderReturnsRichError(t *testing.T) {
	var q *GetOrderQuery
	_, err := q.Query(context.Background(), GetOrderMessage{OrderID: "ord-1"})
	if err == nil {
		t.Fatalf("expected dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.OrderErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.OrderErrorInternal, rich.TextCode)
	}
}
