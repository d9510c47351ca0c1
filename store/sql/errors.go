package sqlstore

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-orderflow/core"
)

func storeError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func storeNotFound(message string, metadata map[string]any) error {
	return storeError(message, goerrors.CategoryNotFound, http.StatusNotFound, core.OrderErrorNotFound, metadata)
}

func storeBadInput(message string, metadata map[string]any) error {
	return storeError(message, goerrors.CategoryBadInput, http.StatusBadRequest, core.OrderErrorBadInput, metadata)
}

func storeDuplicateActive(customerID, orderID string) error {
	return storeError(
		"sqlstore: customer already has an active order",
		goerrors.CategoryConflict,
		http.StatusConflict,
		core.OrderErrorDuplicateActive,
		map[string]any{"customer_id": customerID, "order_id": orderID},
	)
}

func storeStale(orderID string, expected, observed core.State) error {
	return storeError(
		"sqlstore: order state changed since the caller observed it",
		goerrors.CategoryConflict,
		http.StatusConflict,
		core.OrderErrorStaleTransition,
		map[string]any{"order_id": orderID, "expected": string(expected), "observed": string(observed)},
	)
}

func storeInternal(message string, metadata map[string]any) error {
	return storeError(message, goerrors.CategoryInternal, http.StatusInternalServerError, core.OrderErrorInternal, metadata)
}
