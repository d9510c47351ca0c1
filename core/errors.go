package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	OrderErrorDuplicateActive   = "ORDER_DUPLICATE_ACTIVE"
	OrderErrorInvalidTransition = "ORDER_INVALID_TRANSITION"
	OrderErrorNotFound          = "ORDER_NOT_FOUND"
	OrderErrorUnauthorized      = "ORDER_UNAUTHORIZED"
	OrderErrorValidationFailed  = "ORDER_VALIDATION_FAILED"
	OrderErrorStaleTransition   = "ORDER_STALE_TRANSITION"
	OrderErrorBadInput          = "ORDER_BAD_INPUT"
	OrderErrorInternal          = "ORDER_INTERNAL_ERROR"
)

func orderError(
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

func orderBadInput(message string, metadata map[string]any) error {
	return orderError(message, goerrors.CategoryBadInput, http.StatusBadRequest, OrderErrorBadInput, metadata)
}

func orderNotFound(message string, metadata map[string]any) error {
	return orderError(message, goerrors.CategoryNotFound, http.StatusNotFound, OrderErrorNotFound, metadata)
}

func orderDuplicateActive(customerID, orderID string) error {
	return orderError(
		"core: customer already has an active order",
		goerrors.CategoryConflict,
		http.StatusConflict,
		OrderErrorDuplicateActive,
		map[string]any{"customer_id": customerID, "order_id": orderID},
	)
}

func orderInvalidTransition(orderID string, from State, kind EventKind) error {
	return orderError(
		"core: event is not valid for the order's current state",
		goerrors.CategoryOperation,
		http.StatusUnprocessableEntity,
		OrderErrorInvalidTransition,
		map[string]any{"order_id": orderID, "state": string(from), "event": string(kind)},
	)
}

func orderStale(orderID string, expected, observed State) error {
	return orderError(
		"core: order state changed since the caller observed it",
		goerrors.CategoryConflict,
		http.StatusConflict,
		OrderErrorStaleTransition,
		map[string]any{"order_id": orderID, "expected": string(expected), "observed": string(observed)},
	)
}

func orderUnauthorized(actor string) error {
	return orderError(
		"core: operator action from unrecognized identity",
		goerrors.CategoryAuth,
		http.StatusUnauthorized,
		OrderErrorUnauthorized,
		map[string]any{"actor": actor},
	)
}

func orderValidationFailed(field, message string) error {
	return goerrors.NewValidation("core: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(OrderErrorValidationFailed).
		WithSeverity(goerrors.SeverityError)
}

func orderInternal(message string, metadata map[string]any) error {
	return orderError(message, goerrors.CategoryInternal, http.StatusInternalServerError, OrderErrorInternal, metadata)
}

// IsInvalidTransition reports whether err is the deliberate no-op
// rejection surfaced to the actor as a generic message.
func IsInvalidTransition(err error) bool {
	return hasTextCode(err, OrderErrorInvalidTransition)
}

func IsDuplicateActive(err error) bool {
	return hasTextCode(err, OrderErrorDuplicateActive)
}

func IsNotFound(err error) bool {
	return hasTextCode(err, OrderErrorNotFound)
}

func IsUnauthorized(err error) bool {
	return hasTextCode(err, OrderErrorUnauthorized)
}

func IsValidationFailed(err error) bool {
	return hasTextCode(err, OrderErrorValidationFailed)
}

func IsStaleTransition(err error) bool {
	return hasTextCode(err, OrderErrorStaleTransition)
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func orderErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureOrderErrorEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureOrderErrorEnvelope(mapped)
}

func ensureOrderErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = orderHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultOrderTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultOrderTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return OrderErrorBadInput
	case goerrors.CategoryValidation:
		return OrderErrorValidationFailed
	case goerrors.CategoryNotFound:
		return OrderErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return OrderErrorUnauthorized
	case goerrors.CategoryConflict:
		return OrderErrorStaleTransition
	case goerrors.CategoryOperation:
		return OrderErrorInvalidTransition
	default:
		return OrderErrorInternal
	}
}

func orderHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
