package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-orderflow/core"
)

const (
	TypeOrderStatus = "orderflow.query.order_status"
	TypeGetOrder    = "orderflow.query.get_order"
	TypeListOrders  = "orderflow.query.list_orders"
)

type OrderStatusMessage struct {
	CustomerID string
}

func (OrderStatusMessage) Type() string { return TypeOrderStatus }

func (m OrderStatusMessage) Validate() error {
	if strings.TrimSpace(m.CustomerID) == "" {
		return fmt.Errorf("query: customer id is required")
	}
	return nil
}

type GetOrderMessage struct {
	OrderID string
}

func (GetOrderMessage) Type() string { return TypeGetOrder }

func (m GetOrderMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return fmt.Errorf("query: order id is required")
	}
	return nil
}

// ListOrdersMessage enumerates retained orders oldest first. State is
// an optional filter.
type ListOrdersMessage struct {
	State core.State
}

func (ListOrdersMessage) Type() string { return TypeListOrders }

func (m ListOrdersMessage) Validate() error {
	if m.State != "" && !m.State.Valid() {
		return fmt.Errorf("query: unknown state %q", m.State)
	}
	return nil
}
