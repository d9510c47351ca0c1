package query

import (
	"context"

	"github.com/goliatone/go-orderflow/core"
)

type StatusReader interface {
	Status(ctx context.Context, customerID string) (core.StatusInfo, error)
}

type OrderReader interface {
	Order(ctx context.Context, orderID string) (core.Order, error)
	Orders(ctx context.Context) ([]core.Order, error)
}

type OrderStatusQuery struct {
	reader StatusReader
}

func NewOrderStatusQuery(reader StatusReader) *OrderStatusQuery {
	return &OrderStatusQuery{reader: reader}
}

func (q *OrderStatusQuery) Query(ctx context.Context, msg OrderStatusMessage) (core.StatusInfo, error) {
	if q == nil || q.reader == nil {
		return core.StatusInfo{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.Status(ctx, msg.CustomerID)
}

type GetOrderQuery struct {
	reader OrderReader
}

func NewGetOrderQuery(reader OrderReader) *GetOrderQuery {
	return &GetOrderQuery{reader: reader}
}

func (q *GetOrderQuery) Query(ctx context.Context, msg GetOrderMessage) (core.Order, error) {
	if q == nil || q.reader == nil {
		return core.Order{}, queryDependencyError("query: order reader is required")
	}
	return q.reader.Order(ctx, msg.OrderID)
}

type ListOrdersQuery struct {
	reader OrderReader
}

func NewListOrdersQuery(reader OrderReader) *ListOrdersQuery {
	return &ListOrdersQuery{reader: reader}
}

func (q *ListOrdersQuery) Query(ctx context.Context, msg ListOrdersMessage) ([]core.Order, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: order reader is required")
	}
	orders, err := q.reader.Orders(ctx)
	if err != nil {
		return nil, err
	}
	if msg.State == "" {
		return orders, nil
	}
	filtered := make([]core.Order, 0, len(orders))
	for _, order := range orders {
		if order.State == msg.State {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}
