package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-orderflow/core"
)

var (
	_ gocmd.Querier[OrderStatusMessage, core.StatusInfo] = (*OrderStatusQuery)(nil)
	_ gocmd.Querier[GetOrderMessage, core.Order]         = (*GetOrderQuery)(nil)
	_ gocmd.Querier[ListOrdersMessage, []core.Order]     = (*ListOrdersQuery)(nil)
)
