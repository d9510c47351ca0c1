package core

import "strings"

// OperatorGuard rejects privileged events from any identity other than
// the single configured operator. An unconfigured guard fails closed.
type OperatorGuard struct {
	operatorID string
}

func NewOperatorGuard(operatorID string) *OperatorGuard {
	return &OperatorGuard{operatorID: strings.TrimSpace(operatorID)}
}

// Authorize returns ORDER_UNAUTHORIZED unless actor matches the
// configured operator identity. It never touches order state.
func (g *OperatorGuard) Authorize(actor string) error {
	actor = strings.TrimSpace(actor)
	if g == nil || g.operatorID == "" || actor == "" || actor != g.operatorID {
		return orderUnauthorized(actor)
	}
	return nil
}
