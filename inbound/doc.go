// Package inbound adapts chat-transport updates to lifecycle events.
//
// Redelivered updates use claim/complete/fail idempotency semantics so
// transient handling failures remain retryable while business
// rejections are answered exactly once.
package inbound
