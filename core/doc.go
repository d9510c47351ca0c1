// Package core contains the canonical order-lifecycle contracts,
// entities, and orchestration logic: the registry, the transition
// engine, payload dispatch, the email policy, and the operator guard.
// Transport and storage adapters depend on this package; core must not
// depend on them.
package core
