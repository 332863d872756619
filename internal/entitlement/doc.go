// Package entitlement tracks which connection handles a call chain may
// access directly.
//
// Each serialized gate runs callers' bodies on a dedicated worker. A body
// running there is entitled to touch that gate's handle without another
// dispatch; any other execution context is not. Entitlement is carried as
// an explicit token inside a context.Context rather than as ambient
// goroutine-local state, so it is exactly scoped to one call chain and
// testable without real workers.
//
// # Records
//
// A Record is an immutable set of opaque handle keys plus a marker for the
// handle most recently entered. Records are never mutated in place: nested
// calls build a new Record that inherits the parent's keys, so an inner
// call can never lose an ancestor's entitlements and an outer context can
// never observe keys added further down the chain.
//
// # Usage
//
//	ctx = entitlement.With(ctx, gateKey)           // fresh chain
//	ctx = entitlement.Inheriting(ctx, rec, gateKey) // nested cross-gate call
//
//	if entitlement.IsEntitled(ctx, gateKey) {
//	    // direct access is legal on this chain
//	}
//
// Precondition failures indicate programmer errors (access from a foreign
// context) and panic with a descriptive message; they are never returned
// as recoverable errors.
package entitlement
