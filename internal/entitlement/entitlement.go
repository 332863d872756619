package entitlement

import (
	"context"
	"fmt"
)

// Key identifies one connection handle. Keys are opaque to this package;
// gates use their own unique identifier strings.
type Key string

// Record is the per-call-chain entitlement set.
//
// A Record is immutable after construction. Deriving a new chain (With,
// Inheriting) copies the parent's keys into a fresh Record, which keeps
// entitlement monotonic within a chain and prevents it leaking out of one.
type Record struct {
	allowed map[Key]struct{}
	current Key
}

// contextKey is the private context key for the active Record.
type contextKey struct{}

// Entitled reports whether the record permits direct access to key.
func (r *Record) Entitled(key Key) bool {
	if r == nil {
		return false
	}
	_, ok := r.allowed[key]
	return ok
}

// Current returns the key of the handle most recently entered on this chain.
func (r *Record) Current() Key {
	if r == nil {
		return ""
	}
	return r.current
}

// FromContext returns the Record attached to ctx, or nil when the context
// belongs to no serialized call chain.
func FromContext(ctx context.Context) *Record {
	rec, _ := ctx.Value(contextKey{}).(*Record)
	return rec
}

// With returns a context for a fresh call chain entitled to exactly one
// handle. Used when a gate dispatches a body from an unentitled caller.
func With(ctx context.Context, key Key) context.Context {
	rec := &Record{
		allowed: map[Key]struct{}{key: {}},
		current: key,
	}
	return context.WithValue(ctx, contextKey{}, rec)
}

// Inheriting returns a context entitled to key plus every handle the parent
// record holds. Used for cross-gate nested calls: a body running on gate A
// that invokes gate B keeps its entitlement to A while inside B, so a call
// back into A is recognised as same-chain access instead of deadlocking on
// A's blocked worker.
//
// A nil parent behaves like With.
func Inheriting(ctx context.Context, parent *Record, key Key) context.Context {
	if parent == nil {
		return With(ctx, key)
	}
	allowed := make(map[Key]struct{}, len(parent.allowed)+1)
	for k := range parent.allowed {
		allowed[k] = struct{}{}
	}
	allowed[key] = struct{}{}
	rec := &Record{allowed: allowed, current: key}
	return context.WithValue(ctx, contextKey{}, rec)
}

// IsEntitled reports whether ctx may access the handle identified by key
// without dispatching.
func IsEntitled(ctx context.Context, key Key) bool {
	return FromContext(ctx).Entitled(key)
}

// Precondition panics with a descriptive message unless ctx is entitled to
// key. The message names the handle via desc so the failure points at the
// offending access.
//
// A failed precondition is a programming mistake, not a runtime condition;
// callers must not recover from it.
func Precondition(ctx context.Context, key Key, desc string) {
	if !IsEntitled(ctx, key) {
		panic(fmt.Sprintf(
			"entitlement: database access to %s was not scheduled: "+
				"the current execution context is not entitled to this connection", desc))
	}
}
