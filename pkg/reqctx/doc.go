// Package reqctx provides centralized request context management.
//
// This package is the single source of truth for all request-scoped data:
// the acting principal resolved by the identity middleware, request
// metadata, and tracing information.
//
// # Context Keys
//
// All context keys are private unexported types to prevent collisions.
// Access is provided through type-safe getter and setter functions.
//
// # Contracts
//
// The following contracts are guaranteed:
//
//   - RequestMeta is always set by HTTP middleware for all requests
//   - Actor is set only when the identity provider supplied valid claims
//   - TraceInfo is set when distributed tracing is enabled
package reqctx
