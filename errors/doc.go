// Package errors provides structured error types for the host runtime.
//
// Errors are categorized by Phase (which layer produced the error) and Kind
// (error category). The Error type carries the operation name, a detail
// message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseHTTP, errors.KindRequest).
//		Op("fetch").
//		Detail("status %d out of range", code).
//		Cause(err).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Thread("spawn-shared", cause)
//	err := errors.InvalidStatus(1000)
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind only, so the exported sentinels (ErrThread,
// ErrRequest, ErrDelivery) work as errors.Is targets.
package errors
