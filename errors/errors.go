package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which layer of the host runtime produced the error
type Phase string

const (
	PhaseSchedule Phase = "schedule" // task submission to the worker pool
	PhaseBridge   Phase = "bridge"   // one-shot result delivery
	PhaseHTTP     Phase = "http"     // outbound HTTP bridge
	PhaseIO       Phase = "io"       // virtual files and terminal
	PhaseGuest    Phase = "guest"    // guest interpreter threads
	PhaseCache    Phase = "cache"    // module cache tiers
	PhasePackage  Phase = "package"  // package source and loader
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindThread         Kind = "thread"          // worker could not be created or scheduled
	KindRequest        Kind = "request"         // outbound request failed
	KindDelivery       Kind = "delivery"        // producer dropped before sending
	KindAlreadySent    Kind = "already_sent"    // second send on a one-shot
	KindWouldBlock     Kind = "would_block"     // no data ready
	KindUnsupported    Kind = "unsupported"     // capability not provided by this host
	KindInvalidInput   Kind = "invalid_input"   // malformed argument
	KindNotFound       Kind = "not_found"       // lookup miss
	KindInstantiation  Kind = "instantiation"   // guest module could not be instantiated
	KindInvalidData    Kind = "invalid_data"    // undecodable payload
	KindNotInitialized Kind = "not_initialized" // component missing
	KindClosed         Kind = "closed"          // owner already shut down
	KindExit           Kind = "exit"            // guest exited with a non-zero code
)

// Error is the structured error type used throughout the host runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Thread creates the error reported when the pool cannot create or schedule a worker
func Thread(op string, cause error) *Error {
	return &Error{
		Phase:  PhaseSchedule,
		Kind:   KindThread,
		Op:     op,
		Detail: "unable to create or schedule worker",
		Cause:  cause,
	}
}

// Request creates an outbound request failure
func Request(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseHTTP,
		Kind:   KindRequest,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidStatus creates the request error for a status code that cannot be represented
func InvalidStatus(code int) *Error {
	return &Error{
		Phase:  PhaseHTTP,
		Kind:   KindRequest,
		Detail: fmt.Sprintf("invalid status code %d", code),
		Value:  code,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates a guest instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseGuest,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Exit creates the error for a guest that exited with a non-zero code
func Exit(code uint32) *Error {
	return &Error{
		Phase:  PhaseGuest,
		Kind:   KindExit,
		Detail: fmt.Sprintf("exit code %d", code),
		Value:  code,
	}
}

// Closed creates an error for operations on a shut down component
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Sentinels usable as errors.Is targets. Only Phase and Kind are compared.
var (
	ErrThread   = &Error{Phase: PhaseSchedule, Kind: KindThread}
	ErrRequest  = &Error{Phase: PhaseHTTP, Kind: KindRequest}
	ErrDelivery = &Error{Phase: PhaseBridge, Kind: KindDelivery}
)
