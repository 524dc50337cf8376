// Package errs provides the typed error-kind wrapper used across FlexiCLI's
// components (spec §7). Every component-level error constructor attaches one
// of the eight closed error kinds so the Orchestrator can classify failures
// without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a closed enum of the error categories from spec §7.
type Kind int

const (
	// KindValidation covers bad arguments or bad task shape. Never retried.
	KindValidation Kind = iota + 1
	// KindPermission covers a tool not in the allowed set, or denied by the user.
	KindPermission
	// KindRateLimited covers provider 429s, retried with backoff inside C7.
	KindRateLimited
	// KindTransientIO covers 502/503/network resets, handled like rate limiting.
	KindTransientIO
	// KindTimeout covers an elapsed deadline.
	KindTimeout
	// KindTool covers tool-specific failures: file-not-found, command-not-found, parse error.
	KindTool
	// KindBudgetExceeded covers a token cap hit for a mandatory category.
	KindBudgetExceeded
	// KindCorruption covers an unreadable DB or invalid snapshot.
	KindCorruption
)

// String renders the kind for logging.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindRateLimited:
		return "rate_limited"
	case KindTransientIO:
		return "transient_io"
	case KindTimeout:
		return "timeout"
	case KindTool:
		return "tool"
	case KindBudgetExceeded:
		return "budget_exceeded"
	case KindCorruption:
		return "corruption"
	default:
		return "unknown"
	}
}

// Retryable reports whether the Orchestrator/C7 retry loop should attempt
// this kind again. Only rate-limited and transient I/O errors are retryable
// by the infrastructure itself; timeout may be retried once at the
// Orchestrator's discretion via decomposition, which is not automatic.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindTransientIO
}

// Error is the typed error carried across component boundaries. It wraps an
// underlying cause and attaches a stable Kind plus optional structured
// fields (e.g. HTTP status, tool name) for callers that need to act on them
// without parsing the message.
type Error struct {
	Kind    Kind
	Op      string // component/operation that produced the error, e.g. "modelclient.chat"
	Message string
	Cause   error
	Fields  map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithField attaches a structured field and returns the same error for chaining.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any, 1)
	}
	e.Fields[key] = value
	return e
}

// New constructs a typed error with the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap constructs a typed error around an existing cause.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, or 0 (no kind) if err is not (or does
// not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func Validation(op, message string, cause error) *Error      { return Wrap(KindValidation, op, message, cause) }
func Permission(op, message string, cause error) *Error      { return Wrap(KindPermission, op, message, cause) }
func RateLimited(op, message string, cause error) *Error     { return Wrap(KindRateLimited, op, message, cause) }
func TransientIO(op, message string, cause error) *Error     { return Wrap(KindTransientIO, op, message, cause) }
func Timeout(op, message string, cause error) *Error         { return Wrap(KindTimeout, op, message, cause) }
func Tool(op, message string, cause error) *Error            { return Wrap(KindTool, op, message, cause) }
func BudgetExceeded(op, message string, cause error) *Error  { return Wrap(KindBudgetExceeded, op, message, cause) }
func Corruption(op, message string, cause error) *Error      { return Wrap(KindCorruption, op, message, cause) }
