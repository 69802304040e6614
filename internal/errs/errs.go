// Package errs defines the closed error taxonomy shared by every backend.
//
// Each component converts its failures into exactly one of these kinds at
// the boundary where they are detected. The dispatcher never invents new
// kinds — it relays what a handler raised, or wraps anything unexpected
// as Internal.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind identifies one member of the taxonomy.
type Kind int

const (
	// Internal is the fallback for unexpected failures; never raised
	// directly by handlers.
	Internal Kind = iota
	Permission
	Timeout
	Validation
	NotFound
	Database
	ServiceUnavailable
	UnknownOperation
)

// Error is a typed failure with a stable machine code and HTTP status.
// Errors never carry retry state; retries are the caller's business.
type Error struct {
	Kind    Kind
	Code    string
	Status  int
	Message string
	wrapped error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// codeFor maps each kind to its stable machine code and protocol status.
func codeFor(k Kind) (string, int) {
	switch k {
	case Permission:
		return "PERMISSION_DENIED", http.StatusForbidden
	case Timeout:
		return "TIMEOUT", http.StatusGatewayTimeout
	case Validation:
		return "INVALID_ARGUMENT", http.StatusBadRequest
	case NotFound:
		return "NOT_FOUND", http.StatusNotFound
	case Database:
		return "DATABASE_ERROR", http.StatusInternalServerError
	case ServiceUnavailable:
		return "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable
	case UnknownOperation:
		return "UNKNOWN_OPERATION", http.StatusBadRequest
	default:
		return "INTERNAL", http.StatusInternalServerError
	}
}

// New creates an Error of the given kind with a formatted message.
func New(k Kind, format string, args ...any) *Error {
	code, status := codeFor(k)
	return &Error{Kind: k, Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}

// Permissionf reports a denied automation permission, naming the capability
// and how to fix it.
func Permissionf(capability string) *Error {
	return New(Permission,
		"macOS automation permission denied for %s. Grant access in System Settings → Privacy & Security → Automation, then retry.",
		capability)
}

// Timeoutf reports an operation that exceeded its bound.
func Timeoutf(operation string, seconds int) *Error {
	return New(Timeout, "%s timed out after %ds", operation, seconds)
}

// Validationf reports a caller mistake in the request itself.
func Validationf(format string, args ...any) *Error {
	return New(Validation, format, args...)
}

// NotFoundf reports a missing resource.
func NotFoundf(resource string) *Error {
	return New(NotFound, "%s not found", resource)
}

// Databasef wraps an underlying store failure, naming the logical database
// ("Messages", "WhatsApp", ...) rather than a filesystem path.
func Databasef(database string, err error) *Error {
	e := New(Database, "%s database error: %v", database, err)
	e.wrapped = err
	return e
}

// Unavailablef reports a companion service that could not be reached or
// answered unusably.
func Unavailablef(service, reason string) *Error {
	return New(ServiceUnavailable, "%s unavailable: %s", service, reason)
}

// UnknownOperationf reports a dispatch miss, listing every valid name so
// the caller can self-correct.
func UnknownOperationf(name string, valid []string) *Error {
	names := append([]string(nil), valid...)
	sort.Strings(names)
	return New(UnknownOperation, "unknown operation %q. Valid operations: %s", name, strings.Join(names, ", "))
}

// Internalf wraps an unexpected failure that escaped a handler untyped.
func Internalf(err error) *Error {
	e := New(Internal, "internal error: %v", err)
	e.wrapped = err
	return e
}

// From coerces any error into a taxonomy error. Typed errors pass through
// unchanged; anything else becomes Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internalf(err)
}

// IsKind reports whether err is a taxonomy error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
