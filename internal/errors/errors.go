// Package errors provides centralized error definitions and error handling utilities
// for feedview. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures at the client's boundaries:
//   - ViewFetchError: a view template could not be retrieved after all attempts
//   - FeedLoadError: a feed loader callback failed
//   - HandlerError: a page module hook or route handler failed or panicked
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewViewFetchError("news", 3, cause).WithStatus(503)
//
//	if errors.Is(err, errors.ErrViewUnavailable) { ... }
//
//	var vf *errors.ViewFetchError
//	if errors.As(err, &vf) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// View-related sentinel errors
var (
	// ErrViewUnavailable indicates that a view could not be retrieved.
	ErrViewUnavailable = New("view unavailable")
	// ErrBadStatus indicates a non-2xx response for a retrievable resource.
	ErrBadStatus = New("unexpected response status")
)

// Feed-related sentinel errors
var (
	// ErrFeedNotRegistered indicates an operation on a feed name that was never registered.
	ErrFeedNotRegistered = New("feed not registered")
	// ErrFeedLoadFailed indicates that a feed loader returned an error.
	ErrFeedLoadFailed = New("feed load failed")
	// ErrStaleLoad indicates that a load finished after its feed was reset.
	ErrStaleLoad = New("stale feed load discarded")
)

// Router-related sentinel errors
var (
	// ErrStaleNavigation indicates a transition superseded by a newer navigation.
	ErrStaleNavigation = New("navigation superseded")
	// ErrNotInitialized indicates that the router was used before Init.
	ErrNotInitialized = New("router not initialized")
	// ErrHandlerPanic indicates that a hook or handler panicked.
	ErrHandlerPanic = New("handler panicked")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// FeedviewError is the base interface for all feedview errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type FeedviewError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ViewFetchError reports a view whose template could not be retrieved.
// It always matches ErrViewUnavailable.
//
// Example:
//
//	err := errors.NewViewFetchError("broken", 3, cause).WithStatus(500)
//	fmt.Println(err) // "view error [view=broken, attempts=3, status=500]: view unavailable: ..."
type ViewFetchError struct {
	baseError
	ViewID   string
	Attempts int
	Status   int
}

// NewViewFetchError creates a new ViewFetchError.
func NewViewFetchError(viewID string, attempts int, cause error) *ViewFetchError {
	return &ViewFetchError{
		baseError: baseError{
			message:    "view unavailable",
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		ViewID:   viewID,
		Attempts: attempts,
	}
}

// WithStatus records the last HTTP status observed.
func (e *ViewFetchError) WithStatus(status int) *ViewFetchError {
	e.Status = status
	return e
}

// Error returns the formatted error message.
func (e *ViewFetchError) Error() string {
	parts := []string{fmt.Sprintf("view=%s", e.ViewID)}
	if e.Attempts > 0 {
		parts = append(parts, fmt.Sprintf("attempts=%d", e.Attempts))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	prefix := fmt.Sprintf("view error [%s]", strings.Join(parts, ", "))
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ViewFetchError) Is(target error) bool {
	if _, ok := target.(*ViewFetchError); ok {
		return true
	}
	if target == ErrViewUnavailable {
		return true
	}
	return e.baseError.Is(target)
}

// FeedLoadError reports a failed feed loader invocation.
//
// Example:
//
//	err := errors.NewFeedLoadError("home", cause)
//	fmt.Println(err) // "feed error [feed=home]: feed load failed: ..."
type FeedLoadError struct {
	baseError
	Feed string
}

// NewFeedLoadError creates a new FeedLoadError.
func NewFeedLoadError(feed string, cause error) *FeedLoadError {
	return &FeedLoadError{
		baseError: baseError{
			message:    "feed load failed",
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Feed: feed,
	}
}

// Error returns the formatted error message.
func (e *FeedLoadError) Error() string {
	prefix := fmt.Sprintf("feed error [feed=%s]", e.Feed)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *FeedLoadError) Is(target error) bool {
	if _, ok := target.(*FeedLoadError); ok {
		return true
	}
	if target == ErrFeedLoadFailed {
		return true
	}
	return e.baseError.Is(target)
}

// HandlerError reports a failure inside a page module hook or a route handler.
// These never abort a transition; they exist so the failure can be logged
// and published with its context.
type HandlerError struct {
	baseError
	Path   string
	ViewID string
	Phase  string
}

// NewHandlerError creates a new HandlerError for the given lifecycle phase
// ("setup", "teardown" or "handler").
func NewHandlerError(phase string, cause error) *HandlerError {
	return &HandlerError{
		baseError: baseError{
			message:    phase + " failed",
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: false,
		},
		Phase: phase,
	}
}

// WithPath adds the route path to the error context.
func (e *HandlerError) WithPath(path string) *HandlerError {
	e.Path = path
	return e
}

// WithViewID adds the view identifier to the error context.
func (e *HandlerError) WithViewID(id string) *HandlerError {
	e.ViewID = id
	return e
}

// Error returns the formatted error message.
func (e *HandlerError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.ViewID != "" {
		parts = append(parts, fmt.Sprintf("view=%s", e.ViewID))
	}

	prefix := "handler error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("handler error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *HandlerError) Is(target error) bool {
	if _, ok := target.(*HandlerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("view", "news")
//	fmt.Println(err) // "view 'news' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("must be at least 1")
//	err = err.WithField("views.retries").WithValue(-1)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("GET /views/home.txt", 5*time.Second)
//	fmt.Println(err) // "timeout error: GET /views/home.txt (timeout: 5s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing FeedviewError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var fvErr FeedviewError
	if As(err, &fvErr) {
		return fvErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var fvErr FeedviewError
	if As(err, &fvErr) {
		return fvErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement FeedviewError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var fvErr FeedviewError
	if As(err, &fvErr) {
		return fvErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this preserves the FeedviewError interface.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Recovered converts a recovered panic value into an error wrapping ErrHandlerPanic.
// It returns nil when r is nil so it can be used directly on recover()'s result.
func Recovered(r any) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrHandlerPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrHandlerPanic, r)
}
