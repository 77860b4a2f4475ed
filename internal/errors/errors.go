// Package errors provides BridgeError, a classified error carrying category,
// severity and retry semantics for the daemon, the HTTP surface and the CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory classifies a BridgeError.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Talking to the companion server.
	CategoryNetwork   ErrorCategory = "network"
	CategoryIdentity  ErrorCategory = "identity"
	CategoryDiscovery ErrorCategory = "discovery"

	CategoryStorage  ErrorCategory = "storage"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"
)

// ContextFields carries structured context for a BridgeError.
type ContextFields map[string]any

// BridgeError is a structured error with category, retryability and context.
type BridgeError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

func (e *BridgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// WithContext adds a context field and returns the receiver for chaining.
func (e *BridgeError) WithContext(key string, value any) *BridgeError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a non-retryable BridgeError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *BridgeError {
	return &BridgeError{Category: category, Severity: severity, Message: message}
}

// Wrap creates a non-retryable BridgeError around err.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *BridgeError {
	return &BridgeError{Category: category, Severity: severity, Message: message, Cause: err}
}

// WrapRetryable creates a retryable BridgeError around err.
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *BridgeError {
	return &BridgeError{Category: category, Severity: severity, Message: message, Cause: err, Retryable: true}
}

// As returns the outermost BridgeError in err's chain.
func As(err error) (*BridgeError, bool) {
	var be *BridgeError
	if stdErrors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsCategory reports whether err carries a BridgeError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	be, ok := As(err)
	return ok && be.Category == category
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	be, ok := As(err)
	return ok && be.Retryable
}

// GetCategory extracts the category, defaulting to CategoryInternal.
func GetCategory(err error) ErrorCategory {
	if be, ok := As(err); ok {
		return be.Category
	}
	return CategoryInternal
}
