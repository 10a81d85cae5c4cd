// Package errors provides the error taxonomy shared by the wikiente packages.
//
// Errors fall in three groups. Process-level errors (missing annotation
// layer, invalid mode, unhandled transport failure) abort the run. Sentence
// level errors (service failures, ignored transport failures) abandon one
// sentence. Mention level errors (inconsistent text) skip one mention.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")

	// ErrMissingAnnotationLayer indicates a document lacks a required declaration
	ErrMissingAnnotationLayer = errors.New("missing annotation layer")
	// ErrInvalidMode indicates an unknown annotation mode
	ErrInvalidMode = errors.New("invalid mode")
	// ErrService indicates the annotation service produced no usable result
	ErrService = errors.New("annotation service error")
	// ErrTransport indicates the annotation service could not be reached
	ErrTransport = errors.New("transport error")
	// ErrInconsistentText indicates token text and recorded offsets disagree
	ErrInconsistentText = errors.New("inconsistent text")
)

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "FoLiA", "JSON")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// MissingAnnotationLayerError is returned when a document does not declare
// an annotation type that processing depends on.
type MissingAnnotationLayerError struct {
	Layer string // Annotation type, e.g. "sentence"
	Path  string // Document path, if known
}

func (e *MissingAnnotationLayerError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s contains no %s annotation, but this is required", e.Path, e.Layer)
	}
	return fmt.Sprintf("document contains no %s annotation, but this is required", e.Layer)
}

func (e *MissingAnnotationLayerError) Unwrap() error {
	return ErrMissingAnnotationLayer
}

// InvalidModeError is returned for an annotation mode outside the known set.
type InvalidModeError struct {
	Mode int
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %d: expected 1 (fine-grained) or 2 (coarse-grained)", e.Mode)
}

func (e *InvalidModeError) Unwrap() error {
	return ErrInvalidMode
}

// ServiceError is returned when the annotation service answered but the
// answer holds no usable annotations.
type ServiceError struct {
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("spotlight: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("spotlight: %s", e.Message)
}

func (e *ServiceError) Unwrap() error {
	if e.Err != nil {
		return errors.Join(ErrService, e.Err)
	}
	return ErrService
}

// TransportError is returned when the annotation service cannot be reached
// or responds with an HTTP error status.
type TransportError struct {
	URL        string
	StatusCode int    // Zero when no response was received
	Status     string // HTTP status line, if any
	Err        error  // Underlying network error, if any
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP error: %s (%s)", e.Status, e.URL)
	}
	return fmt.Sprintf("HTTP error: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e.Err != nil {
		return errors.Join(ErrTransport, e.Err)
	}
	return ErrTransport
}

// InconsistentTextError is returned when a token's recorded offset does not
// point at its own text within the sentence text.
type InconsistentTextError struct {
	TokenID string
	Offset  int
	Want    string // Token text
	Got     string // Sentence text at the recorded offset
}

func (e *InconsistentTextError) Error() string {
	return fmt.Sprintf("text for %s at offset %d is inconsistent: expected %q, found %q", e.TokenID, e.Offset, e.Want, e.Got)
}

func (e *InconsistentTextError) Unwrap() error {
	return ErrInconsistentText
}

// Helper functions for creating common errors

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewMissingAnnotationLayer creates a MissingAnnotationLayerError
func NewMissingAnnotationLayer(layer, path string) *MissingAnnotationLayerError {
	return &MissingAnnotationLayerError{Layer: layer, Path: path}
}

// NewService creates a ServiceError
func NewService(message string, err error) *ServiceError {
	return &ServiceError{Message: message, Err: err}
}

// IsFatal reports whether err must abort the whole run rather than a single
// document, sentence or mention.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidMode) || errors.Is(err, ErrTransport)
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
