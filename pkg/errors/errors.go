// Package errors provides the error taxonomy for the fiscal reconciliation engine.
// Errors are split by how a caller should react to them: transient remote failures
// end the run and are reconciled forward by the next run, validation failures are
// recorded per record, and ordering or duplicate-key failures are fatal before
// anything is written.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Sentinel errors used with errors.Is.
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that a field or record was rejected
	ErrInvalidInput = errors.New("invalid input")

	// ErrRemoteUnavailable indicates a network failure, throttling or 5xx from a remote system
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrOrdering indicates a dependent entity type was processed before its parent lookups existed
	ErrOrdering = errors.New("entity ordering violated")

	// ErrDuplicateKey indicates two records in one record set share a natural key
	ErrDuplicateKey = errors.New("duplicate natural key")

	// ErrAuthentication indicates credentials were missing or rejected
	ErrAuthentication = errors.New("authentication failed")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError is a record or field rejected by the remote store or by input checks.
// It never fails a run on its own.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents a non-success response from a remote system.
// StatusCode 0 means the request never produced a response.
type APIError struct {
	System     string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.System, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.System, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case target == ErrRemoteUnavailable:
		return IsTransientStatus(e.StatusCode)
	case target == ErrAuthentication:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case target == ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(system string, statusCode int, message string) *APIError {
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    message,
	}
}

// IsTransientStatus reports whether a status code means "try again on a later run".
// Zero is the status recorded for requests that never got a response.
func IsTransientStatus(code int) bool {
	return code == 0 || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// OrderingError is raised when an entity type is about to be written with lookups
// that cannot be resolved against its parent.
type OrderingError struct {
	Entity string
	Parent string
	Reason string
}

// Error implements the error interface
func (e *OrderingError) Error() string {
	return fmt.Sprintf("cannot process %s before %s: %s", e.Entity, e.Parent, e.Reason)
}

// Is implements errors.Is support
func (e *OrderingError) Is(target error) bool {
	return target == ErrOrdering
}

// NewOrderingError creates a new OrderingError
func NewOrderingError(entity, parent, reason string) *OrderingError {
	return &OrderingError{Entity: entity, Parent: parent, Reason: reason}
}

// DuplicateKeyError reports a natural key shared by more than one record of a set.
type DuplicateKeyError struct {
	Entity string
	Side   string // "source" or "remote"
	Key    string
	Count  int
}

// Error implements the error interface
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate natural key %q in %s %s records (%d occurrences)", e.Key, e.Side, e.Entity, e.Count)
}

// Is implements errors.Is support
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// SyncError wraps the failure of one entity type during a run. Entity types processed
// before it have already been written.
type SyncError struct {
	Entity string
	Stage  string // "read", "diff", "resolve", "write"
	Err    error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("sync error for %s during %s: %v", e.Entity, e.Stage, e.Err)
	}
	return fmt.Sprintf("sync error for %s: %v", e.Entity, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(entity, stage string, err error) *SyncError {
	return &SyncError{
		Entity: entity,
		Stage:  stage,
		Err:    err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "csv", "odata"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "read", "query", "submit", "open"
	Resource  string // "list", "database", "report"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTransient checks if an error should be reconciled forward by the next run
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// IsOrdering checks if an error is an entity ordering error
func IsOrdering(err error) bool {
	return errors.Is(err, ErrOrdering)
}

// IsDuplicateKey checks if an error is a duplicate natural key error
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// Helper wrapping functions for common patterns

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(system string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
