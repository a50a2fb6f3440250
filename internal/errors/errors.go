// Package errors provides structured error handling for officewatch
// operations. It defines error codes, typed errors for the scan, registry,
// and chat layers, and utilities for classifying errors at the API boundary.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeConflict      ErrorCode = "CONFLICT"

	// Scanning errors.
	CodeScanFailed   ErrorCode = "SCAN_FAILED"
	CodeScannerSpawn ErrorCode = "SCANNER_SPAWN"
	CodeScanLogWrite ErrorCode = "SCAN_LOG_WRITE"

	// Registry (document store) errors.
	CodeRegistryConnection ErrorCode = "REGISTRY_CONNECTION"
	CodeRegistryQuery      ErrorCode = "REGISTRY_QUERY"
	CodeRegistryMigration  ErrorCode = "REGISTRY_MIGRATION"

	// Chat errors.
	CodeChatDispatch ErrorCode = "CHAT_DISPATCH"
	CodeChatSend     ErrorCode = "CHAT_SEND"
)

// ScanError represents an error that occurred while running or aggregating
// network scans. Stderr holds the raw scanner diagnostics when the
// subprocess exited non-zero; it is surfaced verbatim in API error payloads.
type ScanError struct {
	Code    ErrorCode
	Message string
	Iface   string
	Stderr  string
	Cause   error
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Iface != "" {
		return fmt.Sprintf("[%s] %s (interface: %s)", e.Code, e.Message, e.Iface)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Cause
}

// Detail returns the most specific diagnostic text available: the scanner's
// stderr if any, otherwise the cause, otherwise the message.
func (e *ScanError) Detail() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

// NewScanError creates a new scan error with the specified code and message.
func NewScanError(code ErrorCode, message string) *ScanError {
	return &ScanError{Code: code, Message: message}
}

// WrapScanError wraps an existing error as a scan error.
func WrapScanError(code ErrorCode, message string, err error) *ScanError {
	return &ScanError{Code: code, Message: message, Cause: err}
}

// RegistryError represents user-registry persistence errors.
type RegistryError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *RegistryError) Unwrap() error {
	return e.Cause
}

// NewRegistryError creates a new registry error.
func NewRegistryError(code ErrorCode, message string) *RegistryError {
	return &RegistryError{Code: code, Message: message}
}

// WrapRegistryError wraps an existing error as a registry error.
func WrapRegistryError(code ErrorCode, message string, err error) *RegistryError {
	return &RegistryError{Code: code, Message: message, Cause: err}
}

// ChatError represents chat-platform dispatch or send failures.
type ChatError struct {
	Code    ErrorCode
	Message string
	Channel string
	Cause   error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("[%s] %s (channel: %s)", e.Code, e.Message, e.Channel)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ChatError) Unwrap() error {
	return e.Cause
}

// WrapChatError wraps an existing error as a chat error.
func WrapChatError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{Code: code, Message: message, Cause: err}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string) *ConfigError {
	return &ConfigError{Code: code, Message: message, Field: field}
}

// Utility functions for common error operations

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ScanError:
		return e.Code
	case *RegistryError:
		return e.Code
	case *ChatError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// Common error creation functions

// ErrScanFailed creates an error for a scanner subprocess that exited
// non-zero, preserving its stderr output.
func ErrScanFailed(iface, stderr string, err error) *ScanError {
	return &ScanError{
		Code:    CodeScanFailed,
		Message: "Network scan failed",
		Iface:   iface,
		Stderr:  stderr,
		Cause:   err,
	}
}

// ErrScannerSpawn creates an error for a scanner binary that could not be
// started at all.
func ErrScannerSpawn(iface string, err error) *ScanError {
	return &ScanError{
		Code:    CodeScannerSpawn,
		Message: "Failed to start scanner process",
		Iface:   iface,
		Cause:   err,
	}
}

// ErrUserNotFound creates an error for an unknown registry user.
func ErrUserNotFound(userID string) *RegistryError {
	return &RegistryError{
		Code:      CodeNotFound,
		Message:   fmt.Sprintf("User %q not found", userID),
		Operation: "get_user",
	}
}

// ErrRegistryConnection creates an error for store connection failures.
func ErrRegistryConnection(err error) *RegistryError {
	return WrapRegistryError(CodeRegistryConnection, "Failed to connect to user registry", err)
}
