package backup

import (
	"errors"
	"fmt"
)

// BackupError represents errors that occur during backup operations
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// BackupErrorType represents different types of backup errors
type BackupErrorType string

const (
	BackupErrorTypeDump              BackupErrorType = "DUMP_FAILED"
	BackupErrorTypeTransform         BackupErrorType = "TRANSFORM_FAILED"
	BackupErrorTypeStorage           BackupErrorType = "STORAGE_ERROR"
	BackupErrorTypeMalformedFilename BackupErrorType = "MALFORMED_FILENAME"
	BackupErrorTypeRetentionConfig   BackupErrorType = "INVALID_RETENTION_CONFIG"
	BackupErrorTypeConfiguration     BackupErrorType = "CONFIGURATION_ERROR"
	BackupErrorTypeValidation        BackupErrorType = "VALIDATION_ERROR"
)

// ErrMissingKey marks a transform failure caused by absent key material,
// as opposed to an I/O failure while transforming.
var ErrMissingKey = errors.New("encryption key not available")

// ErrMissingTool marks a dump or transform failure caused by a missing
// external utility rather than by the data itself.
var ErrMissingTool = errors.New("required tool not found")

// NewBackupError creates a new BackupError
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors

func NewDumpError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeDump, message, cause)
}

func NewTransformError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeTransform, message, cause)
}

func NewStorageError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeStorage, message, cause)
}

func NewMalformedFilenameError(filename string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeMalformedFilename,
		fmt.Sprintf("filename %q does not match the backup naming pattern", filename), cause).
		WithContext("filename", filename)
}

func NewRetentionConfigError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeRetentionConfig, message, cause)
}

func NewConfigurationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfiguration, message, cause)
}

func NewValidationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeValidation, message, cause)
}

// IsErrorType reports whether err (or any error it wraps) is a BackupError
// of the given type.
func IsErrorType(err error, errorType BackupErrorType) bool {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Type == errorType
	}
	return false
}

// IsMalformedFilename reports whether err is a filename parse failure.
func IsMalformedFilename(err error) bool {
	return IsErrorType(err, BackupErrorTypeMalformedFilename)
}

// IsStorageError reports whether err is a storage write/list/delete failure.
func IsStorageError(err error) bool {
	return IsErrorType(err, BackupErrorTypeStorage)
}

// IsDumpError reports whether err is a connector-side dump failure.
func IsDumpError(err error) bool {
	return IsErrorType(err, BackupErrorTypeDump)
}

// IsTransformError reports whether err is a compress/encrypt stage failure.
func IsTransformError(err error) bool {
	return IsErrorType(err, BackupErrorTypeTransform)
}

// IsRetentionConfigError reports whether err is a retention misconfiguration.
func IsRetentionConfigError(err error) bool {
	return IsErrorType(err, BackupErrorTypeRetentionConfig)
}

// ValidationError represents validation-specific errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
