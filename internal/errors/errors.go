package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies pipeline and serving failures
type ErrorType string

const (
	// ErrTypeReferential marks rows referencing a parent record that does not exist
	ErrTypeReferential ErrorType = "REFERENTIAL"
	// ErrTypeNumeric marks arithmetic degeneracy (division by zero, infinite ratios)
	ErrTypeNumeric ErrorType = "NUMERIC"
	// ErrTypeVocabulary marks categorical values unseen at training time
	ErrTypeVocabulary ErrorType = "VOCABULARY"
	// ErrTypeSchema marks missing expected feature columns in inference input
	ErrTypeSchema ErrorType = "SCHEMA"
	// ErrTypeSearchSpace marks tuner configurations outside documented bounds
	ErrTypeSearchSpace ErrorType = "SEARCH_SPACE"
	ErrTypeParsing     ErrorType = "PARSING"
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeConfig      ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError of the given type
func New(errType ErrorType, message string) *AppError {
	return &AppError{Type: errType, Message: message}
}

// Wrap creates a new AppError wrapping an underlying cause
func Wrap(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause}
}

// NewReferentialError reports a child row whose parent key is missing
func NewReferentialError(message string) *AppError {
	return New(ErrTypeReferential, message)
}

// NewNumericError reports arithmetic degeneracy that survived neutralization
func NewNumericError(message string) *AppError {
	return New(ErrTypeNumeric, message)
}

// NewVocabularyError reports an out-of-vocabulary categorical value
func NewVocabularyError(message string) *AppError {
	return New(ErrTypeVocabulary, message)
}

// NewSearchSpaceError reports a hyperparameter outside its documented bounds.
// This is a programming error in the search-space definition and is fatal
// at configuration-build time.
func NewSearchSpaceError(message string) *AppError {
	return New(ErrTypeSearchSpace, message)
}

// NewStorageError reports artifact persistence failures
func NewStorageError(message string, cause error) *AppError {
	return Wrap(ErrTypeStorage, message, cause)
}

// NewNotFoundError reports absent data, e.g. no usable history for a case
func NewNotFoundError(message string) *AppError {
	return New(ErrTypeNotFound, message)
}

// NewValidationError reports invalid input data or requests
func NewValidationError(message string) *AppError {
	return New(ErrTypeValidation, message)
}

// NewConfigError reports invalid configuration
func NewConfigError(message string, cause error) *AppError {
	return Wrap(ErrTypeConfig, message, cause)
}

// IsType reports whether err is (or wraps) an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Type == errType
}
