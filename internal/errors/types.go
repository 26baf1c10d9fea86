package errors

import (
	"fmt"
)

// ErrorCode represents a categorized error type
type ErrorCode string

const (
	// Configuration errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"

	// Database errors
	ErrCodeDatabaseQuery ErrorCode = "DATABASE_QUERY"

	// External service errors
	ErrCodeGoogleWalletAPI ErrorCode = "GOOGLE_WALLET_API"
	ErrCodeAPNSAPI         ErrorCode = "APNS_API"
	ErrCodeShortenerAPI    ErrorCode = "SHORTENER_API"
	ErrCodeImageFetch      ErrorCode = "IMAGE_FETCH"

	// Validation errors
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Signing errors
	ErrCodeSigning ErrorCode = "SIGNING"

	// Internal errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
)

// Step identifies the workflow stage a failure belongs to, so synchronous
// callers can attribute an error to a specific part of the pipeline.
type Step string

const (
	StepTemplateVerification Step = "template-verification"
	StepTemplateCreation     Step = "template-creation"
	StepObjectCreation       Step = "object-creation"
	StepObjectPatch          Step = "object-patch"
	StepSaveLink             Step = "save-link"
	StepQRGeneration         Step = "qr-generation"
	StepSigningConfig        Step = "signing-config"
	StepSigning              Step = "signing"
	StepBundleBuild          Step = "bundle-build"
	StepPush                 Step = "push"
	StepStorage              Step = "storage"
)

// AppError represents a structured application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Step      Step                   `json:"step,omitempty"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Retryable bool                   `json:"retryable"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

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

// WithStep tags the error with the workflow stage it occurred in
func (e *AppError) WithStep(step Step) *AppError {
	e.Step = step
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapRetryable wraps an error and marks it as retryable
func WrapRetryable(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsRetryable checks if an error is retryable. Errors that are not
// AppErrors are treated as retryable: the dispatcher's uniform backoff
// policy applies unless a component explicitly marked the failure fatal.
func IsRetryable(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Retryable
	}
	return true
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// GetStep extracts the workflow stage from an error
func GetStep(err error) Step {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Step
	}
	return ""
}
