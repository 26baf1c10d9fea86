package errors

import (
	"fmt"
)

// NewConfigError creates a configuration error. Configuration errors are
// never retryable: retrying does not grow a missing key.
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeMissingConfig, message).
		WithContext("config_key", key)
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation)
}

// NewProviderError creates an error for an external provider call.
// Retryability follows the status code: 5xx, 429 and 408 are transient.
func NewProviderError(service, endpoint string, statusCode int, err error) *AppError {
	var code ErrorCode

	switch service {
	case "googlewallet":
		code = ErrCodeGoogleWalletAPI
	case "apns":
		code = ErrCodeAPNSAPI
	case "shortener":
		code = ErrCodeShortenerAPI
	default:
		code = ErrCodeInternalError
	}

	appErr := Wrap(err, code, fmt.Sprintf("%s API call failed", service)).
		WithContext("service", service).
		WithContext("endpoint", endpoint).
		WithContext("status_code", statusCode)

	if statusCode >= 500 || statusCode == 429 || statusCode == 408 {
		appErr.Retryable = true
	}

	return appErr
}

// NewNotFoundError creates a not found error with resource context.
// Data errors are not retryable; the owning job should be abandoned.
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier)
}

// NewTimeoutError creates a timeout error. Timeouts are transient by
// definition, so the job backoff applies.
func NewTimeoutError(operation string, duration string) *AppError {
	appErr := New(ErrCodeTimeout, fmt.Sprintf("%s timed out after %s", operation, duration)).
		WithContext("operation", operation).
		WithContext("timeout", duration)
	appErr.Retryable = true
	return appErr
}

// NewSigningError creates a signing error; a bundle that cannot be signed
// aborts the whole build.
func NewSigningError(message string, err error) *AppError {
	return Wrap(err, ErrCodeSigning, message).WithStep(StepSigning)
}

// NewPoisonError marks a job payload as undecodable. Poison jobs are
// discarded without retry.
func NewPoisonError(err error) *AppError {
	return Wrap(err, ErrCodeInvalidInput, "poison job payload")
}
