package errors

import (
	"github.com/sirupsen/logrus"
)

// LogError logs an error with its structured context attached.
func LogError(logger *logrus.Logger, err error, message string, fields ...logrus.Fields) {
	entry := logger.WithError(err)

	if appErr, ok := err.(*AppError); ok {
		entry = entry.WithFields(logrus.Fields{
			"error_code": appErr.Code,
			"retryable":  appErr.Retryable,
		})
		if appErr.Step != "" {
			entry = entry.WithField("step", appErr.Step)
		}
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}

	for _, field := range fields {
		entry = entry.WithFields(field)
	}

	entry.Error(message)
}

// LogWarn logs a degraded-but-continuing condition with the same structure.
func LogWarn(logger *logrus.Logger, err error, message string, fields ...logrus.Fields) {
	entry := logger.WithError(err)

	if appErr, ok := err.(*AppError); ok {
		entry = entry.WithFields(logrus.Fields{
			"error_code": appErr.Code,
			"retryable":  appErr.Retryable,
		})
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}

	for _, field := range fields {
		entry = entry.WithFields(field)
	}

	entry.Warn(message)
}
