package errors

import (
	"github.com/sirupsen/logrus"
)

// Fields returns the structured logrus fields for err
func Fields(err error) logrus.Fields {
	fields := logrus.Fields{}
	appErr, ok := err.(*AppError)
	if !ok {
		return fields
	}

	fields["error_code"] = appErr.Code
	fields["retryable"] = appErr.Retryable
	for k, v := range appErr.Context {
		fields[k] = v
	}
	return fields
}

// LogError logs err with its code and context at error level
func LogError(logger logrus.FieldLogger, err error, message string, fields ...logrus.Fields) {
	entry := logger.WithError(err).WithFields(Fields(err))
	for _, field := range fields {
		entry = entry.WithFields(field)
	}
	entry.Error(message)
}

// LogWarn logs err with its code and context at warn level
func LogWarn(logger logrus.FieldLogger, err error, message string, fields ...logrus.Fields) {
	entry := logger.WithError(err).WithFields(Fields(err))
	for _, field := range fields {
		entry = entry.WithFields(field)
	}
	entry.Warn(message)
}
