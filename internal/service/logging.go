package service

import (
	"context"

	"smsgate/internal/privacy"

	"github.com/sirupsen/logrus"
)

// ContextKey is a package-local type to prevent context key collisions
type ContextKey string

// VerboseContextKey is the context key for the verbose logging flag
const VerboseContextKey ContextKey = "verbose"

// WithVerbose marks ctx so that log helpers emit unmasked values
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, VerboseContextKey, verbose)
}

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// PhoneForLog returns phone unmasked only in verbose mode
func PhoneForLog(ctx context.Context, phone string) string {
	if IsVerboseLogging(ctx) {
		return phone
	}
	return privacy.MaskPhoneNumber(phone)
}

// ContentForLog returns message text only in verbose mode
func ContentForLog(ctx context.Context, content string) string {
	if IsVerboseLogging(ctx) {
		return content
	}
	return privacy.DescribeContent(content)
}

// LogWithContext creates a logger entry tagged with the verbose flag
func LogWithContext(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	return logger.WithField("verbose", IsVerboseLogging(ctx))
}
