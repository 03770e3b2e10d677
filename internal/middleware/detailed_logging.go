package middleware

import (
	"net/http"
	"strings"

	"smsgate/internal/httputil"
	"smsgate/internal/service"
	"smsgate/internal/tracing"

	"github.com/sirupsen/logrus"
)

// DetailedLoggingConfig controls what the debug request logger records
type DetailedLoggingConfig struct {
	LogRequestHeaders bool
	SensitiveHeaders  []string
	SkipEndpoints     []string
	TrustProxyHeaders bool
}

// DefaultDetailedLoggingConfig masks credentials and skips probe endpoints
func DefaultDetailedLoggingConfig() DetailedLoggingConfig {
	return DetailedLoggingConfig{
		LogRequestHeaders: true,
		SensitiveHeaders: []string{
			"authorization", "x-webhook-signature", "cookie", "x-api-key",
		},
		SkipEndpoints: []string{"/metrics", "/health", "/ready"},
	}
}

// DetailedLoggingMiddleware logs request headers at debug level. Bodies are
// never logged since they carry phone numbers and message text.
func DetailedLoggingMiddleware(logger *logrus.Logger, config DetailedLoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logger.IsLevelEnabled(logrus.DebugLevel) || isSkipped(r.URL.Path, config.SkipEndpoints) {
				next.ServeHTTP(w, r)
				return
			}

			fields := logrus.Fields{
				service.LogFieldRequestID: tracing.GetRequestID(r.Context()),
				service.LogFieldMethod:    r.Method,
				service.LogFieldURL:       r.URL.Path,
				service.LogFieldRemoteIP:  httputil.ClientIP(r, config.TrustProxyHeaders),
				"protocol":                r.Proto,
				"content_length":          r.ContentLength,
			}
			if config.LogRequestHeaders {
				fields["request_headers"] = maskHeaders(r.Header, config.SensitiveHeaders)
			}
			logger.WithFields(fields).Debug("Detailed request logging")

			next.ServeHTTP(w, r)
		})
	}
}

func maskHeaders(h http.Header, sensitive []string) map[string]string {
	headers := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitiveHeader(name, sensitive) {
			headers[name] = "***MASKED***"
		} else {
			headers[name] = strings.Join(values, ", ")
		}
	}
	return headers
}

func isSensitiveHeader(headerName string, sensitiveHeaders []string) bool {
	for _, sensitive := range sensitiveHeaders {
		if strings.EqualFold(sensitive, headerName) {
			return true
		}
	}
	return false
}

func isSkipped(path string, skip []string) bool {
	for _, p := range skip {
		if p == path {
			return true
		}
	}
	return false
}
