package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smsgate/internal/constants"
	"smsgate/internal/delivery"
	apperrors "smsgate/internal/errors"
	"smsgate/internal/httputil"
	"smsgate/internal/middleware"
	"smsgate/internal/models"
	"smsgate/internal/service"
	"smsgate/internal/tracing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router    *mux.Router
	logger    *logrus.Logger
	cfg       *models.Config
	gateway   *service.Gateway
	pull      *delivery.Pull
	status    *service.StatusRecorder
	readiness *service.Readiness
	limiter   *RateLimiter
	verbose   bool
	server    *http.Server
}

// NewServer wires the HTTP surface. pull is nil in push mode, which leaves
// the queue endpoints unregistered.
func NewServer(cfg *models.Config, gateway *service.Gateway, pull *delivery.Pull, status *service.StatusRecorder, readiness *service.Readiness, logger *logrus.Logger, verbose bool) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		logger:    logger,
		cfg:       cfg,
		gateway:   gateway,
		pull:      pull,
		status:    status,
		readiness: readiness,
		limiter:   NewRateLimiter(cfg.Server.RateLimitPerMin, time.Minute),
		verbose:   verbose,
	}

	s.setupRoutes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(constants.DefaultServerIdleTimeoutSec) * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger, s.cfg.Server.TrustProxyHeaders))

	detailed := middleware.DefaultDetailedLoggingConfig()
	detailed.TrustProxyHeaders = s.cfg.Server.TrustProxyHeaders
	s.router.Use(middleware.DetailedLoggingMiddleware(s.logger, detailed))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReady()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	incoming := s.router.PathPrefix("/incoming").Subrouter()
	incoming.Use(middleware.WebhookObservabilityMiddleware(s.logger, "sms"))
	incoming.Use(s.rateLimitMiddleware)
	incoming.HandleFunc("", s.handleIncoming()).Methods(http.MethodPost)

	if s.pull != nil {
		queue := s.router.PathPrefix("/queue").Subrouter()
		queue.Use(middleware.WebhookObservabilityMiddleware(s.logger, "queue"))
		queue.Use(s.rateLimitMiddleware)
		queue.Use(s.queueAuthMiddleware)
		queue.HandleFunc("", s.handleQueueFetch()).Methods(http.MethodPut)
		queue.HandleFunc("/status", s.handleQueueStatus()).Methods(http.MethodPost)
	}
}

// Start blocks serving HTTP. It returns nil after Shutdown, including a
// Shutdown that ran before Start.
func (s *Server) Start() error {
	s.logger.WithFields(logrus.Fields{
		"port": s.cfg.Server.Port,
		"mode": s.cfg.Delivery.Mode,
	}).Info("Starting server")

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.readiness.IsSet() {
			http.Error(w, "Chat platform not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}

func (s *Server) handleIncoming() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := service.WithVerbose(r.Context(), s.verbose)
		requestID := tracing.GetRequestID(ctx)

		r.Body = http.MaxBytesReader(w, r.Body, constants.MaxWebhookBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, apperrors.NewMalformedInputError("unreadable body"), requestID)
			return
		}

		sms, err := decodeInbound(r.Header.Get("Content-Type"), body)
		if err != nil {
			s.writeError(w, apperrors.NewMalformedInputError(err.Error()), requestID)
			return
		}

		if err := verifyWebhook(r, body, sms.Secret, s.cfg.Access.WebhookSecret); err != nil {
			s.logger.WithFields(logrus.Fields{
				service.LogFieldRequestID: requestID,
				service.LogFieldRemoteIP:  httputil.ClientIP(r, s.cfg.Server.TrustProxyHeaders),
			}).Warn("Webhook authentication failed")
			s.writeError(w, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "webhook authentication failed"), requestID)
			return
		}

		if sms.Event != "" && sms.Event != constants.EventIncomingMessage {
			s.logger.WithFields(logrus.Fields{
				service.LogFieldRequestID: requestID,
				"event":                   sms.Event,
			}).Debug("Ignoring non-message webhook event")
			w.WriteHeader(http.StatusOK)
			return
		}

		if err := s.gateway.HandleIncomingSMS(ctx, sms); err != nil {
			s.writeError(w, err, requestID)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleQueueFetch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch := s.pull.DrainAll(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(models.NewQueueFetchResponse(batch)); err != nil {
			s.logger.WithFields(logrus.Fields{
				service.LogFieldRequestID: tracing.GetRequestID(r.Context()),
				service.LogFieldCount:     len(batch),
				"error":                   err,
			}).Error("Failed to write queue batch; messages are lost")
		}
	}
}

// handleQueueStatus always answers 200 so the device never retries a report
func (s *Server) handleQueueStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		r.Body = http.MaxBytesReader(w, r.Body, constants.MaxWebhookBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.logger.WithField(service.LogFieldRequestID, tracing.GetRequestID(ctx)).Warn("Unreadable status report body")
			w.WriteHeader(http.StatusOK)
			return
		}

		report, err := decodeStatusReport(r.Header.Get("Content-Type"), body)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				service.LogFieldRequestID: tracing.GetRequestID(ctx),
				"error":                   err,
			}).Warn("Malformed status report")
			w.WriteHeader(http.StatusOK)
			return
		}

		s.status.Record(ctx, report)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := httputil.ClientIP(r, s.cfg.Server.TrustProxyHeaders)
		if !s.limiter.Allow(ip) {
			s.logger.WithFields(logrus.Fields{
				service.LogFieldRequestID: tracing.GetRequestID(r.Context()),
				service.LogFieldRemoteIP:  ip,
			}).Warn("Rate limit exceeded")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// queueAuthMiddleware applies the webhook secret to the pull device routes.
// The secret may arrive as a "secret" query parameter, a body field or the
// signature header. The body is restored for the handler.
func (s *Server) queueAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.cfg.Access.WebhookSecret
		if secret == "" {
			next.ServeHTTP(w, r)
			return
		}
		requestID := tracing.GetRequestID(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, constants.MaxWebhookBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, apperrors.NewMalformedInputError("unreadable body"), requestID)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if err := verifyWebhook(r, body, presentedQueueSecret(r, body), secret); err != nil {
			s.logger.WithFields(logrus.Fields{
				service.LogFieldRequestID: requestID,
				service.LogFieldRemoteIP:  httputil.ClientIP(r, s.cfg.Server.TrustProxyHeaders),
				"path":                    r.URL.Path,
			}).Warn("Queue authentication failed")
			s.writeError(w, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "webhook authentication failed"), requestID)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func presentedQueueSecret(r *http.Request, body []byte) string {
	if secret := r.URL.Query().Get("secret"); secret != "" {
		return secret
	}
	if len(body) == 0 {
		return ""
	}
	if isJSON(r.Header.Get("Content-Type")) {
		var fields struct {
			Secret string `json:"secret"`
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return ""
		}
		return fields.Secret
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return form.Get("secret")
}

func (s *Server) writeError(w http.ResponseWriter, err error, requestID string) {
	status := apperrors.HTTPStatusCode(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(apperrors.ToHTTPResponse(err, requestID)); encErr != nil {
		s.logger.WithError(encErr).Debug("Failed to write error response")
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "json")
	}
	return mediaType == "application/json"
}

// decodeInbound accepts either a JSON object or a urlencoded form
func decodeInbound(contentType string, body []byte) (models.InboundSMS, error) {
	var sms models.InboundSMS
	if isJSON(contentType) {
		if err := json.Unmarshal(body, &sms); err != nil {
			return sms, fmt.Errorf("invalid JSON body: %w", err)
		}
		return sms, nil
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return sms, fmt.Errorf("invalid form body: %w", err)
	}
	sms.From = form.Get("from_number")
	sms.Content = form.Get("content")
	sms.Event = form.Get("event")
	sms.Secret = form.Get("secret")
	return sms, nil
}

func decodeStatusReport(contentType string, body []byte) (models.StatusReport, error) {
	report := models.StatusReport{ReceivedAt: time.Now()}
	if isJSON(contentType) {
		if err := json.Unmarshal(body, &report); err != nil {
			return report, fmt.Errorf("invalid JSON body: %w", err)
		}
	} else {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return report, fmt.Errorf("invalid form body: %w", err)
		}
		report.CorrelationID = form.Get("uuid")
		report.Status = models.DeliveryStatus(form.Get("status"))
	}
	if report.CorrelationID == "" {
		return report, fmt.Errorf("missing uuid")
	}
	return report, nil
}
