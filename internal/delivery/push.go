package delivery

import (
	"context"
	stderrors "errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/metrics"
	"smsgate/internal/models"
	"smsgate/internal/privacy"
	"smsgate/internal/retry"
	"smsgate/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

// Sender performs one send attempt against the SMS transport
type Sender interface {
	Send(ctx context.Context, to, content string) error
}

// PushConfig bounds retries and concurrency for push delivery
type PushConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Workers     int
}

// Push sends each message on a background worker, retrying timeouts and
// network failures a fixed number of times with a fixed delay. Rejections
// by the transport are not retried. Failed messages are dropped.
type Push struct {
	sender   Sender
	config   PushConfig
	workers  *semaphore.Weighted
	inflight sync.WaitGroup
	attempts atomic.Int64
	logger   *logrus.Logger
}

func NewPush(sender Sender, config PushConfig, logger *logrus.Logger) *Push {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Push{
		sender:  sender,
		config:  config,
		workers: semaphore.NewWeighted(int64(config.Workers)),
		logger:  logger,
	}
}

func (p *Push) Mode() models.DeliveryMode {
	return models.DeliveryModePush
}

// Deliver hands msg to a worker and returns at once. The send outlives ctx's
// cancellation so a finished chat event does not abort it.
func (p *Push) Deliver(ctx context.Context, msg *models.OutboundSMS) error {
	sendCtx := tracing.Detach(ctx)

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if err := p.workers.Acquire(sendCtx, 1); err != nil {
			return
		}
		defer p.workers.Release(1)
		_ = p.Send(sendCtx, msg)
	}()
	return nil
}

// Send delivers msg synchronously, returning a DELIVERY_FAILED error once
// attempts are exhausted or the transport rejects the message.
func (p *Push) Send(ctx context.Context, msg *models.OutboundSMS) error {
	ctx, span := tracing.StartSpan(ctx, "sms.push",
		attribute.String("correlation_id", msg.CorrelationID.String()),
	)
	defer span.End()

	fields := logrus.Fields{
		"correlation_id": msg.CorrelationID.String(),
		"destination":    privacy.MaskPhoneNumber(msg.Destination),
	}

	attempt := 0
	backoff := retry.NewBackoff(retry.FixedBackoffConfig(p.config.MaxAttempts, p.config.RetryDelay)).
		OnRetry(func(n int, err error, next time.Duration) {
			p.logger.WithFields(fields).WithFields(logrus.Fields{
				"attempt":     n,
				"max":         p.config.MaxAttempts,
				"retry_in_ms": next.Milliseconds(),
			}).WithError(err).Warn("Retrying SMS send")
		})

	start := time.Now()
	err := backoff.RetryWithPredicate(ctx, func() error {
		attempt++
		p.attempts.Add(1)
		return p.sender.Send(ctx, msg.Destination, msg.Body)
	}, isTransient)
	duration := time.Since(start)

	fields["attempts"] = attempt
	fields["duration_ms"] = duration.Milliseconds()

	if err != nil {
		tracing.RecordError(ctx, err)
		metrics.IncrementCounter("sms_outbound_total", outboundLabels(models.DeliveryModePush, "failed"), "Outbound SMS by mode and result")
		deliveryErr := apperrors.NewDeliveryError(privacy.MaskPhoneNumber(msg.Destination), err)
		apperrors.LogError(p.logger, deliveryErr, "Failed to send SMS", fields)
		return deliveryErr
	}

	metrics.IncrementCounter("sms_outbound_total", outboundLabels(models.DeliveryModePush, "sent"), "Outbound SMS by mode and result")
	metrics.RecordTimer("sms_push_duration", duration, nil, "Push send duration including retries")
	p.logger.WithFields(fields).Info("Sent SMS")
	return nil
}

// Attempts returns the total number of transport calls made
func (p *Push) Attempts() int64 {
	return p.attempts.Load()
}

// Wait blocks until in-flight sends finish or ctx ends
func (p *Push) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isTransient accepts errors worth another attempt: those marked retryable
// plus raw network timeouts from senders that do not classify errors.
func isTransient(err error) bool {
	if apperrors.IsRetryable(err) {
		return true
	}
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr)
}
