package service

import (
	"context"
	"time"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/metrics"
	"smsgate/internal/models"
	"smsgate/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Messenger performs chat platform sends
type Messenger interface {
	SendToChannel(ctx context.Context, channelID, content string) error
	SendToChannelByName(ctx context.Context, name, content string) error
	SendToUser(ctx context.Context, userID, content string) error
}

// OutboundRelay delivers parsed SMS bodies to the chat platform. Platform
// errors are terminal for the message.
type OutboundRelay struct {
	resolver  *Resolver
	messenger Messenger
	readiness *Readiness
	logger    *logrus.Logger
}

func NewOutboundRelay(resolver *Resolver, messenger Messenger, readiness *Readiness, logger *logrus.Logger) *OutboundRelay {
	return &OutboundRelay{
		resolver:  resolver,
		messenger: messenger,
		readiness: readiness,
		logger:    logger,
	}
}

// Route waits for the platform, resolves alias and delivers body
func (r *OutboundRelay) Route(ctx context.Context, alias, body string) error {
	if err := r.readiness.Wait(ctx); err != nil {
		apperrors.LogError(r.logger, err, "Dropping SMS: chat platform never became ready", logrus.Fields{
			LogFieldAlias: alias,
		})
		return err
	}

	target := r.resolver.Resolve(ctx, alias)
	if !target.IsResolved() {
		err := apperrors.NewResolutionError(alias, r.resolver.Token(alias))
		metrics.IncrementCounter("chat_delivery_total", map[string]string{
			"kind":   string(models.TargetUnresolved),
			"result": "unresolved",
		}, "Chat deliveries by target kind and result")
		apperrors.LogError(r.logger, err, "Routing failed: no channel or user matches alias", logrus.Fields{
			LogFieldDirection: DirectionSMSToChat,
		})
		return err
	}

	return r.Deliver(ctx, target, body)
}

// Deliver sends body to an already resolved target after waiting for the
// readiness latch.
func (r *OutboundRelay) Deliver(ctx context.Context, target models.ResolvedTarget, body string) error {
	if err := r.readiness.Wait(ctx); err != nil {
		return err
	}

	if !target.IsResolved() {
		err := apperrors.New(apperrors.ErrCodeResolutionFailed, "target unresolved")
		apperrors.LogError(r.logger, err, "Routing failed: target unresolved", logrus.Fields{
			LogFieldDirection: DirectionSMSToChat,
		})
		return err
	}

	ctx, span := tracing.StartSpan(ctx, "chat.deliver",
		attribute.String("target.kind", string(target.Kind)),
	)
	defer span.End()

	start := time.Now()
	var err error
	switch target.Kind {
	case models.TargetChannel:
		err = r.messenger.SendToChannel(ctx, target.ID, body)
	case models.TargetChannelByName:
		err = r.messenger.SendToChannelByName(ctx, target.Name, body)
	case models.TargetUser:
		err = r.messenger.SendToUser(ctx, target.ID, body)
	}
	duration := time.Since(start)

	labels := map[string]string{"kind": string(target.Kind), "result": "sent"}
	fields := logrus.Fields{
		LogFieldDirection:  DirectionSMSToChat,
		LogFieldTargetKind: target.Kind,
		LogFieldTarget:     target.String(),
		LogFieldDuration:   duration.Milliseconds(),
	}

	if err != nil {
		labels["result"] = "failed"
		metrics.IncrementCounter("chat_delivery_total", labels, "Chat deliveries by target kind and result")
		tracing.RecordError(ctx, err)

		appErr := err
		if !apperrors.HasCode(err, apperrors.ErrCodePlatform) {
			appErr = apperrors.NewPlatformError("send", err)
		}
		deliveryErr := apperrors.NewDeliveryError(target.String(), appErr)
		apperrors.LogError(r.logger, deliveryErr, "Failed to deliver SMS to chat platform", fields)
		return deliveryErr
	}

	metrics.IncrementCounter("chat_delivery_total", labels, "Chat deliveries by target kind and result")
	metrics.RecordTimer("chat_delivery_duration", duration, map[string]string{"kind": string(target.Kind)}, "Chat delivery duration")
	r.logger.WithFields(fields).Info("Delivered SMS to chat platform")
	return nil
}
