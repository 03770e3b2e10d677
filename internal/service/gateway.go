package service

import (
	"context"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/metrics"
	"smsgate/internal/models"
	"smsgate/internal/tracing"

	"github.com/sirupsen/logrus"
)

// Gateway validates inbound SMS webhooks and hands accepted messages to the
// dispatcher. It never waits for chat delivery.
type Gateway struct {
	access     *AccessGate
	dispatcher *Dispatcher
	relay      *OutboundRelay
	logger     *logrus.Logger
}

func NewGateway(access *AccessGate, dispatcher *Dispatcher, relay *OutboundRelay, logger *logrus.Logger) *Gateway {
	return &Gateway{
		access:     access,
		dispatcher: dispatcher,
		relay:      relay,
		logger:     logger,
	}
}

// HandleIncomingSMS returns UNAUTHORIZED or MALFORMED_INPUT for requests the
// caller must reject, QUEUE_FULL when the dispatcher cannot take more work,
// and nil once the message is queued for delivery.
func (g *Gateway) HandleIncomingSMS(ctx context.Context, sms models.InboundSMS) error {
	requestID := tracing.GetRequestID(ctx)

	if err := g.access.Check(sms.From); err != nil {
		g.countInbound("unauthorized")
		g.logger.WithFields(logrus.Fields{
			LogFieldRequestID: requestID,
			LogFieldSender:    PhoneForLog(ctx, sms.From),
		}).Warn("Rejected SMS from sender not on allow list")
		return err
	}

	if sms.Content == "" {
		g.countInbound("malformed")
		return apperrors.NewMalformedInputError("missing content")
	}

	alias, body, err := ParseMessage(sms.Content)
	if err != nil {
		g.countInbound("malformed")
		g.logger.WithFields(logrus.Fields{
			LogFieldRequestID: requestID,
			LogFieldSender:    PhoneForLog(ctx, sms.From),
		}).Info("Rejected malformed SMS")
		return err
	}

	verbose := IsVerboseLogging(ctx)
	task := func(taskCtx context.Context) {
		taskCtx = WithVerbose(tracing.WithRequestID(taskCtx, requestID), verbose)
		_ = g.relay.Route(taskCtx, alias, body)
	}
	if err := g.dispatcher.Submit(task); err != nil {
		g.countInbound("dropped")
		apperrors.LogError(g.logger, err, "Failed to queue SMS for chat delivery", logrus.Fields{
			LogFieldRequestID: requestID,
		})
		return err
	}

	g.countInbound("accepted")
	g.logger.WithFields(logrus.Fields{
		LogFieldRequestID: requestID,
		LogFieldDirection: DirectionSMSToChat,
		LogFieldSender:    PhoneForLog(ctx, sms.From),
		LogFieldAlias:     alias,
		LogFieldContent:   ContentForLog(ctx, body),
	}).Info("Accepted SMS for chat delivery")
	return nil
}

func (g *Gateway) countInbound(result string) {
	metrics.IncrementCounter("sms_inbound_total", map[string]string{"result": result}, "Inbound SMS webhooks by result")
}
