package service

import (
	"context"
	"fmt"
	"sync/atomic"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/metrics"
	"smsgate/internal/models"

	"github.com/sirupsen/logrus"
)

// OutboundDelivery hands an SMS to the configured delivery strategy
type OutboundDelivery interface {
	Deliver(ctx context.Context, msg *models.OutboundSMS) error
}

// InboundRelay turns chat platform messages into outbound SMS lines
type InboundRelay struct {
	destination string
	guildID     string
	delivery    OutboundDelivery
	logger      *logrus.Logger
	selfID      atomic.Value
}

// NewInboundRelay relays chat messages to destination. A non-empty guildID
// limits guild traffic to that guild; direct messages always pass.
func NewInboundRelay(destination, guildID string, delivery OutboundDelivery, logger *logrus.Logger) *InboundRelay {
	r := &InboundRelay{
		destination: destination,
		guildID:     guildID,
		delivery:    delivery,
		logger:      logger,
	}
	r.selfID.Store("")
	return r
}

// SetSelfID records the relay's own chat identity once the platform reports it
func (r *InboundRelay) SetSelfID(id string) {
	r.selfID.Store(id)
}

func (r *InboundRelay) isSelf(authorID string) bool {
	self, _ := r.selfID.Load().(string)
	return self != "" && authorID == self
}

// FormatLine renders a chat message as a single SMS line
func FormatLine(msg models.ChatMessage) string {
	if msg.Direct {
		return fmt.Sprintf("[DM] %s: %s", msg.AuthorName, msg.Content)
	}
	return fmt.Sprintf("[Guild: %s] %s: %s", msg.ChannelName, msg.AuthorName, msg.Content)
}

// HandleChatMessage relays msg unless it is the relay's own message or
// comes from a filtered guild.
func (r *InboundRelay) HandleChatMessage(ctx context.Context, msg models.ChatMessage) {
	if r.isSelf(msg.AuthorID) {
		return
	}
	if !msg.Direct && r.guildID != "" && msg.GuildID != r.guildID {
		r.logger.WithFields(logrus.Fields{
			LogFieldGuildID:   msg.GuildID,
			LogFieldMessageID: msg.ID,
		}).Debug("Skipping chat message: guild not relayed")
		return
	}

	sms := models.NewOutboundSMS(r.destination, FormatLine(msg))

	kind := "guild"
	if msg.Direct {
		kind = "direct"
	}
	r.logger.WithFields(logrus.Fields{
		LogFieldDirection:     DirectionChatToSMS,
		LogFieldMessageID:     msg.ID,
		LogFieldCorrelationID: sms.CorrelationID.String(),
		LogFieldDestination:   PhoneForLog(ctx, r.destination),
		"kind":                kind,
	}).Info("Forwarding chat message to SMS")
	metrics.IncrementCounter("chat_inbound_total", map[string]string{"kind": kind}, "Chat messages relayed to SMS")

	if err := r.delivery.Deliver(ctx, sms); err != nil {
		apperrors.LogError(r.logger, err, "Failed to hand chat message to SMS delivery", logrus.Fields{
			LogFieldDirection:     DirectionChatToSMS,
			LogFieldCorrelationID: sms.CorrelationID.String(),
		})
	}
}
