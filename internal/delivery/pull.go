package delivery

import (
	"context"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/metrics"
	"smsgate/internal/models"

	"github.com/sirupsen/logrus"
)

// Pull parks outbound SMS in a Queue until the external device fetches them
type Pull struct {
	queue  *Queue
	logger *logrus.Logger
}

func NewPull(queue *Queue, logger *logrus.Logger) *Pull {
	return &Pull{queue: queue, logger: logger}
}

func (p *Pull) Mode() models.DeliveryMode {
	return models.DeliveryModePull
}

// Deliver enqueues msg. A full queue drops the message with DELIVERY_FAILED.
func (p *Pull) Deliver(ctx context.Context, msg *models.OutboundSMS) error {
	fields := logrus.Fields{"correlation_id": msg.CorrelationID.String()}

	if err := p.queue.Enqueue(msg); err != nil {
		metrics.IncrementCounter("sms_outbound_total", outboundLabels(models.DeliveryModePull, "dropped"), "Outbound SMS by mode and result")
		deliveryErr := apperrors.NewDeliveryError("pull queue", err)
		apperrors.LogError(p.logger, deliveryErr, "Dropping SMS: outbound queue full", fields)
		return deliveryErr
	}

	depth := p.queue.Len()
	metrics.IncrementCounter("sms_outbound_total", outboundLabels(models.DeliveryModePull, "queued"), "Outbound SMS by mode and result")
	metrics.SetGauge("queue_depth", float64(depth), nil, "Outbound SMS waiting for the pull device")
	fields["queue_depth"] = depth
	p.logger.WithFields(fields).Info("Queued SMS for pull delivery")
	return nil
}

// DrainAll empties the queue and returns its contents in enqueue order
func (p *Pull) DrainAll(ctx context.Context) []*models.OutboundSMS {
	batch := p.queue.DrainAll()
	metrics.SetGauge("queue_depth", float64(p.queue.Len()), nil, "Outbound SMS waiting for the pull device")
	if len(batch) > 0 {
		metrics.AddToCounter("sms_pulled_total", float64(len(batch)), nil, "Outbound SMS fetched by the pull device")
		p.logger.WithField("count", len(batch)).Info("Pull device fetched queued SMS")
	}
	return batch
}

// Pending returns the number of queued messages
func (p *Pull) Pending() int {
	return p.queue.Len()
}
