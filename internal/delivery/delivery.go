// Package delivery implements the outbound SMS strategies: push through an
// HTTP transport with bounded retries, or pull through an in-memory queue
// drained by an external device.
package delivery

import (
	"context"

	"smsgate/internal/models"
)

// Strategy consumes outbound SMS. Deliver never blocks on the transport.
type Strategy interface {
	Deliver(ctx context.Context, msg *models.OutboundSMS) error
	Mode() models.DeliveryMode
}

var (
	_ Strategy = (*Push)(nil)
	_ Strategy = (*Pull)(nil)
)

func outboundLabels(mode models.DeliveryMode, result string) map[string]string {
	return map[string]string{"mode": string(mode), "result": result}
}
