package delivery

import (
	"context"

	apperrors "smsgate/internal/errors"
	"smsgate/pkg/circuitbreaker"
)

// GuardedSender fails attempts fast while the transport is known to be down.
// Only transient failures count toward opening the circuit, and a rejected
// attempt is itself transient so Push keeps its fixed attempt schedule.
type GuardedSender struct {
	sender  Sender
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuardedSender(sender Sender, breaker *circuitbreaker.CircuitBreaker) *GuardedSender {
	return &GuardedSender{
		sender:  sender,
		breaker: breaker.WithFailurePredicate(isTransient),
	}
}

func (g *GuardedSender) Send(ctx context.Context, to, content string) error {
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.sender.Send(ctx, to, content)
	})
	if circuitbreaker.IsOpenError(err) {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeTransport, "SMS transport circuit open")
	}
	return err
}

var _ Sender = (*GuardedSender)(nil)
