package delivery

import (
	"context"
	"testing"
	"time"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/models"
	"smsgate/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardedSender_OpensOnTransientFailures(t *testing.T) {
	sender := &alwaysFail{err: timeoutErr{}}
	breaker := circuitbreaker.New("telerivet", 2, time.Minute, quietLogger())
	guarded := NewGuardedSender(sender, breaker)
	ctx := context.Background()

	assert.Error(t, guarded.Send(ctx, "+1", "a"))
	assert.Error(t, guarded.Send(ctx, "+1", "b"))
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	err := guarded.Send(ctx, "+1", "c")
	assert.True(t, apperrors.IsRetryable(err))
	assert.True(t, circuitbreaker.IsOpenError(err))
	assert.Equal(t, 2, sender.Count(), "open circuit must not reach the transport")
}

func TestGuardedSender_RejectionsDoNotTrip(t *testing.T) {
	rejection := apperrors.NewTransportError("https://api.example/send", 400, nil)
	sender := &alwaysFail{err: rejection}
	breaker := circuitbreaker.New("telerivet", 1, time.Minute, quietLogger())
	guarded := NewGuardedSender(sender, breaker)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, guarded.Send(context.Background(), "+1", "x"), rejection)
	}

	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
	assert.Equal(t, 3, sender.Count())
}

func TestGuardedSender_PushKeepsAttemptCount(t *testing.T) {
	sender := &alwaysFail{err: timeoutErr{}}
	breaker := circuitbreaker.New("telerivet", 1, time.Minute, quietLogger())
	push := NewPush(NewGuardedSender(sender, breaker), PushConfig{
		MaxAttempts: 3,
		RetryDelay:  5 * time.Millisecond,
		Workers:     1,
	}, quietLogger())

	err := push.Send(context.Background(), models.NewOutboundSMS("+15550000000", "hello"))

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDeliveryFailed))
	assert.Equal(t, int64(3), push.Attempts(), "short-circuited attempts still count")
	assert.Equal(t, 1, sender.Count(), "only the first attempt reached the transport")
}
