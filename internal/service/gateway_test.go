package service

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type gatewayFixture struct {
	gateway    *Gateway
	dispatcher *Dispatcher
	directory  *fakeDirectory
	messenger  *mockMessenger
	readiness  *Readiness
	logs       *syncBuffer
}

func newGatewayFixture(t *testing.T, backlog int) *gatewayFixture {
	t.Helper()
	logger, buf := bufferedLogger()
	dir := newFakeDirectory()
	messenger := &mockMessenger{}
	readiness := NewReadiness()
	dispatcher := NewDispatcher(backlog, logger)
	relay := NewOutboundRelay(NewResolver(map[string]string{"sis": "778899"}, dir, logger), messenger, readiness, logger)
	gateway := NewGateway(NewAccessGate([]string{"+15551234567"}), dispatcher, relay, logger)
	return &gatewayFixture{
		gateway:    gateway,
		dispatcher: dispatcher,
		directory:  dir,
		messenger:  messenger,
		readiness:  readiness,
		logs:       buf,
	}
}

func TestGateway_EndToEndChannelDelivery(t *testing.T) {
	f := newGatewayFixture(t, 8)
	f.directory.withChannel("778899", "family")
	delivered := make(chan struct{})
	f.messenger.On("SendToChannel", mock.Anything, "778899", "hello there").
		Return(nil).Once().
		Run(func(mock.Arguments) { close(delivered) })
	startDispatcher(t, f.dispatcher)

	err := f.gateway.HandleIncomingSMS(context.Background(), models.InboundSMS{
		From:    "+15551234567",
		Content: "@sis hello there",
	})
	require.NoError(t, err)

	// Accepted before the platform is ready; delivery waits on the latch
	time.Sleep(20 * time.Millisecond)
	f.messenger.AssertNotCalled(t, "SendToChannel", mock.Anything, mock.Anything, mock.Anything)

	f.readiness.Set()
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("message not delivered after readiness")
	}
	f.messenger.AssertExpectations(t)
}

func TestGateway_FallsBackToUser(t *testing.T) {
	f := newGatewayFixture(t, 8)
	f.directory.withUser("778899")
	f.readiness.Set()
	delivered := make(chan struct{})
	f.messenger.On("SendToUser", mock.Anything, "778899", "hello there").
		Return(nil).Once().
		Run(func(mock.Arguments) { close(delivered) })
	startDispatcher(t, f.dispatcher)

	require.NoError(t, f.gateway.HandleIncomingSMS(context.Background(), models.InboundSMS{
		From:    "+15551234567",
		Content: "@sis hello there",
	}))

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("message not delivered to user")
	}
}

func TestGateway_UnresolvedStillAccepted(t *testing.T) {
	f := newGatewayFixture(t, 8)
	f.readiness.Set()
	startDispatcher(t, f.dispatcher)

	err := f.gateway.HandleIncomingSMS(context.Background(), models.InboundSMS{
		From:    "+15551234567",
		Content: "@sis hello there",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return strings.Contains(f.logs.String(), "Routing failed")
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, f.messenger.Calls)
}

func TestGateway_RejectsUnlistedSender(t *testing.T) {
	f := newGatewayFixture(t, 8)

	err := f.gateway.HandleIncomingSMS(context.Background(), models.InboundSMS{
		From:    "+15550000000",
		Content: "@sis hello there",
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnauthorized))
	assert.Equal(t, 403, apperrors.HTTPStatusCode(err))
	assert.Zero(t, f.dispatcher.Pending())
	assert.Empty(t, f.directory.Calls())

	lines := strings.Split(strings.TrimSpace(f.logs.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Rejected SMS from sender not on allow list")
	assert.NotContains(t, lines[0], "+15550000000")
}

func TestGateway_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		sms  models.InboundSMS
		code apperrors.ErrorCode
	}{
		{name: "no separator", sms: models.InboundSMS{From: "+15551234567", Content: "justoneword"}, code: apperrors.ErrCodeMalformedInput},
		{name: "missing content", sms: models.InboundSMS{From: "+15551234567"}, code: apperrors.ErrCodeMalformedInput},
		{name: "missing sender", sms: models.InboundSMS{Content: "sis hi"}, code: apperrors.ErrCodeUnauthorized},
		{name: "unauthorized checked before parsing", sms: models.InboundSMS{From: "+1", Content: "justoneword"}, code: apperrors.ErrCodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatewayFixture(t, 8)
			err := f.gateway.HandleIncomingSMS(context.Background(), tt.sms)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
			assert.Zero(t, f.dispatcher.Pending())
			assert.Empty(t, f.directory.Calls())
		})
	}
}

func TestGateway_BacklogFull(t *testing.T) {
	f := newGatewayFixture(t, 1)
	sms := models.InboundSMS{From: "+15551234567", Content: "sis hi"}

	require.NoError(t, f.gateway.HandleIncomingSMS(context.Background(), sms))
	err := f.gateway.HandleIncomingSMS(context.Background(), sms)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueueFull))
	assert.Equal(t, 503, apperrors.HTTPStatusCode(err))
}
