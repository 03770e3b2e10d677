package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newReadyRelay(dir *fakeDirectory, aliases map[string]string, messenger Messenger) *OutboundRelay {
	readiness := NewReadiness()
	readiness.Set()
	return NewOutboundRelay(NewResolver(aliases, dir, quietLogger()), messenger, readiness, quietLogger())
}

func TestOutboundRelay_DeliverByKind(t *testing.T) {
	tests := []struct {
		name   string
		target models.ResolvedTarget
		method string
		arg    string
	}{
		{name: "channel by id", target: models.ChannelTarget("10"), method: "SendToChannel", arg: "10"},
		{name: "channel by name", target: models.ChannelNameTarget("general"), method: "SendToChannelByName", arg: "general"},
		{name: "user by id", target: models.UserTarget("20"), method: "SendToUser", arg: "20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messenger := &mockMessenger{}
			messenger.On(tt.method, mock.Anything, tt.arg, "hello there").Return(nil).Once()

			relay := newReadyRelay(newFakeDirectory(), nil, messenger)
			require.NoError(t, relay.Deliver(context.Background(), tt.target, "hello there"))
			messenger.AssertExpectations(t)
		})
	}
}

func TestOutboundRelay_UnresolvedNeverSends(t *testing.T) {
	messenger := &mockMessenger{}
	relay := newReadyRelay(newFakeDirectory(), nil, messenger)

	err := relay.Deliver(context.Background(), models.UnresolvedTarget(), "hi")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResolutionFailed))
	messenger.AssertNotCalled(t, "SendToChannel", mock.Anything, mock.Anything, mock.Anything)
	messenger.AssertNotCalled(t, "SendToChannelByName", mock.Anything, mock.Anything, mock.Anything)
	messenger.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestOutboundRelay_PlatformErrorIsTerminal(t *testing.T) {
	messenger := &mockMessenger{}
	messenger.On("SendToChannel", mock.Anything, "10", "hi").Return(errors.New("missing permissions")).Once()

	relay := newReadyRelay(newFakeDirectory(), nil, messenger)
	err := relay.Deliver(context.Background(), models.ChannelTarget("10"), "hi")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDeliveryFailed))
	assert.False(t, apperrors.IsRetryable(err))
	messenger.AssertNumberOfCalls(t, "SendToChannel", 1)
}

func TestOutboundRelay_WaitsForReadiness(t *testing.T) {
	messenger := &mockMessenger{}
	messenger.On("SendToUser", mock.Anything, "20", "hi").Return(nil)

	readiness := NewReadiness()
	relay := NewOutboundRelay(NewResolver(nil, newFakeDirectory(), quietLogger()), messenger, readiness, quietLogger())

	done := make(chan error, 1)
	go func() { done <- relay.Deliver(context.Background(), models.UserTarget("20"), "hi") }()

	time.Sleep(30 * time.Millisecond)
	messenger.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything, mock.Anything)

	readiness.Set()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("delivery did not proceed after readiness")
	}
	messenger.AssertNumberOfCalls(t, "SendToUser", 1)
}

func TestOutboundRelay_Route(t *testing.T) {
	dir := newFakeDirectory().withUser("778899")
	messenger := &mockMessenger{}
	messenger.On("SendToUser", mock.Anything, "778899", "hello there").Return(nil).Once()

	relay := newReadyRelay(dir, map[string]string{"sis": "778899"}, messenger)
	require.NoError(t, relay.Route(context.Background(), "sis", "hello there"))
	messenger.AssertExpectations(t)
}

func TestOutboundRelay_RouteUnresolvedLogsFailure(t *testing.T) {
	logger, buf := bufferedLogger()
	messenger := &mockMessenger{}
	readiness := NewReadiness()
	readiness.Set()
	relay := NewOutboundRelay(NewResolver(nil, newFakeDirectory(), logger), messenger, readiness, logger)

	err := relay.Route(context.Background(), "nobody", "hi")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResolutionFailed))
	assert.Contains(t, buf.String(), "Routing failed")
	assert.Empty(t, messenger.Calls)
}

func TestOutboundRelay_RouteNotReady(t *testing.T) {
	dir := newFakeDirectory()
	relay := NewOutboundRelay(NewResolver(nil, dir, quietLogger()), &mockMessenger{}, NewReadiness(), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := relay.Route(ctx, "sis", "hi")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotReady))
	assert.Empty(t, dir.Calls(), "resolution must wait for readiness")
}
