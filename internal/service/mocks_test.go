package service

import (
	"bytes"
	"context"
	"io"
	"sync"

	"smsgate/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// fakeDirectory is an in-memory Directory that records every lookup
type fakeDirectory struct {
	mu         sync.Mutex
	channels   []ChannelRef
	users      map[string]bool
	channelErr error
	userErr    error
	listErr    error
	calls      []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]bool)}
}

func (d *fakeDirectory) withChannel(id, name string) *fakeDirectory {
	d.channels = append(d.channels, ChannelRef{ID: id, Name: name})
	return d
}

func (d *fakeDirectory) withUser(id string) *fakeDirectory {
	d.users[id] = true
	return d
}

func (d *fakeDirectory) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDirectory) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDirectory) HasChannel(ctx context.Context, id string) (bool, error) {
	d.record("HasChannel:" + id)
	if d.channelErr != nil {
		return false, d.channelErr
	}
	for _, ch := range d.channels {
		if ch.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (d *fakeDirectory) HasUser(ctx context.Context, id string) (bool, error) {
	d.record("HasUser:" + id)
	if d.userErr != nil {
		return false, d.userErr
	}
	return d.users[id], nil
}

func (d *fakeDirectory) Channels(ctx context.Context) ([]ChannelRef, error) {
	d.record("Channels")
	if d.listErr != nil {
		return nil, d.listErr
	}
	return append([]ChannelRef(nil), d.channels...), nil
}

// mockMessenger records chat platform sends
type mockMessenger struct {
	mock.Mock
}

func (m *mockMessenger) SendToChannel(ctx context.Context, channelID, content string) error {
	args := m.Called(ctx, channelID, content)
	return args.Error(0)
}

func (m *mockMessenger) SendToChannelByName(ctx context.Context, name, content string) error {
	args := m.Called(ctx, name, content)
	return args.Error(0)
}

func (m *mockMessenger) SendToUser(ctx context.Context, userID, content string) error {
	args := m.Called(ctx, userID, content)
	return args.Error(0)
}

// fakeDelivery captures outbound SMS handed to the delivery strategy
type fakeDelivery struct {
	mu       sync.Mutex
	messages []*models.OutboundSMS
	err      error
}

func (f *fakeDelivery) Deliver(ctx context.Context, msg *models.OutboundSMS) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return f.err
}

func (f *fakeDelivery) Messages() []*models.OutboundSMS {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.OutboundSMS(nil), f.messages...)
}

// fakeJournal captures journaled status reports
type fakeJournal struct {
	mu      sync.Mutex
	reports []models.StatusReport
	err     error
}

func (f *fakeJournal) RecordStatusReport(ctx context.Context, report models.StatusReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// syncBuffer is a bytes.Buffer safe for concurrent log writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func bufferedLogger() (*logrus.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.DebugLevel)
	return logger, buf
}
