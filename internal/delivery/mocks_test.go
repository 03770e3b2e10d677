package delivery

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// scriptedSender returns errs in order, then nil for every later call
type scriptedSender struct {
	mu       sync.Mutex
	errs     []error
	calls    []time.Time
	lastTo   string
	lastBody string
	block    chan struct{}
}

func (s *scriptedSender) Send(ctx context.Context, to, content string) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, time.Now())
	s.lastTo = to
	s.lastBody = content
	n := len(s.calls)
	if n <= len(s.errs) {
		return s.errs[n-1]
	}
	return nil
}

func (s *scriptedSender) Calls() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.calls...)
}

// alwaysFail returns err on every call
type alwaysFail struct {
	mu    sync.Mutex
	err   error
	count int
}

func (a *alwaysFail) Send(ctx context.Context, to, content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	return a.err
}

func (a *alwaysFail) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// timeoutErr satisfies net.Error
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
