package service

import (
	"context"
	"fmt"
	"sync"

	apperrors "smsgate/internal/errors"
	"smsgate/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Task is a unit of chat platform work handed over from the HTTP side
type Task func(ctx context.Context)

// Dispatcher runs submitted tasks one at a time on a single goroutine, the
// chat side execution context. Submit never blocks.
type Dispatcher struct {
	tasks   chan Task
	logger  *logrus.Logger
	stopped chan struct{}
	stop    sync.Once
}

func NewDispatcher(backlog int, logger *logrus.Logger) *Dispatcher {
	if backlog < 1 {
		backlog = 1
	}
	return &Dispatcher{
		tasks:   make(chan Task, backlog),
		logger:  logger,
		stopped: make(chan struct{}),
	}
}

// Submit queues task for Run. It fails with QUEUE_FULL when the backlog is
// full and with INTERNAL_ERROR once the dispatcher has stopped.
func (d *Dispatcher) Submit(task Task) error {
	select {
	case <-d.stopped:
		return apperrors.New(apperrors.ErrCodeInternalError, "dispatcher stopped")
	default:
	}

	select {
	case d.tasks <- task:
		metrics.SetGauge("dispatch_backlog", float64(len(d.tasks)), nil, "Pending chat delivery tasks")
		return nil
	default:
		return apperrors.New(apperrors.ErrCodeQueueFull, "dispatch backlog full")
	}
}

// Pending returns the number of tasks waiting to run
func (d *Dispatcher) Pending() int {
	return len(d.tasks)
}

// Run executes tasks until ctx is cancelled. Tasks still queued at that point
// are dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.stop.Do(func() { close(d.stopped) })

	d.logger.Info("Starting chat delivery dispatcher")
	for {
		select {
		case <-ctx.Done():
			if n := len(d.tasks); n > 0 {
				d.logger.WithField(LogFieldCount, n).Warn("Dispatcher stopped with pending tasks")
			}
			d.logger.Info("Chat delivery dispatcher stopped")
			return nil
		case task := <-d.tasks:
			metrics.SetGauge("dispatch_backlog", float64(len(d.tasks)), nil, "Pending chat delivery tasks")
			d.runTask(ctx, task)
		}
	}
}

func (d *Dispatcher) runTask(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithField(LogFieldErrorCode, apperrors.ErrCodeInternalError).
				Error(fmt.Sprintf("Recovered from panic in dispatched task: %v", r))
		}
	}()
	task(ctx)
}
