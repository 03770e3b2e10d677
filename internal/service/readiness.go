package service

import (
	"context"
	"sync"

	apperrors "smsgate/internal/errors"
)

// Readiness is a one-way latch set when the chat platform handshake completes
type Readiness struct {
	once sync.Once
	done chan struct{}
}

// NewReadiness returns an unset latch
func NewReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

// Set opens the latch. Calls after the first are no-ops.
func (r *Readiness) Set() {
	r.once.Do(func() { close(r.done) })
}

// IsSet reports whether the latch has been set without blocking
func (r *Readiness) IsSet() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the latch is set
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the latch is set or ctx ends
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return apperrors.Wrap(ctx.Err(), apperrors.ErrCodeNotReady, "chat platform not ready")
	}
}
