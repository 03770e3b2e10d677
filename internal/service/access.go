package service

import (
	apperrors "smsgate/internal/errors"
)

// AccessGate authorizes inbound SMS senders against a fixed allow list
type AccessGate struct {
	allowed map[string]struct{}
}

// NewAccessGate builds a gate from the configured numbers. The list is
// copied, later changes to the slice have no effect.
func NewAccessGate(numbers []string) *AccessGate {
	allowed := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		if n == "" {
			continue
		}
		allowed[n] = struct{}{}
	}
	return &AccessGate{allowed: allowed}
}

// Check returns nil when sender is allow-listed and an UNAUTHORIZED error
// otherwise. An empty sender is never allowed.
func (g *AccessGate) Check(sender string) error {
	if sender == "" {
		return apperrors.NewUnauthorizedError(sender)
	}
	if _, ok := g.allowed[sender]; !ok {
		return apperrors.NewUnauthorizedError(sender)
	}
	return nil
}

// Size returns the number of allow-listed senders
func (g *AccessGate) Size() int {
	return len(g.allowed)
}
