package services

import (
	"context"
	"errors"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/metrics"
)

// UpstreamPolicy bounds calls to collaborators.
type UpstreamPolicy struct {
	Timeout time.Duration
	Backoff time.Duration
	Metrics *metrics.Metrics
}

// call runs fn once under the policy deadline. Errors without a kind become UpstreamUnavailable.
func (p UpstreamPolicy) call(ctx context.Context, collaborator string, fn func(context.Context) error) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	p.Metrics.ObserveUpstream(collaborator, start)
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Upstream(collaborator, err)
}

// read is call with a single retry after Backoff. Only idempotent reads go through here.
func (p UpstreamPolicy) read(ctx context.Context, collaborator string, fn func(context.Context) error) error {
	err := p.call(ctx, collaborator, fn)
	if err == nil || !apperr.Is(err, apperr.KindUpstreamUnavailable) {
		return err
	}

	timer := time.NewTimer(p.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return apperr.Upstream(collaborator, ctx.Err())
	case <-timer.C:
	}
	return p.call(ctx, collaborator, fn)
}
