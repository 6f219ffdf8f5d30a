package sink

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"datalake/internal/model"
)

// Retrying retries failed writes of the wrapped sink with exponential
// backoff. Errors wrapped with Permanent, and context cancellation, stop
// retrying at once.
type Retrying struct {
	Sink Sink
	// Retries is the number of extra attempts after the first failure.
	Retries int
	// InitialInterval and MaxInterval bound the backoff; zero means
	// 200ms and 5s.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var _ Sink = (*Retrying)(nil)

// NewRetrying wraps s. retries <= 0 returns s unchanged.
func NewRetrying(s Sink, retries int) Sink {
	if retries <= 0 {
		return s
	}
	return &Retrying{Sink: s, Retries: retries}
}

// Write implements Sink.
func (r *Retrying) Write(ctx context.Context, t *model.Table) error {
	attempt := 0
	op := func() error {
		attempt++
		err := r.Sink.Write(ctx, t)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrPermanent), ctx.Err() != nil:
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("sink: write table=%s attempt=%d failed, retrying in %s: %v", t.Name, attempt, wait.Truncate(time.Millisecond), err)
	}
	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(r.policy(), uint64(r.Retries)), ctx), notify)
}

func (r *Retrying) policy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	if r.InitialInterval > 0 {
		b.InitialInterval = r.InitialInterval
	}
	b.MaxInterval = 5 * time.Second
	if r.MaxInterval > 0 {
		b.MaxInterval = r.MaxInterval
	}
	b.MaxElapsedTime = 0
	return b
}

// Commit forwards to the wrapped sink when it is a Committer.
func (r *Retrying) Commit(ctx context.Context) error {
	if c, ok := r.Sink.(Committer); ok {
		return c.Commit(ctx)
	}
	return nil
}

// Abort forwards to the wrapped sink when it is a Committer.
func (r *Retrying) Abort(ctx context.Context) error {
	if c, ok := r.Sink.(Committer); ok {
		return c.Abort(ctx)
	}
	return nil
}
