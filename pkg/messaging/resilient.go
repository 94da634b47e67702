package messaging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/abgdnv/retailinventory/pkg/config"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ResilientPublisher retries transient publish failures and stops calling the broker
// while it keeps failing.
type ResilientPublisher struct {
	next    Publisher
	breaker *gobreaker.CircuitBreaker[struct{}]
	retry   config.RetryConfig
}

func NewResilientPublisher(next Publisher, cfg config.ResilienceConfig, logger *slog.Logger) *ResilientPublisher {
	cb := cfg.CircuitBreaker
	st := gobreaker.Settings{
		Name:        "event-publisher-cb",
		MaxRequests: cb.HalfOpenRequests,
		Timeout:     cb.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cb.ConsecutiveFailures ||
				(total > cb.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cb.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			// a cancelled caller says nothing about broker health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &ResilientPublisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](st),
		retry:   cfg.Retry,
	}
}

func (p *ResilientPublisher) Publish(ctx context.Context, event Event) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, backoff.Retry(func() error {
			return p.next.Publish(ctx, event)
		}, p.backoff(ctx))
	})
	return err
}

func (p *ResilientPublisher) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retry.InitialBackoff
	if p.retry.MaxBackoff > 0 {
		b.MaxInterval = p.retry.MaxBackoff
	}
	if p.retry.MaxElapsed > 0 {
		b.MaxElapsedTime = p.retry.MaxElapsed
	}
	var retries uint64
	if p.retry.MaxAttempts > 1 {
		retries = uint64(p.retry.MaxAttempts - 1)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

// State reports the breaker state, mostly for health reporting.
func (p *ResilientPublisher) State() gobreaker.State {
	return p.breaker.State()
}
