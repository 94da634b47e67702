package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/retailinventory/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type testEvent struct{}

func (testEvent) Subject() string           { return "inventory.test" }
func (testEvent) Payload() ([]byte, error) { return []byte(`{}`), nil }

func testResilience(maxAttempts uint, failures uint32) config.ResilienceConfig {
	return config.ResilienceConfig{
		Retry: config.RetryConfig{MaxAttempts: maxAttempts, InitialBackoff: time.Millisecond, MaxElapsed: time.Second},
		CircuitBreaker: config.CircuitBreakerConfig{
			ConsecutiveFailures: failures,
			ErrorRatePercent:    100,
			OpenTimeout:         time.Minute,
			HalfOpenRequests:    1,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_ResilientPublisher_RetriesTransientFailure(t *testing.T) {
	// given
	next := new(MockPublisher)
	next.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	next.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	p := NewResilientPublisher(next, testResilience(3, 5), discardLogger())

	// when
	err := p.Publish(context.Background(), testEvent{})

	// then
	assert.NoError(t, err)
	next.AssertNumberOfCalls(t, "Publish", 2)
	assert.Equal(t, gobreaker.StateClosed, p.State())
}

func Test_ResilientPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	// given
	next := new(MockPublisher)
	next.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	p := NewResilientPublisher(next, testResilience(1, 2), discardLogger())

	// when
	for range 2 {
		assert.Error(t, p.Publish(context.Background(), testEvent{}))
	}
	err := p.Publish(context.Background(), testEvent{})

	// then
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, p.State())
	next.AssertNumberOfCalls(t, "Publish", 2)
}

func Test_ResilientPublisher_StopsRetryingWithinBudget(t *testing.T) {
	testCases := []struct {
		name  string
		cfg   func(config.ResilienceConfig) config.ResilienceConfig
		ctx   func() (context.Context, context.CancelFunc)
		bound time.Duration
	}{
		{
			name: "Elapsed budget",
			cfg: func(c config.ResilienceConfig) config.ResilienceConfig {
				c.Retry.InitialBackoff = 20 * time.Millisecond
				c.Retry.MaxElapsed = 50 * time.Millisecond
				return c
			},
			ctx:   func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			bound: time.Second,
		},
		{
			name: "Caller deadline",
			cfg: func(c config.ResilienceConfig) config.ResilienceConfig {
				c.Retry.InitialBackoff = 20 * time.Millisecond
				c.Retry.MaxElapsed = time.Minute
				return c
			},
			ctx:   func() (context.Context, context.CancelFunc) { return context.WithTimeout(context.Background(), 50*time.Millisecond) },
			bound: time.Second,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			next := new(MockPublisher)
			next.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
			p := NewResilientPublisher(next, tc.cfg(testResilience(1000, 1000)), discardLogger())
			ctx, cancel := tc.ctx()
			defer cancel()

			// when
			start := time.Now()
			err := p.Publish(ctx, testEvent{})

			// then
			assert.Error(t, err)
			assert.Less(t, time.Since(start), tc.bound)
		})
	}
}
