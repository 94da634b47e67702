package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ResilienceConfig guards the lifecycle event publisher against a slow or unavailable broker.
type ResilienceConfig struct {
	Retry          RetryConfig          `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// RetryConfig drives an exponential backoff. MaxAttempts counts the first try.
// A zero MaxBackoff keeps the backoff library's cap. MaxElapsed stops retrying once
// that much time has passed since the first attempt.
type RetryConfig struct {
	MaxAttempts    uint          `koanf:"maxattempts"`
	InitialBackoff time.Duration `koanf:"initialbackoff"`
	MaxBackoff     time.Duration `koanf:"maxbackoff"`
	MaxElapsed     time.Duration `koanf:"maxelapsed"`
}

// CircuitBreakerConfig trips on ConsecutiveFailures in a row, or once more than ConsecutiveFailures
// calls were made and the failure share exceeds ErrorRatePercent. A zero HalfOpenRequests lets one probe through.
type CircuitBreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	ErrorRatePercent    int           `koanf:"errorratepercent"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
	HalfOpenRequests    uint32        `koanf:"halfopenrequests"`
}

func (c *ResilienceConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Event Publisher Resilience ---\n")
	b.WriteString(fmt.Sprintf("  retry: %d attempts within %v, backoff %v..%v\n",
		c.Retry.MaxAttempts, c.Retry.MaxElapsed, c.Retry.InitialBackoff, c.Retry.MaxBackoff))
	b.WriteString(fmt.Sprintf("  breaker: trips after %d failures or %d%% errors, open for %v, %d half-open probes\n",
		c.CircuitBreaker.ConsecutiveFailures, c.CircuitBreaker.ErrorRatePercent,
		c.CircuitBreaker.OpenTimeout, c.CircuitBreaker.HalfOpenRequests))
	return b.String()
}

// Validate reports every invalid field at once.
func (c *ResilienceConfig) Validate() error {
	var errs []error
	if c.Retry.MaxAttempts == 0 {
		errs = append(errs, errors.New("resilience.retry.maxattempts must be greater than 0"))
	}
	if c.Retry.InitialBackoff <= 0 {
		errs = append(errs, errors.New("resilience.retry.initialbackoff must be greater than 0"))
	}
	if c.Retry.MaxBackoff != 0 && c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		errs = append(errs, errors.New("resilience.retry.maxbackoff must not be below initialbackoff"))
	}
	if c.Retry.MaxElapsed <= 0 {
		errs = append(errs, errors.New("resilience.retry.maxelapsed must be greater than 0"))
	}
	if c.CircuitBreaker.ConsecutiveFailures == 0 {
		errs = append(errs, errors.New("resilience.circuitbreaker.consecutivefailures must be greater than 0"))
	}
	if c.CircuitBreaker.ErrorRatePercent < 0 || c.CircuitBreaker.ErrorRatePercent > 100 {
		errs = append(errs, errors.New("resilience.circuitbreaker.errorratepercent must be between 0 and 100"))
	}
	if c.CircuitBreaker.OpenTimeout <= 0 {
		errs = append(errs, errors.New("resilience.circuitbreaker.opentimeout must be greater than 0"))
	}
	return errors.Join(errs...)
}
