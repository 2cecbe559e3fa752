package retry

import (
	"context"
	"math"
	"time"
)

// Config holds the configuration for transport-level retries
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns a single-attempt configuration. Callers opt into retries
// by raising MaxRetries; the backoff parameters only apply once they do.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      0,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// WithMaxRetries returns a copy of the config allowing n retries after the first attempt
func (c Config) WithMaxRetries(n int) Config {
	if n < 0 {
		n = 0
	}
	c.MaxRetries = n
	return c
}

// Attempts is the total number of calls Execute may make
func (c Config) Attempts() int {
	return c.MaxRetries + 1
}

// ErrorChecker decides if a failed attempt should be retried
type ErrorChecker func(err error, statusCode int, responseBody []byte) bool

// Func is one attempt of a retryable operation
type Func[T any] func(attempt int) (result T, statusCode int, responseBody []byte, err error)

// Logger receives retry progress messages
type Logger func(message string, args ...any)

// Options configures retry behavior
type Options struct {
	Config       Config
	ErrorChecker ErrorChecker
	Logger       Logger
	APIName      string
}

func (o Options) logf(message string, args ...any) {
	if o.Logger != nil {
		o.Logger(message, args...)
	}
}

// delay computes the wait before the given retry using exponential backoff
func (c Config) delay(retry int) time.Duration {
	d := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(retry)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Execute runs fn until it succeeds, fails with a non-retryable error, or the
// configured attempts are used up. With MaxRetries == 0 fn runs exactly once.
func Execute[T any](ctx context.Context, opts Options, fn Func[T]) (T, error) {
	var zero T
	var lastErr error
	attempts := opts.Config.Attempts()

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := opts.Config.delay(attempt - 1)
			opts.logf("%s retry attempt %d/%d after %v", opts.APIName, attempt+1, attempts, wait)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, statusCode, responseBody, err := fn(attempt)
		lastErr = err

		retryable := opts.ErrorChecker != nil && opts.ErrorChecker(err, statusCode, responseBody)
		if retryable && attempt < attempts-1 {
			if err != nil {
				opts.logf("%s error (attempt %d/%d): %v", opts.APIName, attempt+1, attempts, err)
			} else {
				opts.logf("%s retryable response (attempt %d/%d): status %d", opts.APIName, attempt+1, attempts, statusCode)
			}
			continue
		}

		if err == nil {
			if attempt > 0 {
				opts.logf("%s succeeded on attempt %d/%d", opts.APIName, attempt+1, attempts)
			}
			return result, nil
		}

		return zero, err
	}

	return zero, lastErr
}
