package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/curalingo/session-gateway/internal/observability"
)

// ReconnectConfig holds configuration for opening streaming connections
type ReconnectConfig struct {
	MaxAttempts int           // Maximum number of connection attempts
	Backoff     time.Duration // Backoff duration between attempts
	Multiplier  float64       // Backoff multiplier for exponential backoff
	MaxBackoff  time.Duration // Maximum backoff duration
}

// DefaultReconnectConfig returns a default reconnection configuration
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		MaxAttempts: 5,
		Backoff:     1 * time.Second,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}
}

// Reconnect opens a connection with exponential backoff until open succeeds,
// attempts run out, or ctx is done. name labels the log lines.
func Reconnect[T any](ctx context.Context, name string, config *ReconnectConfig, open func(ctx context.Context) (T, error)) (T, error) {
	if config == nil {
		config = DefaultReconnectConfig()
	}

	logger := observability.WithComponent("reconnect").With().Str("upstream", name).Logger()
	b := &backoff{next: config.Backoff, max: config.MaxBackoff, multiplier: config.Multiplier}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		conn, err := open(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info().Int("attempts", attempt+1).Msg("Connection established after retries")
			}
			return conn, nil
		}
		lastErr = err

		if attempt == config.MaxAttempts-1 {
			break
		}

		wait := b.wait()
		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", config.MaxAttempts).
			Dur("backoff", wait).
			Msg("Connection attempt failed")

		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%s: failed to connect after %d attempts: %w", name, config.MaxAttempts, lastErr)
}
