package app

import (
	"context"
	"fmt"
	"time"

	"zonebot/internal/ports"

	"github.com/jpillora/backoff"
)

// ConnectionConfig bounds the reconnect schedule.
type ConnectionConfig struct {
	MinDelay    time.Duration // First retry delay
	MaxDelay    time.Duration // Delay cap
	MaxAttempts int           // Attempts before giving up
}

// Connection owns the broker session and re-establishes it with bounded
// exponential backoff.
type Connection struct {
	broker      ports.Broker
	logger      ports.Logger
	backoff     *backoff.Backoff
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewConnection creates a connection manager for broker.
func NewConnection(broker ports.Broker, logger ports.Logger, cfg ConnectionConfig) (*Connection, error) {
	if broker == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Connection")
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = 32 * cfg.MinDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Connection{
		broker: broker,
		logger: logger,
		backoff: &backoff.Backoff{
			Min:    cfg.MinDelay,
			Max:    cfg.MaxDelay,
			Factor: 2,
			Jitter: true,
		},
		maxAttempts: cfg.MaxAttempts,
		sleep:       sleepContext,
	}, nil
}

// Connect opens the session, retrying up to the configured number of
// attempts. The returned error wraps ports.ErrReconnectExhausted when every
// attempt failed.
func (c *Connection) Connect(ctx context.Context) error {
	op := "Connect"
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.broker.Connect(ctx)
		if err == nil {
			c.backoff.Reset()
			c.logger.Info(ctx, op+": Broker session established", map[string]interface{}{"attempt": attempt})
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == c.maxAttempts {
			break
		}

		delay := c.backoff.Duration()
		c.logger.Warn(ctx, op+": Connection attempt failed, retrying...", map[string]interface{}{
			"attempt":     attempt,
			"maxAttempts": c.maxAttempts,
			"delay":       delay.String(),
			"error":       err.Error(),
		})
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}

	c.backoff.Reset()
	c.logger.Error(ctx, lastErr, op+": Max connection attempts exceeded, giving up.", map[string]interface{}{"maxAttempts": c.maxAttempts})
	return fmt.Errorf("%w after %d attempts: %w", ports.ErrReconnectExhausted, c.maxAttempts, lastErr)
}

// Reconnect drops the current session and connects again.
func (c *Connection) Reconnect(ctx context.Context) error {
	if err := c.broker.Disconnect(ctx); err != nil {
		c.logger.Warn(ctx, "Reconnect: Disconnect failed, continuing", map[string]interface{}{"error": err.Error()})
	}
	return c.Connect(ctx)
}

// Close releases the session.
func (c *Connection) Close(ctx context.Context) error {
	return c.broker.Disconnect(ctx)
}
