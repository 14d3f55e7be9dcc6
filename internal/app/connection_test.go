package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"zonebot/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnection(t *testing.T, broker *mockBroker, attempts int) (*Connection, *[]time.Duration) {
	t.Helper()
	conn, err := NewConnection(broker, &mockLogger{}, ConnectionConfig{
		MinDelay:    time.Second,
		MaxDelay:    32 * time.Second,
		MaxAttempts: attempts,
	})
	require.NoError(t, err)
	var delays []time.Duration
	conn.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return conn, &delays
}

func TestConnection_SucceedsAfterRetries(t *testing.T) {
	broker := newMockBroker()
	broker.connectErrs = []error{ports.ErrConnectionFailed, ports.ErrConnectionFailed}
	conn, delays := newTestConnection(t, broker, 5)

	require.NoError(t, conn.Connect(context.Background()))
	assert.Equal(t, 3, broker.connectCalls)
	require.Len(t, *delays, 2)
	for _, d := range *delays {
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 32*time.Second)
	}
}

func TestConnection_GivesUpAfterMaxAttempts(t *testing.T) {
	broker := newMockBroker()
	broker.connectErrs = []error{ports.ErrConnectionFailed, ports.ErrConnectionFailed, ports.ErrConnectionFailed}
	conn, delays := newTestConnection(t, broker, 3)

	err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrReconnectExhausted))
	assert.True(t, errors.Is(err, ports.ErrConnectionFailed))
	assert.Equal(t, 3, broker.connectCalls)
	assert.Len(t, *delays, 2, "no sleep after the final attempt")
}

func TestConnection_ReconnectDisconnectsFirst(t *testing.T) {
	broker := newMockBroker()
	conn, _ := newTestConnection(t, broker, 3)

	require.NoError(t, conn.Reconnect(context.Background()))
	assert.Equal(t, 1, broker.disconnectCnt)
	assert.Equal(t, 1, broker.connectCalls)
}

func TestConnection_StopsOnCancel(t *testing.T) {
	broker := newMockBroker()
	broker.connectErrs = []error{ports.ErrConnectionFailed, ports.ErrConnectionFailed}
	conn, _ := newTestConnection(t, broker, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := conn.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, broker.connectCalls)
}

func TestNewConnection_Validation(t *testing.T) {
	_, err := NewConnection(nil, &mockLogger{}, ConnectionConfig{})
	assert.Error(t, err)

	conn, err := NewConnection(newMockBroker(), &mockLogger{}, ConnectionConfig{})
	require.NoError(t, err)
	assert.Equal(t, 5, conn.maxAttempts)
}
