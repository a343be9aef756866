package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("round-trips the attached logger", func(t *testing.T) {
		log := zap.NewNop()
		ctx := WithContext(context.Background(), log)

		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("falls back to a no-op logger", func(t *testing.T) {
		log := FromContext(context.Background())

		require.NotNil(t, log)
		assert.NotPanics(t, func() { log.Info("orphan log line") })
	})
}

func TestWithUserID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, log := WithUserID(context.Background(), zap.New(core), "8c2f0c1e-customer")

	log.Info("case responded")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "8c2f0c1e-customer", logs.All()[0].ContextMap()["user_id"])
	assert.Equal(t, "8c2f0c1e-customer", GetUserID(ctx))
	assert.Same(t, log, FromContext(ctx))
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, log := WithRequestID(context.Background(), zap.New(core), "req-42")

	log.Info("refund listed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
	assert.Equal(t, "req-42", GetRequestID(ctx))
}

func TestGettersOnEmptyContext(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetUserID(context.Background()))
}
