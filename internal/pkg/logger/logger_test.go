package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{Logger: zap.New(core), serviceName: "test"}, logs
}

func TestWithContext_AddsRequestFields(t *testing.T) {
	log, logs := observed()

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, "alice")
	ctx = context.WithValue(ctx, TraceIDKey, "trace-1")

	log.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "alice", fields["user_id"])
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.NotContains(t, fields, "span_id")
}

func TestEventHelpers(t *testing.T) {
	log, logs := observed()

	log.TransactionScored("TXN-1", 0.85, "critical", "block", 3)
	log.AlertCreated("a-1", "high_risk", "critical", "TXN-1", 0.85)
	log.AlertDeduplicated("a-1", "TXN-1", "critical")
	log.StorageFailure("insert_transaction", errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, "transaction scored", entries[0].Message)
	assert.Equal(t, 0.85, entries[0].ContextMap()["fraud_score"])
	assert.Equal(t, int64(3), entries[0].ContextMap()["factor_count"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "high_risk", entries[1].ContextMap()["alert_type"])

	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)

	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestNamed_KeepsServiceName(t *testing.T) {
	log, logs := observed()

	named := log.Named("alerts")
	named.Info("x")

	assert.Equal(t, "test", named.serviceName)
	assert.Equal(t, "alerts", logs.All()[0].LoggerName)
}
