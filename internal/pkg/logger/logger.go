package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with fraud-monitoring event helpers
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Add service metadata
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// NewNop returns a logger that discards everything. Used by tests
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), serviceName: "nop"}
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok && spanID != "" {
		fields = append(fields, zap.String("span_id", spanID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// TransactionScored logs the outcome of scoring a transaction
func (l *Logger) TransactionScored(txID string, score float64, severity, recommendation string, factors int) {
	l.Info("transaction scored",
		zap.String("transaction_id", txID),
		zap.Float64("fraud_score", score),
		zap.String("severity", severity),
		zap.String("recommendation", recommendation),
		zap.Int("factor_count", factors),
	)
}

// StatusChanged logs a lifecycle transition
func (l *Logger) StatusChanged(entity, id, from, to, actor string) {
	l.Info("status changed",
		zap.String("entity", entity),
		zap.String("id", id),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("actor", actor),
	)
}

// AlertCreated logs alert creation
func (l *Logger) AlertCreated(alertID, alertType, severity, txID string, score float64) {
	l.Warn("alert created",
		zap.String("alert_id", alertID),
		zap.String("alert_type", alertType),
		zap.String("severity", severity),
		zap.String("transaction_id", txID),
		zap.Float64("fraud_score", score),
	)
}

// AlertDeduplicated logs a suppressed duplicate alert
func (l *Logger) AlertDeduplicated(alertID, txID, severity string) {
	l.Debug("alert already exists",
		zap.String("alert_id", alertID),
		zap.String("transaction_id", txID),
		zap.String("severity", severity),
	)
}

// ImportCompleted logs a finished bulk import
func (l *Logger) ImportCompleted(userID string, imported, alerts int, durationMs int64) {
	l.Info("import completed",
		zap.String("user_id", userID),
		zap.Int("imported", imported),
		zap.Int("alerts", alerts),
		zap.Int64("duration_ms", durationMs),
	)
}

// StorageFailure logs a failed store call
func (l *Logger) StorageFailure(op string, err error) {
	l.Error("storage operation failed",
		zap.String("op", op),
		zap.Error(err),
	)
}

// PublishFailure logs an event that could not be delivered
func (l *Logger) PublishFailure(eventType, key string, err error) {
	l.Warn("event publish failed",
		zap.String("event_type", eventType),
		zap.String("key", key),
		zap.Error(err),
	)
}

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}
