package logger

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	// Level accepts a zap level name or an environment name
	// ("development" maps to debug, "production" to info)
	Level       string
	ServiceName string
	Development bool
}

// Logger wraps zap.Logger with the service's field conventions
type Logger struct {
	zap *zap.Logger
}

var (
	global *Logger
	mu     sync.RWMutex
)

// Init builds the global logger
func Init(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{Level: "info"}
	}

	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	z, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	if cfg.ServiceName != "" {
		z = z.With(zap.String("service", cfg.ServiceName))
	}

	mu.Lock()
	global = &Logger{zap: z}
	mu.Unlock()
	return nil
}

// New wraps an existing zap logger. Tests pass zap.NewNop().
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{zap: z}
}

// Get returns the global logger, or a no-op logger before Init
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return New(nil)
	}
	return global
}

// Sync flushes buffered log entries
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if global != nil {
		_ = global.zap.Sync()
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug", "development", "dev", "local":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// With returns a child logger carrying the given fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...)}
}

// Zap exposes the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.zap.Fatal(msg, fields...) }

// InfoContext logs with the trace id of the active span
func (l *Logger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Info(msg, append(fields, traceFields(ctx)...)...)
}

// WarnContext logs with the trace id of the active span
func (l *Logger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Warn(msg, append(fields, traceFields(ctx)...)...)
}

// ErrorContext logs with the trace id of the active span
func (l *Logger) ErrorContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Error(msg, append(fields, traceFields(ctx)...)...)
}

func traceFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return nil
	}
	return []zap.Field{zap.String("trace_id", sc.TraceID().String())}
}

// Info logs through the global logger
func Info(msg string, fields ...zap.Field) { Get().Info(msg, fields...) }

// Warn logs through the global logger
func Warn(msg string, fields ...zap.Field) { Get().Warn(msg, fields...) }

// Error logs through the global logger
func Error(msg string, fields ...zap.Field) { Get().Error(msg, fields...) }
