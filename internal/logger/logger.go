package logger

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production uses JSON output, anything else a
// colored console encoder. When sentryDSN is set, error-level entries are also
// sent to Sentry.
func New(level, env, sentryDSN string) (*zap.Logger, error) {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}

	if sentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         sentryDSN,
			Environment: env,
		}); err != nil {
			return nil, err
		}
		opts = append(opts, zap.Hooks(sentryHook))
	}

	return config.Build(opts...)
}

// sentryHook forwards error-level entries. Hooks see the message but not the
// structured fields, which is enough to group events in Sentry.
func sentryHook(entry zapcore.Entry) error {
	if entry.Level < zapcore.ErrorLevel {
		return nil
	}

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("logger", entry.LoggerName)
		scope.SetTag("caller", entry.Caller.TrimmedPath())
	})
	hub.CaptureException(errors.New(entry.Message))
	return nil
}

// Flush syncs the logger and drains pending Sentry events
func Flush(log *zap.Logger) {
	_ = log.Sync()
	sentry.Flush(2 * time.Second)
}
