package logging

import (
	"log/slog"
	"os"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	BackendStd = "std"
	BackendZap = "zap"
)

type Config struct {
	Service string
	Version string
	Env     string // dev|prod
	Backend string // std|zap
	Debug   bool
}

// Init installs the process-wide slog default. The std backend writes
// text in dev and JSON in prod; the zap backend routes slog records
// through a zap core.
func Init(cfg Config) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	switch cfg.Backend {
	case BackendZap:
		handler = slogzap.Option{
			Level:  level,
			Logger: zapLogger(cfg.Env, level),
		}.NewZapHandler()
	default:
		opts := &slog.HandlerOptions{Level: level}
		if cfg.Env == EnvProd {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(os.Stderr, opts)
		}
	}

	logger := slog.New(handler).With(
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
	)
	slog.SetDefault(logger)
}

func zapLogger(env string, level slog.Level) *zap.Logger {
	zcfg := zap.NewDevelopmentConfig()
	if env == EnvProd {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel(level))

	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level <= slog.LevelInfo:
		return zapcore.InfoLevel
	case level <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
