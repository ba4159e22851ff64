// Package observability contains logging setup and the pickling metrics.
package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/born-ml/hpickle/internal/config"
)

// SetupLogger builds a zap.Logger from the provided configuration. The
// caller should defer logger.Sync().
func SetupLogger(c config.LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(c.Level) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "info":
		level.SetLevel(zap.InfoLevel)
	case "warn", "warning":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	encCfg := defaultEncoderConfig(c.Development)
	var encoder zapcore.Encoder
	if strings.ToLower(c.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var cores []zapcore.Core
	for _, out := range c.Outputs {
		switch strings.ToLower(out) {
		case "stdout":
			cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
		case "stderr":
			cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level))
		default:
			cores = append(cores, zapcore.NewCore(encoder, fileSyncer(out, c), level))
		}
	}

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	}
	if c.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// fileSyncer treats out as a file path; rotation only when enabled.
func fileSyncer(out string, c config.LogConfig) zapcore.WriteSyncer {
	if c.Rotation.Enable {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   chooseFilename(out, c),
			MaxSize:    max(c.Rotation.MaxSizeMB, 10),
			MaxBackups: max(c.Rotation.MaxBackups, 1),
			MaxAge:     max(c.Rotation.MaxAgeDays, 7),
			Compress:   c.Rotation.Compress,
		})
	}
	if dir := dirOf(out); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // path comes from config
	if err != nil {
		return zapcore.AddSync(os.Stderr)
	}
	return zapcore.AddSync(f)
}

func defaultEncoderConfig(dev bool) zapcore.EncoderConfig {
	if dev {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg
	}
	return zap.NewProductionEncoderConfig()
}

// chooseFilename prefers the rotation filename when rotation is enabled.
func chooseFilename(out string, c config.LogConfig) string {
	if c.Rotation.Enable && strings.TrimSpace(c.Rotation.Filename) != "" {
		return c.Rotation.Filename
	}
	return out
}

func dirOf(path string) string {
	i := strings.LastIndexAny(path, "/\\")
	if i <= 0 {
		return ""
	}
	return path[:i]
}
