// Package logging builds the daemon's zap logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/minizivpn/tunneld/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger for conf. With conf.File set, output goes to a
// size-rotated file instead of stderr.
func New(conf config.LogConfig) (*zap.Logger, error) {
	var w io.Writer = os.Stderr
	if conf.File != "" {
		w = &lumberjack.Logger{
			Filename:   conf.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}

	return build(conf, zapcore.AddSync(w))
}

func build(conf config.LogConfig, ws zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(conf.Level)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}

	var encoder zapcore.Encoder
	switch conf.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console", "":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("log: unknown format: %s", conf.Format)
	}

	core := zapcore.NewCore(encoder, ws, level)

	return zap.New(core, zap.AddCaller()), nil
}
