package logger

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the global zap logger.
// Output goes to stderr unless logPath is set; stdout belongs to the MCP stdio transport.
func InitLogger(debug bool, logPath string) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	out := "stderr"
	if logPath != "" {
		out = logPath
	}
	cfg.OutputPaths = []string{out}
	cfg.ErrorOutputPaths = []string{out}

	l, err := cfg.Build()
	if err != nil {
		return errors.Wrapf(err, "failed to build logger for %s", out)
	}

	zap.ReplaceGlobals(l)
	return nil
}

// Sync flushes any buffered log entries
func Sync() {
	_ = zap.L().Sync()
}
