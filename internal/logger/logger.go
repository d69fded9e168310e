package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process wide logger. It discards everything until InitLogger
// is called, so packages may log unconditionally.
var Logger = zap.NewNop().Sugar()

// Config controls how InitLogger builds the logger.
type Config struct {
	Debug     bool   // enable debug level logging
	LogFormat string // "json" or "human"
	LogFile   string // optional extra output path
}

// InitLogger replaces Logger with one built from config. Logs go to stderr so
// they never interleave with command output on stdout.
func InitLogger(config Config) error {
	var zapConfig zap.Config
	switch config.LogFormat {
	case "json":
		zapConfig = zap.NewProductionConfig()
	case "human", "":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		return fmt.Errorf("unknown log format %q", config.LogFormat)
	}

	outputPaths := []string{"stderr"}
	if config.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogFile), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		outputPaths = append(outputPaths, config.LogFile)
	}
	zapConfig.OutputPaths = outputPaths

	if config.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	Logger = logger.Sugar()
	return nil
}

func LogInfo(message string, fields map[string]interface{}) {
	Logger.Infow(message, flattenFields(fields)...)
}

func LogError(message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["error"] = err.Error()
	Logger.Errorw(message, flattenFields(fields)...)
}

func LogDebug(message string, fields map[string]interface{}) {
	Logger.Debugw(message, flattenFields(fields)...)
}

// WithFields returns a logger that adds fields to every entry.
func WithFields(fields map[string]interface{}) *zap.SugaredLogger {
	return Logger.With(flattenFields(fields)...)
}

func flattenFields(fields map[string]interface{}) []interface{} {
	flat := make([]interface{}, 0, 2*len(fields))
	for k, v := range fields {
		flat = append(flat, k, v)
	}
	return flat
}

// Sync flushes any buffered log entries.
func Sync() error {
	return Logger.Sync()
}
