// File: internal/observability/logger.go
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xkilldash9x/testbrowser/internal/config"
)

var (
	current atomic.Pointer[zap.Logger]
	once    sync.Once
)

// ignoredSyncErrors are returned when syncing a terminal or a pipe.
var ignoredSyncErrors = []string{
	"sync /dev/std",
	"invalid argument",
	"inappropriate ioctl",
	"operation not supported",
}

// levelColors maps the color names accepted in logger.colors.
var levelColors = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

// Initialize installs the process wide logger once. Later calls are no-ops.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		logger := New(cfg, consoleWriter)
		current.Store(logger)

		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// New builds a logger from cfg without touching the global instance. Test
// suites that want a configured logger per browser use this directly.
func New(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoderFor(cfg), consoleWriter, level)}

	if cfg.LogFile != "" {
		// The rotated file is always JSON.
		rotated := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoderFor(config.LoggerConfig{Format: "json"}), zapcore.AddSync(rotated), level))
	}

	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.AddSource {
		options = append(options, zap.AddCaller())
	}

	logger := zap.New(zapcore.NewTee(cores...), options...)
	if cfg.ServiceName != "" {
		logger = logger.Named(cfg.ServiceName)
	}
	return logger
}

// InitializeLogger logs to stderr; stdout is reserved for page output.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stderr))
}

// ResetForTest forgets the installed logger so Initialize runs again.
func ResetForTest() {
	current.Store(nil)
	once = sync.Once{}
}

func colorLevelEncoder(colors config.ColorConfig) zapcore.LevelEncoder {
	painters := map[zapcore.Level]*color.Color{}
	for level, name := range map[zapcore.Level]string{
		zapcore.DebugLevel: colors.Debug,
		zapcore.InfoLevel:  colors.Info,
		zapcore.WarnLevel:  colors.Warn,
		zapcore.ErrorLevel: colors.Error,
	} {
		if attr, ok := levelColors[strings.ToLower(name)]; ok {
			c := color.New(attr)
			// The encoder output is not always a terminal; keep the codes
			// whenever a color was configured.
			c.EnableColor()
			painters[level] = c
		}
	}

	return func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		if c, ok := painters[level]; ok {
			enc.AppendString(c.Sprint(level.CapitalString()))
		} else {
			enc.AppendString(level.CapitalString())
		}
	}
}

// encoderFor picks the colorized console encoder for "console" and JSON for
// anything else.
func encoderFor(cfg config.LoggerConfig) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")

	if cfg.Format != "console" {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = colorLevelEncoder(cfg.Colors)
	// Names render with a trailing dot: "testbrowser.driver."
	ec.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(ec)
}

// GetLogger returns the installed logger, or a development logger when the
// command line has not initialized one yet.
func GetLogger() *zap.Logger {
	if logger := current.Load(); logger != nil {
		return logger
	}
	dev, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	dev.Warn("Logger used before initialization; falling back to development output.")
	return dev.Named("fallback")
}

// Sync flushes buffered entries before the process exits.
func Sync() {
	logger := current.Load()
	if logger == nil {
		return
	}
	err := logger.Sync()
	if err == nil {
		return
	}
	for _, ignored := range ignoredSyncErrors {
		if strings.Contains(err.Error(), ignored) {
			return
		}
	}
	fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
}
