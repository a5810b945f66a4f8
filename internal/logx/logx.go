// Package logx provides beacon's four-severity logging interface and a
// zap-backed JSON implementation.
package logx

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the narrow interface the core depends on. Errors are never
// raised to callers through this interface — it is a sink, not a
// source of control flow.
type Logger interface {
	Error(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Verbose(msg string, fields map[string]any)
}

// Nop discards everything. Used in tests that don't care about log
// output.
type Nop struct{}

func (Nop) Error(string, map[string]any)   {}
func (Nop) Warn(string, map[string]any)    {}
func (Nop) Info(string, map[string]any)    {}
func (Nop) Verbose(string, map[string]any) {}

// ZapLogger wraps a non-sugared zap.Logger emitting structured JSON.
type ZapLogger struct {
	zap *zap.Logger
}

// NewZap creates a Logger writing JSON-encoded entries to w at debug
// level and above (so Verbose() is not silently dropped).
func NewZap(w io.Writer) *ZapLogger {
	return &ZapLogger{zap: newZapLogger(w)}
}

// NewZapStderr is NewZap(os.Stderr), the default used when a host does
// not configure an output.
func NewZapStderr() *ZapLogger {
	return NewZap(os.Stderr)
}

func newZapLogger(w io.Writer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

func (l *ZapLogger) Error(msg string, fields map[string]any) {
	l.zap.Error(msg, zap.Any("fields", fields))
}

func (l *ZapLogger) Warn(msg string, fields map[string]any) {
	l.zap.Warn(msg, zap.Any("fields", fields))
}

func (l *ZapLogger) Info(msg string, fields map[string]any) {
	l.zap.Info(msg, zap.Any("fields", fields))
}

// Verbose maps to zap's Debug level — beacon's four severities are
// error/warn/info/verbose.
func (l *ZapLogger) Verbose(msg string, fields map[string]any) {
	l.zap.Debug(msg, zap.Any("fields", fields))
}
