// Package logging wraps zap with the access-log formatting used by the server.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Empty means info.
	Level string

	// Development selects the colored console encoder and colored access
	// log lines. Production uses JSON with plain fields.
	Development bool

	// Output defaults to stdout.
	Output io.Writer
}

// Logger is passed explicitly to every component that logs. Its mode is fixed
// at construction.
type Logger struct {
	zap    *zap.Logger
	dev    bool
	styles *styles
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		level = parsed
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var encoder zapcore.Encoder
	if opts.Development {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), zap.NewAtomicLevelAt(level))
	l := NewWithCore(core, opts.Development)
	if opts.Development {
		l.styles = newStyles(lipgloss.NewRenderer(out))
	}
	return l, nil
}

// NewWithCore wraps an existing zap core, mainly for tests that observe
// log entries.
func NewWithCore(core zapcore.Core, development bool) *Logger {
	l := &Logger{zap: zap.New(core), dev: development}
	if development {
		l.styles = newStyles(lipgloss.DefaultRenderer())
	}
	return l
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return NewWithCore(zapcore.NewNopCore(), false)
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func (l *Logger) Development() bool {
	return l.dev
}

// Named returns a child logger scoped to a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), dev: l.dev, styles: l.styles}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, fields...)
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// RequestEntry describes one handled request for the access log.
type RequestEntry struct {
	Method    string
	Path      string
	Remote    string
	Status    int
	Duration  time.Duration
	RequestID string
}

// Request writes an access log line of the form
// "METHOD path | remote | status | Nms". Development mode colors the method
// and status.
func (l *Logger) Request(e RequestEntry) {
	method, status := e.Method, strconv.Itoa(e.Status)
	if l.dev && l.styles != nil {
		method = l.styles.method(e.Method)
		status = l.styles.status(e.Status)
	}

	msg := fmt.Sprintf("%s %s | %s | %s | %dms", method, e.Path, e.Remote, status, e.Duration.Milliseconds())

	fields := []zap.Field{
		zap.String("method", e.Method),
		zap.String("path", e.Path),
		zap.String("remote_addr", e.Remote),
		zap.Int("status", e.Status),
		zap.Duration("duration", e.Duration),
	}
	if e.RequestID != "" {
		fields = append(fields, zap.String("request_id", e.RequestID))
	}

	switch {
	case e.Status >= 500:
		l.zap.Error(msg, fields...)
	case e.Status >= 400:
		l.zap.Warn(msg, fields...)
	default:
		l.zap.Info(msg, fields...)
	}
}
