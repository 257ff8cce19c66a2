package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// New builds a JSON production logger at the given level.
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// Setup builds a logger and installs it as the package global. An invalid
// level falls back to info.
func Setup(level string) *zap.Logger {
	l, err := New(level)
	if err != nil {
		l, _ = New("info")
	}
	if l == nil {
		l = zap.NewNop()
	}
	SetLogger(l)
	return l
}

// SetLogger replaces the global logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L returns the global logger. It is a no-op logger until Setup is called.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}
