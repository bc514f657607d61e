// Package logger holds the process-wide logrus logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/treefix50/reelshelf/internal/config"
)

var (
	logger *logrus.Logger
	closer io.Closer
	mu     sync.Mutex
)

// Init replaces the shared logger with one built from cfg.
func Init(cfg config.LogConfig) error {
	l, c, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	logger, closer = l, c
	return nil
}

// Get returns the shared logger, creating a JSON logger at info level when
// Init has not run.
func Get() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// New builds a logger from cfg. The closer is nil unless a log file is used.
func New(cfg config.LogConfig) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	if cfg.File == "" {
		l.SetOutput(os.Stderr)
		return l, nil, nil
	}
	rotating := newLumberjack(cfg.File)
	l.SetOutput(io.MultiWriter(os.Stderr, rotating))
	return l, rotating, nil
}

// SetLevel changes the level of the shared logger, used on config reload.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Get().SetLevel(lvl)
	return nil
}

func newLumberjack(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}
