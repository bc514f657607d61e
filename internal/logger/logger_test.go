package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/treefix50/reelshelf/internal/config"
)

func TestNewFormats(t *testing.T) {
	tests := []struct {
		format string
		want   logrus.Formatter
	}{
		{"json", &logrus.JSONFormatter{}},
		{"", &logrus.JSONFormatter{}},
		{"text", &logrus.TextFormatter{}},
	}
	for _, tt := range tests {
		l, c, err := New(config.LogConfig{Level: "debug", Format: tt.format})
		if err != nil {
			t.Fatalf("New(%q) error = %v", tt.format, err)
		}
		if c != nil {
			t.Fatalf("New(%q) returned a closer without a file", tt.format)
		}
		if l.GetLevel() != logrus.DebugLevel {
			t.Fatalf("level = %v", l.GetLevel())
		}
		switch tt.want.(type) {
		case *logrus.JSONFormatter:
			if _, ok := l.Formatter.(*logrus.JSONFormatter); !ok {
				t.Fatalf("New(%q) formatter = %T", tt.format, l.Formatter)
			}
		case *logrus.TextFormatter:
			if _, ok := l.Formatter.(*logrus.TextFormatter); !ok {
				t.Fatalf("New(%q) formatter = %T", tt.format, l.Formatter)
			}
		}
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("New() with bad level expected error")
	}
	if _, _, err := New(config.LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatalf("New() with bad format expected error")
	}
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelshelf.log")
	if err := Init(config.LogConfig{Level: "info", Format: "json", File: path}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	Get().WithField("id", "abc").Info("hello")
	if err := Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) || !strings.Contains(string(data), `"id":"abc"`) {
		t.Fatalf("log file = %s", data)
	}

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	if Get().GetLevel() != logrus.WarnLevel {
		t.Fatalf("level after SetLevel = %v", Get().GetLevel())
	}
}
