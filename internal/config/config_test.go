package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	if cfg.Server.Addr != want.Server.Addr || cfg.Storage.Backend != "sqlite" || cfg.Storage.Key != "video_catalog" {
		t.Fatalf("Load() = %+v", cfg)
	}
	if cfg.Media.ProbeTimeout != 5*time.Second {
		t.Fatalf("probe timeout = %v, want 5s", cfg.Media.ProbeTimeout)
	}
	if cfg.Progress.FlushPerSecond != 4 {
		t.Fatalf("flush per second = %v, want 4", cfg.Progress.FlushPerSecond)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: file
  dir: /tmp/catalog
media:
  probe_timeout: 2s
log:
  level: debug
`)
	t.Setenv("REELSHELF_LOG_LEVEL", "warn")
	t.Setenv("REELSHELF_SERVER_ADDR", "127.0.0.1:9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.Dir != "/tmp/catalog" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Media.ProbeTimeout != 2*time.Second {
		t.Fatalf("probe timeout = %v", cfg.Media.ProbeTimeout)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("env did not override file: level = %q", cfg.Log.Level)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
}

func TestBindFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("storage-backend", "", "")
	flags.String("server-addr", "", "")
	if err := flags.Parse([]string{"--storage-backend=file"}); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(writeConfig(t, "{}\n"))
	if err := l.BindFlags(flags, "storage.backend", "server.addr"); err != nil {
		t.Fatalf("BindFlags() error = %v", err)
	}
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != "file" {
		t.Fatalf("flag did not apply: backend = %q", cfg.Storage.Backend)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unset flag overrode default: addr = %q", cfg.Server.Addr)
	}

	if err := l.BindFlags(flags, "redis.addr"); err == nil {
		t.Fatalf("BindFlags() with missing flag expected error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"negative probe timeout", func(c *Config) { c.Media.ProbeTimeout = -time.Second }},
		{"negative flush rate", func(c *Config) { c.Progress.FlushPerSecond = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate() expected error")
			}
		})
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
}

func TestLoadBadFile(t *testing.T) {
	if _, err := Load(writeConfig(t, "storage: [unterminated\n")); err == nil {
		t.Fatalf("Load() with broken yaml expected error")
	}
}
