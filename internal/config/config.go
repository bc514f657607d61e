// Package config loads reelshelf settings from defaults, an optional
// config.yaml, a .env.local file and REELSHELF_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const AppName = "reelshelf"

type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	Media    MediaConfig    `mapstructure:"media" yaml:"media"`
	Progress ProgressConfig `mapstructure:"progress" yaml:"progress"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr        string  `mapstructure:"addr" yaml:"addr"`
	CORS        bool    `mapstructure:"cors" yaml:"cors"`
	UploadRate  float64 `mapstructure:"upload_rate" yaml:"upload_rate"`
	UploadBurst int     `mapstructure:"upload_burst" yaml:"upload_burst"`
}

type StorageConfig struct {
	// Backend is one of sqlite, file, redis or postgres.
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
	Key     string `mapstructure:"key" yaml:"key"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

type MediaConfig struct {
	UploadDir string `mapstructure:"upload_dir" yaml:"upload_dir"`
	FFprobe   string `mapstructure:"ffprobe_path" yaml:"ffprobe_path"`

	// ProbeTimeout of zero waits for ffprobe without a bound.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
}

type ProgressConfig struct {
	FlushPerSecond float64 `mapstructure:"flush_per_second" yaml:"flush_per_second"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8080",
			CORS:        true,
			UploadRate:  1,
			UploadBurst: 3,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "./data/reelshelf.db",
			Key:     "video_catalog",
			Dir:     "./data",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Media: MediaConfig{
			UploadDir:    "./data/uploads",
			ProbeTimeout: 5 * time.Second,
		},
		Progress: ProgressConfig{
			FlushPerSecond: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// configSearchPaths lists config directories, lowest priority first.
func configSearchPaths() []string {
	paths := []string{filepath.Join("/etc", AppName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", AppName))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}
	return paths
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, path := range configSearchPaths() {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())
	return v
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("server.addr", c.Server.Addr)
	v.SetDefault("server.cors", c.Server.CORS)
	v.SetDefault("server.upload_rate", c.Server.UploadRate)
	v.SetDefault("server.upload_burst", c.Server.UploadBurst)
	v.SetDefault("storage.backend", c.Storage.Backend)
	v.SetDefault("storage.path", c.Storage.Path)
	v.SetDefault("storage.key", c.Storage.Key)
	v.SetDefault("storage.dir", c.Storage.Dir)
	v.SetDefault("redis.addr", c.Redis.Addr)
	v.SetDefault("redis.password", c.Redis.Password)
	v.SetDefault("redis.db", c.Redis.DB)
	v.SetDefault("postgres.dsn", c.Postgres.DSN)
	v.SetDefault("media.upload_dir", c.Media.UploadDir)
	v.SetDefault("media.ffprobe_path", c.Media.FFprobe)
	v.SetDefault("media.probe_timeout", c.Media.ProbeTimeout)
	v.SetDefault("progress.flush_per_second", c.Progress.FlushPerSecond)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.file", c.Log.File)
}

// Loader owns the viper instance so flags can be bound before Load and the
// file can be watched after it.
type Loader struct {
	v       *viper.Viper
	cfgFile string
}

func NewLoader(cfgFile string) *Loader {
	v := newViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	return &Loader{v: v, cfgFile: cfgFile}
}

// BindFlags lets command line flags override every other source. Flag names
// use dashes where keys use underscores, e.g. --storage-backend.
func (l *Loader) BindFlags(flags *pflag.FlagSet, keys ...string) error {
	for _, key := range keys {
		name := strings.NewReplacer(".", "-", "_", "-").Replace(key)
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("config: no flag %q for key %q", name, key)
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads .env.local (when present) and the config file into a Config.
func (l *Loader) Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env.local: %w", err)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FileUsed is the config file that was read, if any.
func (l *Loader) FileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load is NewLoader(cfgFile).Load().
func Load(cfgFile string) (*Config, error) {
	return NewLoader(cfgFile).Load()
}

var backends = map[string]bool{"sqlite": true, "file": true, "redis": true, "postgres": true}

func (c *Config) Validate() error {
	if !backends[c.Storage.Backend] {
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Postgres.DSN == "" {
		return errors.New("config: postgres backend needs postgres.dsn")
	}
	if c.Media.ProbeTimeout < 0 {
		return errors.New("config: media.probe_timeout must not be negative")
	}
	if c.Progress.FlushPerSecond < 0 {
		return errors.New("config: progress.flush_per_second must not be negative")
	}
	return nil
}
