package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds CLI configuration.
type Config struct {
	Backend   string          `mapstructure:"backend"`
	Theme     ThemeConfig     `mapstructure:"theme"`
	Render    RenderConfig    `mapstructure:"render"`
	Loader    LoaderConfig    `mapstructure:"loader"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ThemeConfig selects the default theme.
type ThemeConfig struct {
	Name    string `mapstructure:"name"`
	Variant string `mapstructure:"variant"`
	// Manifest is a go-theme manifest file registered at startup.
	Manifest string `mapstructure:"manifest"`
}

// RenderConfig holds render pass settings.
type RenderConfig struct {
	MaxDepth          int  `mapstructure:"max_depth"`
	SerializedActions bool `mapstructure:"serialized_actions"`
	TermWidth         int  `mapstructure:"term_width"`
}

// LoaderConfig controls how page documents are fetched.
type LoaderConfig struct {
	AllowHTTP bool          `mapstructure:"allow_http"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// WatchConfig controls file watching.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig configures OTLP trace export. An empty endpoint
// disables export.
type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Insecure    bool   `mapstructure:"insecure"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// PAGEGEN_. An explicit path wins over PAGEGEN_CONFIG; without either the
// user config dir is searched and a missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("backend", "html")
	v.SetDefault("theme.name", "")
	v.SetDefault("theme.variant", "")
	v.SetDefault("theme.manifest", "")
	v.SetDefault("render.max_depth", 64)
	v.SetDefault("render.serialized_actions", false)
	v.SetDefault("render.term_width", 80)
	v.SetDefault("loader.allow_http", false)
	v.SetDefault("loader.timeout", 10*time.Second)
	v.SetDefault("watch.debounce", 200*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "pagegen")
	v.SetDefault("telemetry.insecure", true)

	v.SetConfigType("yaml")

	explicit := path
	if explicit == "" {
		explicit = os.Getenv("PAGEGEN_CONFIG")
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "pagegen"))
		}
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PAGEGEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Logger builds the slog logger described by the log section.
func (c Config) Logger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, options))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, options))
}
