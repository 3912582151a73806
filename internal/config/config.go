package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. BREAKWATCH_BACKEND_BASE_URL.
const EnvPrefix = "BREAKWATCH"

type Config struct {
	Backend   BackendConfig             `mapstructure:"backend"`
	Feed      FeedConfig                `mapstructure:"feed"`
	Server    ServerConfig              `mapstructure:"server"`
	Log       LogConfig                 `mapstructure:"log"`
	Router    RouterConfig              `mapstructure:"router"`
	Notifiers map[string]NotifierConfig `mapstructure:"notifiers"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
}

// BackendConfig points at the breakout engine.
type BackendConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	FeedURL         string        `mapstructure:"feed_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DefaultExchange string        `mapstructure:"default_exchange"`
}

// FeedConfig holds push channel and fail-safe timings.
type FeedConfig struct {
	ReconnectDelay   time.Duration `mapstructure:"reconnect_delay"`
	FailsafeInterval time.Duration `mapstructure:"failsafe_interval"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// RouterConfig controls alerts for newly appearing breakouts.
type RouterConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	MinPct        float64       `mapstructure:"min_pct"`
	ConfirmedOnly bool          `mapstructure:"confirmed_only"`
	Horizons      []string      `mapstructure:"horizons"`
}

type NotifierConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Telegram notifier fields
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	// Webhook notifier fields
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	// Email notifier fields
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file, after loading an optional .env next to the process.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.feed_url", d.Backend.FeedURL)
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("backend.default_exchange", d.Backend.DefaultExchange)
	v.SetDefault("feed.reconnect_delay", d.Feed.ReconnectDelay)
	v.SetDefault("feed.failsafe_interval", d.Feed.FailsafeInterval)
	v.SetDefault("feed.handshake_timeout", d.Feed.HandshakeTimeout)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("router.cooldown", d.Router.Cooldown)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:         "http://localhost:8000/api/v1",
			FeedURL:         "ws://localhost:8000/ws",
			Timeout:         10 * time.Second,
			DefaultExchange: string(core.ExchangeNSE),
		},
		Feed: FeedConfig{
			ReconnectDelay:   3 * time.Second,
			FailsafeInterval: 60 * time.Second,
			HandshakeTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Log: LogConfig{
			Level: "info",
		},
		Router: RouterConfig{
			Cooldown: time.Hour,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Backend validation
	if err := validateURL(c.Backend.BaseURL, "http", "https"); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("backend.base_url: %w", err))
	}
	if err := validateURL(c.Backend.FeedURL, "ws", "wss"); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("backend.feed_url: %w", err))
	}
	if c.Backend.Timeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backend.timeout cannot be negative, got %s", c.Backend.Timeout))
	}

	// Feed validation
	if c.Feed.ReconnectDelay <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("feed.reconnect_delay must be positive, got %s", c.Feed.ReconnectDelay))
	}
	if c.Feed.FailsafeInterval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("feed.failsafe_interval must be positive, got %s", c.Feed.FailsafeInterval))
	}

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Router validation
	if c.Router.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("router.cooldown cannot be negative, got %s", c.Router.Cooldown))
	}
	if c.Router.MinPct < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("router.min_pct cannot be negative, got %f", c.Router.MinPct))
	}
	for _, h := range c.Router.Horizons {
		if !core.Horizon(strings.ToUpper(h)).IsValid() {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("router.horizons: unknown horizon %q", h))
		}
	}

	// Notifier validation - enabled notifiers need their credentials
	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("webhook url required when webhook notifier is enabled"))
			}
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("telegram bot_token and chat_id required when telegram notifier is enabled"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown notifier %q", name))
		}
	}

	return nil
}

func validateURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("missing host in %q", raw)
			}
			return nil
		}
	}
	return fmt.Errorf("scheme must be one of %v, got %q", schemes, u.Scheme)
}
