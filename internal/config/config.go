package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/t77yq/energy-dashboard/internal/handler"
	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/scheduler"
)

// EnvPrefix prefixes every environment override, e.g. ENERGY_HTTP_ADDR
const EnvPrefix = "ENERGY"

// Config holds all configuration for the dashboard service
type Config struct {
	App struct {
		Name               string        `mapstructure:"name"`
		HostSampleInterval time.Duration `mapstructure:"host_sample_interval"`
	} `mapstructure:"app"`

	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`

	HTTP struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	NATS struct {
		Enabled         bool          `mapstructure:"enabled"`
		URL             string        `mapstructure:"url"`
		MaxReconnects   int           `mapstructure:"max_reconnects"`
		ReconnectWait   time.Duration `mapstructure:"reconnect_wait"`
		ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
		ConnectRetries  int           `mapstructure:"connect_retries"`
		SummaryInterval time.Duration `mapstructure:"summary_interval"`
	} `mapstructure:"nats"`

	Storage struct {
		HistoryPath     string        `mapstructure:"history_path"`
		Retention       time.Duration `mapstructure:"retention"`
		CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	} `mapstructure:"storage"`

	Seed struct {
		// File is a YAML seed file. The built-in dataset is used when empty.
		File string `mapstructure:"file"`
	} `mapstructure:"seed"`

	Digest struct {
		Enabled    bool   `mapstructure:"enabled"`
		Expression string `mapstructure:"expression"`
	} `mapstructure:"digest"`

	Preferences struct {
		Channels   map[string]bool `mapstructure:"channels"`
		Severities map[string]bool `mapstructure:"severities"`
	} `mapstructure:"preferences"`

	// Delivery configures the email, SMS and push gateways for digests
	Delivery handler.NotificationConfig `mapstructure:"delivery"`
}

// Load reads configuration from path, or from config.yaml in . or ./config
// when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "energy-dashboard")
	v.SetDefault("app.host_sample_interval", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.connect_timeout", 5*time.Second)
	v.SetDefault("nats.connect_retries", 5)
	v.SetDefault("nats.summary_interval", 30*time.Second)

	v.SetDefault("storage.history_path", "alert_history.db")
	v.SetDefault("storage.retention", 30*24*time.Hour)
	v.SetDefault("storage.cleanup_interval", 24*time.Hour)

	v.SetDefault("seed.file", "")

	v.SetDefault("digest.enabled", true)
	v.SetDefault("digest.expression", scheduler.DefaultDigestExpression)

	v.SetDefault("delivery.email.host", "")
	v.SetDefault("delivery.email.port", 587)
	v.SetDefault("delivery.email.username", "")
	v.SetDefault("delivery.email.password", "")
	v.SetDefault("delivery.email.from", "")
	v.SetDefault("delivery.email.recipients", []string{})
	v.SetDefault("delivery.sms.webhook_url", "")
	v.SetDefault("delivery.sms.recipients", []string{})
	v.SetDefault("delivery.push.webhook_url", "")

	defaults := model.DefaultNotificationPreferences()
	for ch, on := range defaults.Channels {
		v.SetDefault("preferences.channels."+string(ch), on)
	}
	for sev, on := range defaults.Severities {
		v.SetDefault("preferences.severities."+string(sev), on)
	}
}

// Validate checks values that cannot be expressed as defaults
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	if c.Digest.Enabled {
		if _, err := scheduler.ParseExpression(c.Digest.Expression); err != nil {
			return fmt.Errorf("invalid digest.expression: %w", err)
		}
	}
	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required when nats is enabled")
		}
		if c.NATS.SummaryInterval <= 0 {
			return fmt.Errorf("nats.summary_interval must be positive")
		}
		if c.NATS.ConnectRetries < 1 {
			return fmt.Errorf("nats.connect_retries must be at least 1")
		}
	}
	if c.App.HostSampleInterval <= 0 {
		return fmt.Errorf("app.host_sample_interval must be positive")
	}
	if c.Storage.HistoryPath == "" {
		return fmt.Errorf("storage.history_path is required")
	}
	if c.Storage.CleanupInterval <= 0 {
		return fmt.Errorf("storage.cleanup_interval must be positive")
	}
	if _, err := c.NotificationPreferences(); err != nil {
		return err
	}
	return nil
}

// NotificationPreferences converts the preferences section into the model type
func (c *Config) NotificationPreferences() (model.NotificationPreferences, error) {
	prefs := model.DefaultNotificationPreferences()
	for name, on := range c.Preferences.Channels {
		ch, err := model.ParseChannel(name)
		if err != nil {
			return prefs, fmt.Errorf("invalid preferences.channels: %w", err)
		}
		prefs.Channels[ch] = on
	}
	for name, on := range c.Preferences.Severities {
		sev, err := model.ParseSeverity(name)
		if err != nil {
			return prefs, fmt.Errorf("invalid preferences.severities: %w", err)
		}
		prefs.Severities[sev] = on
	}
	return prefs, nil
}
