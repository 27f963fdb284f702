package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "PAYGATE"

// Config is the resolved runtime configuration.
type Config struct {
	ServiceName string        `mapstructure:"service_name"`
	Env         string        `mapstructure:"env"`
	Log         LogConfig     `mapstructure:"log"`
	Checkout    APIConfig     `mapstructure:"checkout"`
	Dashboard   APIConfig     `mapstructure:"dashboard"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	Server      ServerConfig  `mapstructure:"server"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Session     SessionConfig `mapstructure:"session"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type APIConfig struct {
	APIURL string `mapstructure:"api_url"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// MetricsConfig enables a standalone /metrics listener when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type SessionConfig struct {
	File string `mapstructure:"file"`
}

// SetDefaults registers every key so environment overrides resolve even
// without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "paygate")
	v.SetDefault("env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("checkout.api_url", "http://localhost:8000")
	v.SetDefault("dashboard.api_url", "http://localhost:8080/api")
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("session.file", "")
}

// Load resolves defaults, then the optional YAML file, then PAYGATE_*
// environment variables, then any flags bound in flags.
func Load(path string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed names are honoured as well.
	_ = v.BindEnv("log.file", EnvPrefix+"_LOG_FILE", "LOG_FILE")
	_ = v.BindEnv("service_name", EnvPrefix+"_SERVICE_NAME", "SERVICE_NAME")
	_ = v.BindEnv("env", EnvPrefix+"_ENV", "ENV")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for key, f := range flags {
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	for key, raw := range map[string]string{
		"checkout.api_url":  c.Checkout.APIURL,
		"dashboard.api_url": c.Dashboard.APIURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: %s must be an absolute URL, got %q", key, raw))
		}
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("config: http.timeout must be positive"))
	}
	return errors.Join(errs...)
}
