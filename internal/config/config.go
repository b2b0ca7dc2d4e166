// Package config loads the crashupload configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/crashdesk/sentry-go"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SENTRY_"

// Config is the configuration of the crashupload command. Every field is
// read from the environment variable EnvPrefix + upper case koanf key,
// e.g. SENTRY_CRASH_LOG.
type Config struct {
	Dsn         string        `koanf:"dsn" validate:"required,url"`
	CrashLog    string        `koanf:"crash_log" validate:"required"`
	Env         string        `koanf:"env"`
	LogLevel    string        `koanf:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal panic"`
	Release     string        `koanf:"release"`
	Environment string        `koanf:"environment"`
	ServerName  string        `koanf:"server_name"`
	Debug       bool          `koanf:"debug"`
	Compress    bool          `koanf:"compress"`
	Timeout     time.Duration `koanf:"timeout" validate:"gte=0"`
	HTTPProxy   string        `koanf:"http_proxy" validate:"omitempty,url"`
	HTTPSProxy  string        `koanf:"https_proxy" validate:"omitempty,url"`
	// BundledCaCerts is for minimal images without a system CA store.
	BundledCaCerts bool `koanf:"bundled_ca_certs"`
}

// Load reads the configuration from the environment after loading the
// given dotenv files. Missing dotenv files are skipped; variables already
// set in the environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", file, err)
		}
	}

	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.setDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = "production"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// ClientOptions returns the options of the client uploading crash logs.
func (c *Config) ClientOptions() sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:               c.Dsn,
		Debug:             c.Debug,
		Release:           c.Release,
		Environment:       c.Environment,
		ServerName:        c.ServerName,
		CompressEnvelopes: c.Compress,
		HTTPProxy:         c.HTTPProxy,
		HTTPSProxy:        c.HTTPSProxy,
		BundledCaCerts:    c.BundledCaCerts,
		HTTPTimeout:       c.Timeout,
	}
}
