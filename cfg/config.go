// Package cfg loads runtime configuration from an optional YAML file with
// environment overrides on top. Environment wins, so deployments can keep a
// checked-in file for defaults and inject secrets separately.
package cfg

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the full runtime configuration.
type Config struct {
	Provider ProviderConfig
	Auth     AuthConfig
	HTTP     HTTPConfig
	Database DatabaseConfig
}

// ProviderConfig points at the hosted backend.
type ProviderConfig struct {
	// URL is the base URL of the hosted service.
	URL string
	// AnonKey authenticates unauthenticated requests.
	AnonKey string
}

// AuthConfig tunes the session lifecycle.
type AuthConfig struct {
	// ResolveDeadline bounds how long startup blocks on session restore.
	ResolveDeadline time.Duration
	// SettleDelay is how long the gate tolerates a missing session after
	// load before redirecting.
	SettleDelay time.Duration
	// LoginPath is where unauthenticated users are sent.
	LoginPath string
}

// HTTPConfig tunes the web server.
type HTTPConfig struct {
	Addr string
}

// DatabaseConfig locates the local sqlite file used for the session cache.
type DatabaseConfig struct {
	Path string
}

// yamlConfig is the file's shape. Durations are plain milliseconds so the
// file stays readable and the parser stays simple.
type yamlConfig struct {
	Provider struct {
		URL     string `yaml:"url"`
		AnonKey string `yaml:"anon_key"`
	} `yaml:"provider"`
	Auth struct {
		ResolveDeadlineMs int    `yaml:"resolve_deadline_ms"`
		SettleDelayMs     int    `yaml:"settle_delay_ms"`
		LoginPath         string `yaml:"login_path"`
	} `yaml:"auth"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
}

func defaults() Config {
	return Config{
		Auth: AuthConfig{
			ResolveDeadline: 3 * time.Second,
			SettleDelay:     300 * time.Millisecond,
			LoginPath:       "/login",
		},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "globalcampus.db"},
	}
}

// Load reads path (skipped when empty or absent), applies environment
// overrides, and validates the result. Problems are accumulated so one run
// reports everything that is wrong.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults plus environment is a valid deployment
		case err != nil:
			return Config{}, fmt.Errorf("reading config file: %w", err)
		default:
			var yc yamlConfig
			if err := yaml.Unmarshal(b, &yc); err != nil {
				return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
			}
			applyFile(&cfg, yc)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, yc yamlConfig) {
	if yc.Provider.URL != "" {
		cfg.Provider.URL = yc.Provider.URL
	}
	if yc.Provider.AnonKey != "" {
		cfg.Provider.AnonKey = yc.Provider.AnonKey
	}
	if yc.Auth.ResolveDeadlineMs > 0 {
		cfg.Auth.ResolveDeadline = time.Duration(yc.Auth.ResolveDeadlineMs) * time.Millisecond
	}
	if yc.Auth.SettleDelayMs > 0 {
		cfg.Auth.SettleDelay = time.Duration(yc.Auth.SettleDelayMs) * time.Millisecond
	}
	if yc.Auth.LoginPath != "" {
		cfg.Auth.LoginPath = yc.Auth.LoginPath
	}
	if yc.HTTP.Addr != "" {
		cfg.HTTP.Addr = yc.HTTP.Addr
	}
	if yc.Database.Path != "" {
		cfg.Database.Path = yc.Database.Path
	}
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("GLOBALCAMPUS_PROVIDER_URL", &cfg.Provider.URL)
	setString("GLOBALCAMPUS_PROVIDER_ANON_KEY", &cfg.Provider.AnonKey)
	setString("GLOBALCAMPUS_LOGIN_PATH", &cfg.Auth.LoginPath)
	setString("GLOBALCAMPUS_HTTP_ADDR", &cfg.HTTP.Addr)
	setString("GLOBALCAMPUS_DB_PATH", &cfg.Database.Path)

	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	setDuration("GLOBALCAMPUS_RESOLVE_DEADLINE", &cfg.Auth.ResolveDeadline)
	setDuration("GLOBALCAMPUS_SETTLE_DELAY", &cfg.Auth.SettleDelay)
}

func (c Config) validate() error {
	var errs []error
	if c.Provider.URL == "" {
		errs = append(errs, errors.New("provider.url is required"))
	}
	if c.Provider.AnonKey == "" {
		errs = append(errs, errors.New("provider.anon_key is required"))
	}
	if c.Auth.ResolveDeadline <= 0 {
		errs = append(errs, errors.New("auth.resolve_deadline must be positive"))
	}
	if c.Auth.SettleDelay <= 0 {
		errs = append(errs, errors.New("auth.settle_delay must be positive"))
	}
	return errors.Join(errs...)
}
