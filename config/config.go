// Package config loads host settings from defaults, an optional config file,
// a .env file and LEASE_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: http.port is LEASE_HTTP_PORT.
const EnvPrefix = "LEASE"

type AppConfig struct {
	Env string
}

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Path string
}

type LogConfig struct {
	Level string
}

type CORSConfig struct {
	Origins []string
}

type AuditConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Config holds every setting of the lease engine host.
type Config struct {
	App   AppConfig
	HTTP  HTTPConfig
	DB    DBConfig
	Log   LogConfig
	CORS  CORSConfig
	Audit AuditConfig
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// IsDevelopment reports a development environment.
func (c Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Load reads the configuration. path names an explicit config file (toml,
// yaml or json, from its extension); when empty, config.toml is looked up in
// the working directory and ./config and skipped if absent. A .env file in
// the working directory is loaded first and never overrides variables
// already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("app.env", "development")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("db.path", "lease.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.origins", "")
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.interval", "1h")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		App:   AppConfig{Env: strings.ToLower(v.GetString("app.env"))},
		HTTP:  HTTPConfig{Host: v.GetString("http.host"), Port: v.GetInt("http.port")},
		DB:    DBConfig{Path: v.GetString("db.path")},
		Log:   LogConfig{Level: strings.ToLower(v.GetString("log.level"))},
		CORS:  CORSConfig{Origins: originsOf(v)},
		Audit: AuditConfig{Enabled: v.GetBool("audit.enabled"), Interval: v.GetDuration("audit.interval")},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// originsOf accepts a list in a config file or a comma-separated string in
// the environment.
func originsOf(v *viper.Viper) []string {
	switch v.Get("cors.origins").(type) {
	case []any, []string:
		return parseList(strings.Join(v.GetStringSlice("cors.origins"), ","))
	default:
		return parseList(v.GetString("cors.origins"))
	}
}

func validate(cfg *Config) error {
	switch cfg.App.Env {
	case "development", "test", "production":
	default:
		return fmt.Errorf("app.env must be development, test or production, got %q", cfg.App.Env)
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", cfg.HTTP.Port)
	}
	if cfg.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Audit.Enabled && cfg.Audit.Interval <= 0 {
		return fmt.Errorf("audit.interval must be positive, got %s", cfg.Audit.Interval)
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
