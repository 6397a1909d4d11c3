package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service. It is loaded once at
// startup and handed to components by value.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	EventsSubject    string
	JWTSecret        string
	JWTExpires       time.Duration
	GoogleClientID   string
	BootstrapEmail   string
	BootstrapName    string
	CacheTTL         time.Duration
	LoginRateLimit   int
	LoginRateWindow  time.Duration
	AllowedOrigins   string
	RequestLogPrefix string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsDevelopment reports whether the service runs with development defaults.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LABEVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "Lab Evaluation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.url", "sqlite://dev.db")
	v.SetDefault("events.subject", "labeval.evaluations")
	v.SetDefault("jwt.expires", "60m")
	v.SetDefault("bootstrap.admin_name", "Admin")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("login.rate_window", "1m")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("http.log_prefix", "/api/v1")

	jwtExpires, err := parseDuration(v, "jwt.expires")
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := parseDuration(v, "cache.ttl")
	if err != nil {
		return Config{}, err
	}

	rateWindow, err := parseDuration(v, "login.rate_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventsSubject:    v.GetString("events.subject"),
		JWTSecret:        v.GetString("jwt.secret"),
		JWTExpires:       jwtExpires,
		GoogleClientID:   v.GetString("google.client_id"),
		BootstrapEmail:   strings.ToLower(strings.TrimSpace(v.GetString("bootstrap.admin_email"))),
		BootstrapName:    v.GetString("bootstrap.admin_name"),
		CacheTTL:         cacheTTL,
		LoginRateLimit:   v.GetInt("login.rate_limit"),
		LoginRateWindow:  rateWindow,
		AllowedOrigins:   v.GetString("cors.origins"),
		RequestLogPrefix: v.GetString("http.log_prefix"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.GoogleClientID == "" {
		return Config{}, fmt.Errorf("google client id must be provided")
	}

	if cfg.JWTExpires <= 0 {
		return Config{}, fmt.Errorf("jwt expiry must be positive")
	}

	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}
