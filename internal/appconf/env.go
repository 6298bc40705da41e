package appconf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the given .env files into the process environment. Missing files are
// ignored; variables already set win over file values.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// FromEnv builds a Config from environment variables, filling in defaults for unset ones.
// getenv is usually os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:                    4000,
		Env:                     EnvFlagToEnvironment(getenvDefault(getenv, "APP_ENV", "development")),
		ApiKeys:                 ParseAPIKeys(getenvDefault(getenv, "API_KEYS", "test")),
		RateLimit:               100,
		BackendURL:              getenvDefault(getenv, "BACKEND_URL", "http://127.0.0.1:8080"),
		BackendToken:            getenv("BACKEND_TOKEN"),
		BackendTimeout:          15 * time.Second,
		PageSize:                50,
		GeometryFile:            getenv("GEOMETRY_FILE"),
		GeometryURL:             getenv("GEOMETRY_URL"),
		GeometryDSN:             getenv("GEOMETRY_DSN"),
		GeometryRefreshInterval: 0,
		NATSURL:                 getenv("NATS_URL"),
		SessionIdleTTL:          30 * time.Minute,
		Location:                time.Local,
	}

	var err error
	if cfg.Port, err = intVar(getenv, "PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = intVar(getenv, "RATE_LIMIT", cfg.RateLimit); err != nil {
		return Config{}, err
	}
	if cfg.PageSize, err = intVar(getenv, "PAGE_SIZE", cfg.PageSize); err != nil {
		return Config{}, err
	}
	if cfg.BackendTimeout, err = durationVar(getenv, "BACKEND_TIMEOUT", cfg.BackendTimeout); err != nil {
		return Config{}, err
	}
	if cfg.GeometryRefreshInterval, err = durationVar(getenv, "GEOMETRY_REFRESH_INTERVAL", cfg.GeometryRefreshInterval); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTTL, err = durationVar(getenv, "SESSION_IDLE_TTL", cfg.SessionIdleTTL); err != nil {
		return Config{}, err
	}

	if tz := getenv("TZ"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TZ: %w", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.BackendURL == "" {
		return fmt.Errorf("backend URL is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	sources := 0
	for _, s := range []string{c.GeometryFile, c.GeometryURL, c.GeometryDSN} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("set only one of geometry file, URL or DSN")
	}
	return nil
}

func getenvDefault(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

// durationVar accepts Go durations ("90s") and bare seconds ("90").
func durationVar(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
