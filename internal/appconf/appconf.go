package appconf

import (
	"strings"
	"time"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps the -env flag value to an Environment.
// Unknown values fall back to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "test":
		return Test
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

// Config holds the settings shared by the HTTP layer and the dashboard services.
type Config struct {
	Port      int
	Env       Environment
	ApiKeys   []string
	RateLimit int

	BackendURL     string
	BackendToken   string
	BackendTimeout time.Duration
	PageSize       int

	GeometryFile            string
	GeometryURL             string
	GeometryDSN             string
	GeometryRefreshInterval time.Duration

	NATSURL        string
	SessionIdleTTL time.Duration
	Location       *time.Location
}

// ParseAPIKeys splits a comma separated key list, dropping blanks.
func ParseAPIKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
