package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/aussiebroadwan/taskboard/pkg/httpx"
)

// EnvPrefix is prepended to every configuration variable.
const EnvPrefix = "TASKBOARD_"

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`

	Env       string `env:"ENV"        envDefault:"dev"`  // dev, staging, prod
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"` // debug, info, warn, error
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json, text

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	// DBDSN is a file path for sqlite and a connection URL for postgres.
	DBDSN string `env:"DB_DSN" envDefault:"taskboard.db"`

	// JWTSecret is required; the process refuses to start without it.
	JWTSecret   string        `env:"JWT_SECRET,unset"`
	JWTIssuer   string        `env:"JWT_ISSUER"        envDefault:"taskboard"`
	JWTAudience []string      `env:"JWT_AUDIENCE"      envDefault:"taskboard" envSeparator:","`
	AccessTTL   time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"60m"`
	RefreshTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	PepperPath string `env:"PEPPER_PATH" envDefault:"pepper"`

	SeedAdmin     bool   `env:"SEED_ADMIN"     envDefault:"true"`
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	// AdminPassword is generated and logged on first start when empty.
	AdminPassword string `env:"ADMIN_PASSWORD,unset"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL"  envDefault:"1h"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	CredentialsLimit httpx.RateLimitConfig `envPrefix:"RATE_CREDENTIALS_"`
	APILimit         httpx.RateLimitConfig `envPrefix:"RATE_API_"`
}

// LoadConfig reads the configuration from TASKBOARD_* environment
// variables. Rate limits not set in the environment keep their defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		CredentialsLimit: httpx.StrictLimit,
		APILimit:         httpx.ModerateLimit,
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.DBDriver) {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported %sDB_DRIVER %q", EnvPrefix, c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("%sDB_DSN is required", EnvPrefix)
	}
	if !c.CredentialsLimit.Valid() {
		return fmt.Errorf("invalid %sRATE_CREDENTIALS_* settings", EnvPrefix)
	}
	if !c.APILimit.Valid() {
		return fmt.Errorf("invalid %sRATE_API_* settings", EnvPrefix)
	}
	return nil
}
