package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"creditline"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"creditline"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"creditline"`

	// JWT
	JWTSecret         string `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTPartnerExpiry  string `env:"JWT_PARTNER_EXPIRY" envDefault:"12h"`
	JWTCustomerExpiry string `env:"JWT_CUSTOMER_EXPIRY" envDefault:"24h"`
	JWTAdminExpiry    string `env:"JWT_ADMIN_EXPIRY" envDefault:"8h"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3200"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Upstream credit-issuing provider
	UpstreamBaseURL     string        `env:"UPSTREAM_BASE_URL" envDefault:"https://api.payniverse.example"`
	UpstreamUsername    string        `env:"UPSTREAM_USERNAME"`
	UpstreamPassword    string        `env:"UPSTREAM_PASSWORD"`
	UpstreamCallbackURL string        `env:"UPSTREAM_CALLBACK_URL"`
	UpstreamTimeout     time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"20s"`

	// Slip verification providers, in fallback priority order
	OpenSlipBaseURL string        `env:"OPENSLIP_BASE_URL" envDefault:"https://api.openslip.example"`
	OpenSlipAPIKey  string        `env:"OPENSLIP_API_KEY"`
	SlipSureBaseURL string        `env:"SLIPSURE_BASE_URL" envDefault:"https://api.slipsure.example"`
	SlipSureAPIKey  string        `env:"SLIPSURE_API_KEY"`
	SlipTimeout     time.Duration `env:"SLIP_TIMEOUT" envDefault:"15s"`

	// Receiver names accepted on incoming slips, comma separated.
	// OCR output is fuzzy, so several truncated variants are normal.
	MerchantNames string `env:"MERCHANT_NAMES" envDefault:"CREDITLINE CO LTD,CREDITLINE CO"`

	// Saga tuning
	CompensateMaxAttempts int           `env:"COMPENSATE_MAX_ATTEMPTS" envDefault:"5"`
	CompensateBackoff     time.Duration `env:"COMPENSATE_BACKOFF" envDefault:"200ms"`
	PendingSweepAge       time.Duration `env:"PENDING_SWEEP_AGE" envDefault:"10m"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	if c.UpstreamUsername == "" || c.UpstreamPassword == "" {
		return fmt.Errorf("UPSTREAM_USERNAME and UPSTREAM_PASSWORD are required")
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// MerchantNameVariants splits the configured receiver allow-list.
func (c *Config) MerchantNameVariants() []string {
	var out []string
	for _, v := range strings.Split(c.MerchantNames, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
