package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"locker-rental-backend/internal/utils"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Lockers   LockersConfig   `yaml:"lockers"`
	Billing   BillingConfig   `yaml:"billing"`
	Lock      LockConfig      `yaml:"lock_controller"`
	Session   SessionConfig   `yaml:"session"`
	Admin     AdminConfig     `yaml:"admin"`
	Email     EmailConfig     `yaml:"email"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings. An empty host
// selects the in-memory registry.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ZoneConfig seeds one zone of lockers: Count lockers named Zone+001..
type ZoneConfig struct {
	Zone  string `yaml:"zone"`
	Count int    `yaml:"count"`
}

type LockersConfig struct {
	Zones        []ZoneConfig `yaml:"zones"`
	OutOfService []string     `yaml:"out_of_service"`
}

// BillingConfig overrides the default rates. Zero values keep the defaults.
type BillingConfig struct {
	RatePerHour          int32   `yaml:"rate_per_hour"`
	OverstayRate         int32   `yaml:"overstay_rate"`
	OverstayBlockMinutes int     `yaml:"overstay_block_minutes"`
	VATRate              float64 `yaml:"vat_rate"`
}

type LockConfig struct {
	Type             string  `yaml:"type"` // "mock"
	ActuationTimeout int     `yaml:"actuation_timeout_ms"`
	FailureRate      float64 `yaml:"failure_rate"`
}

// SessionConfig selects where renter credentials live. "cookie" keeps them
// on the renter's browser; "sqlite" keeps them on the kiosk at Path.
type SessionConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	CookieName string `yaml:"cookie_name"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type AdminConfig struct {
	Username           string `yaml:"username"`
	PasswordHash       string `yaml:"password_hash"`
	JWTSecret          string `yaml:"jwt_secret"`
	TokenExpiryMinutes int    `yaml:"token_expiry_minutes"`
}

type EmailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	Enabled           bool   `yaml:"enabled"`
	OverstayReminders string `yaml:"overstay_reminders"`
	PruneSessions     string `yaml:"prune_sessions"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}

	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	if val := os.Getenv("ADMIN_JWT_SECRET"); val != "" {
		c.Admin.JWTSecret = val
	}
	if val := os.Getenv("ADMIN_PASSWORD_HASH"); val != "" {
		c.Admin.PasswordHash = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendGridAPIKey = val
	}
	if val := os.Getenv("SESSION_DB_PATH"); val != "" {
		c.Session.Path = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host != "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	}

	for _, z := range c.Lockers.Zones {
		if len(z.Zone) != 1 || z.Zone[0] < 'A' || z.Zone[0] > 'Z' {
			return fmt.Errorf("zone must be a single upper-case letter: %q", z.Zone)
		}
		if z.Count <= 0 || z.Count > 999 {
			return fmt.Errorf("zone %s: count must be between 1 and 999", z.Zone)
		}
	}
	if len(c.Lockers.Zones) == 0 {
		c.Lockers.Zones = []ZoneConfig{{Zone: "A", Count: 20}, {Zone: "B", Count: 100}, {Zone: "C", Count: 20}}
	}

	if c.Billing.RatePerHour < 0 || c.Billing.OverstayRate < 0 || c.Billing.VATRate < 0 {
		return fmt.Errorf("billing rates must not be negative")
	}

	if c.Admin.JWTSecret == "" {
		return fmt.Errorf("admin JWT secret is required")
	}
	if len(c.Admin.JWTSecret) < 32 {
		return fmt.Errorf("admin JWT secret must be at least 32 characters")
	}
	if c.Admin.Username == "" {
		c.Admin.Username = "admin"
	}
	if c.Admin.TokenExpiryMinutes == 0 {
		c.Admin.TokenExpiryMinutes = 60
	}

	if c.Lock.Type == "" {
		c.Lock.Type = "mock"
	}
	if c.Lock.Type != "mock" {
		return fmt.Errorf("unsupported lock controller type: %s", c.Lock.Type)
	}
	if c.Lock.ActuationTimeout == 0 {
		c.Lock.ActuationTimeout = 5000
	}
	if c.Lock.FailureRate < 0 || c.Lock.FailureRate > 1 {
		return fmt.Errorf("lock controller failure rate must be within [0,1]")
	}

	if c.Session.Backend == "" {
		c.Session.Backend = "cookie"
	}
	if c.Session.Backend != "cookie" && c.Session.Backend != "sqlite" {
		return fmt.Errorf("unsupported session backend: %s", c.Session.Backend)
	}
	if c.Session.Path == "" {
		c.Session.Path = "./data/sessions.db"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "blaaplanet_locker_sessions"
	}
	if c.Session.MaxAgeDays == 0 {
		c.Session.MaxAgeDays = 7
	}

	if c.Email.FromName == "" {
		c.Email.FromName = "Locker Rental"
	}

	if c.Scheduler.OverstayReminders == "" {
		c.Scheduler.OverstayReminders = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.PruneSessions == "" {
		c.Scheduler.PruneSessions = "0 0 3 * * *"
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) ActuationTimeout() time.Duration {
	return time.Duration(c.Lock.ActuationTimeout) * time.Millisecond
}

func (c *Config) AdminTokenExpiry() time.Duration {
	return time.Duration(c.Admin.TokenExpiryMinutes) * time.Minute
}

func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Session.MaxAgeDays) * 24 * time.Hour
}

// Pricing applies the billing overrides to the default policy.
func (c *Config) Pricing() utils.Pricing {
	p := utils.DefaultPricing()
	if c.Billing.RatePerHour > 0 {
		p.RatePerHour = c.Billing.RatePerHour
	}
	if c.Billing.OverstayRate > 0 {
		p.OverstayRate = c.Billing.OverstayRate
	}
	if c.Billing.OverstayBlockMinutes > 0 {
		p.OverstayBlock = time.Duration(c.Billing.OverstayBlockMinutes) * time.Minute
	}
	if c.Billing.VATRate > 0 {
		p.VATRate = c.Billing.VATRate
	}
	return p
}
