package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Guacamole GuacamoleConfig
	Guacd     GuacdConfig
	Database  DatabaseConfig
}

// GuacamoleConfig holds Guacamole REST API configuration.
type GuacamoleConfig struct {
	URL        string        `env:"GUACAMOLE_URL"`
	Username   string        `env:"GUACAMOLE_USERNAME"`
	Password   string        `env:"GUACAMOLE_PASSWORD"`
	DataSource string        `env:"GUACAMOLE_DATA_SOURCE"`
	FileShim   string        `env:"GUACAMOLE_FILE_SHIM"` // Path to a JSON directory file (disables real API)
	Timeout    time.Duration `env:"GUACAMOLE_TIMEOUT" envDefault:"30s"`
	Retries    int           `env:"GUACAMOLE_RETRIES" envDefault:"3"`
}

// GuacdConfig holds the guacd settings stamped on created connections.
type GuacdConfig struct {
	Host       string `env:"GUACD_HOST" envDefault:"localhost"`
	Port       int    `env:"GUACD_PORT" envDefault:"4822"`
	Encryption string `env:"GUACD_ENCRYPTION" envDefault:"none"`
}

// DatabaseConfig holds run-history database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"guacimport.db"`
}

// DriverNone disables run history.
const DriverNone = "none"

// Load loads configuration from environment variables, reading a .env file
// in the working directory first when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(&cfg.Guacamole); err != nil {
		return nil, fmt.Errorf("parsing guacamole config: %w", err)
	}
	if err := env.Parse(&cfg.Guacd); err != nil {
		return nil, fmt.Errorf("parsing guacd config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// If using file shim, Guacamole credentials are not required
	if c.Guacamole.FileShim == "" {
		if c.Guacamole.URL == "" {
			return fmt.Errorf("GUACAMOLE_URL is required (or set GUACAMOLE_FILE_SHIM for testing)")
		}
		u, err := url.Parse(c.Guacamole.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("GUACAMOLE_URL must be an absolute URL, got %q", c.Guacamole.URL)
		}
		if c.Guacamole.Username == "" {
			return fmt.Errorf("GUACAMOLE_USERNAME is required (or set GUACAMOLE_FILE_SHIM for testing)")
		}
		if c.Guacamole.Password == "" {
			return fmt.Errorf("GUACAMOLE_PASSWORD is required (or set GUACAMOLE_FILE_SHIM for testing)")
		}
	}

	if c.Guacamole.Timeout <= 0 {
		return fmt.Errorf("GUACAMOLE_TIMEOUT must be positive")
	}
	if c.Guacamole.Retries < 0 {
		return fmt.Errorf("GUACAMOLE_RETRIES must not be negative")
	}

	if c.Guacd.Host == "" {
		return fmt.Errorf("GUACD_HOST is required")
	}
	if c.Guacd.Port < 1 || c.Guacd.Port > 65535 {
		return fmt.Errorf("GUACD_PORT must be between 1 and 65535, got %d", c.Guacd.Port)
	}
	switch c.Guacd.Encryption {
	case "none", "ssl":
	default:
		return fmt.Errorf("GUACD_ENCRYPTION must be none or ssl, got %q", c.Guacd.Encryption)
	}

	switch c.Database.Driver {
	case DriverNone:
	case "sqlite3", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DSN is required when DB_DRIVER is %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3, postgres or none, got %q", c.Database.Driver)
	}

	return nil
}

// UseFileShim returns true if the file shim should be used instead of the real API.
func (c *Config) UseFileShim() bool {
	return c.Guacamole.FileShim != ""
}

// HistoryEnabled reports whether import runs are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.Database.Driver != DriverNone
}
