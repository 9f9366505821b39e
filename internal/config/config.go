package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Reporting ReportingConfig
	Alerts    AlertsConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds connection settings and per-store database names.
type MongoDBConfig struct {
	URI         string
	WarehouseDB string
	// SiteDBs maps a site key to a database name override. Sites
	// without an override use inventory_site_<key>.
	SiteDBs map[string]string
}

// ReportingConfig bounds the report aggregator's per-store reads.
type ReportingConfig struct {
	StoreTimeout time.Duration
}

// AlertsConfig holds low-stock sweep settings and the ops webhook.
type AlertsConfig struct {
	LowStockThreshold int
	CronSchedule      string
	WebhookURL        string
}

// Load reads environment variables (optionally from the provided file)
// and materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	storeTimeout, err := time.ParseDuration(getenvWithDefault("REPORT_STORE_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_STORE_TIMEOUT: %w", err)
	}

	threshold, err := strconv.Atoi(getenvWithDefault("LOW_STOCK_THRESHOLD", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOW_STOCK_THRESHOLD: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:         os.Getenv("MONGODB_URI"),
			WarehouseDB: getenvWithDefault("MONGODB_WAREHOUSE_DB", "inventory_warehouse_main"),
			SiteDBs:     siteDBOverrides(),
		},
		Reporting: ReportingConfig{
			StoreTimeout: storeTimeout,
		},
		Alerts: AlertsConfig{
			LowStockThreshold: threshold,
			CronSchedule:      getenvWithDefault("LOW_STOCK_CRON", "0 7 * * *"),
			WebhookURL:        os.Getenv("ALERT_WEBHOOK_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// siteDBOverrides collects MONGODB_SITE_<KEY> variables for the
// registered site stores.
func siteDBOverrides() map[string]string {
	overrides := make(map[string]string)
	for _, key := range []string{"ENAM", "MINFOPRA", "SUPPTIC", "ISMP", "SDP"} {
		if v := os.Getenv("MONGODB_SITE_" + key); v != "" {
			overrides[key] = v
		}
	}
	return overrides
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.MongoDB.WarehouseDB == "" {
		return errors.New("MONGODB_WAREHOUSE_DB must not be empty")
	}

	if c.Reporting.StoreTimeout <= 0 {
		return errors.New("REPORT_STORE_TIMEOUT must be positive")
	}

	if c.Alerts.LowStockThreshold <= 0 {
		return errors.New("LOW_STOCK_THRESHOLD must be positive")
	}

	if c.Alerts.CronSchedule == "" {
		return errors.New("LOW_STOCK_CRON must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
