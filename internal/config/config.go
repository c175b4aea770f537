package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Completeness CompletenessConfig `mapstructure:"completeness"`
	Validation   ValidationConfig   `mapstructure:"validation"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	HTTPPort     int `mapstructure:"http_port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	IdleTimeout  int `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	MigrationsPath  string `mapstructure:"migrations_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// CompletenessConfig represents completeness recomputation configuration
type CompletenessConfig struct {
	EntityTypes    []string      `mapstructure:"entity_types"`
	BatchPageSize  int           `mapstructure:"batch_page_size"`
	BatchWorkers   int           `mapstructure:"batch_workers"`
	ConfigCacheTTL time.Duration `mapstructure:"config_cache_ttl"`
}

// ValidationConfig represents business rule validation configuration
type ValidationConfig struct {
	SeedDefaults bool          `mapstructure:"seed_defaults"`
	RuleCacheTTL time.Duration `mapstructure:"rule_cache_ttl"`
}

// SchedulerConfig represents scheduled task configuration
type SchedulerConfig struct {
	RecomputeEnabled  bool   `mapstructure:"recompute_enabled"`
	RecomputeSchedule string `mapstructure:"recompute_schedule"`
}

// MonitoringConfig represents monitoring configuration
type MonitoringConfig struct {
	MetricsEnabled  bool   `mapstructure:"metrics_enabled"`
	HealthCheckPath string `mapstructure:"health_check_path"`
	LogLevel        string `mapstructure:"log_level"`
}

// Load loads configuration from file and environment
func Load() (Config, error) {
	var config Config

	// Set default values
	viper.SetDefault("environment", "development")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 30)

	viper.SetDefault("database.migrations_path", "file://migrations")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", 300)

	viper.SetDefault("completeness.entity_types", []string{"User", "Guest", "Vendor"})
	viper.SetDefault("completeness.batch_page_size", 500)
	viper.SetDefault("completeness.batch_workers", 4)
	viper.SetDefault("completeness.config_cache_ttl", "5m")

	viper.SetDefault("validation.seed_defaults", true)
	viper.SetDefault("validation.rule_cache_ttl", "1m")

	viper.SetDefault("scheduler.recompute_enabled", true)
	viper.SetDefault("scheduler.recompute_schedule", "0 3 * * *")

	viper.SetDefault("monitoring.metrics_enabled", true)
	viper.SetDefault("monitoring.health_check_path", "/health")
	viper.SetDefault("monitoring.log_level", "info")

	// Set configuration sources
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/attendant")

	// Enable environment variable binding
	viper.SetEnvPrefix("ATTENDANT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal configuration
	if err := viper.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return config, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config Config) error {
	if config.Server.HTTPPort <= 0 || config.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", config.Server.HTTPPort)
	}

	if config.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if len(config.Completeness.EntityTypes) == 0 {
		return fmt.Errorf("at least one entity type is required")
	}

	if config.Completeness.BatchPageSize <= 0 {
		return fmt.Errorf("batch page size must be positive")
	}

	if config.Completeness.BatchWorkers <= 0 {
		return fmt.Errorf("batch workers must be positive")
	}

	return nil
}

// GetDatabaseURL returns the database connection URL with environment variable substitution
func (c *Config) GetDatabaseURL() string {
	return os.ExpandEnv(c.Database.URL)
}
