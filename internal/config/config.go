package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Tables   TablesConfig   `mapstructure:"tables"`
	Workbook WorkbookConfig `mapstructure:"workbook"`
	Timer    TimerConfig    `mapstructure:"timer"`
	Day      DayConfig      `mapstructure:"day"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// TablesConfig defines the physical tables
type TablesConfig struct {
	Count             int    `mapstructure:"count"`
	DefaultHourlyRate string `mapstructure:"default_hourly_rate"` // decimal string, e.g. "200"
}

// WorkbookConfig defines where day-tabs are persisted
type WorkbookConfig struct {
	Path             string `mapstructure:"path"`
	HistoryCacheSize int    `mapstructure:"history_cache_size"`
	SaveOnExit       bool   `mapstructure:"save_on_exit"` // otherwise only stop and rollover write
}

// TimerConfig defines tick behaviour
type TimerConfig struct {
	Interval string `mapstructure:"interval"`
	Mode     string `mapstructure:"mode"` // "wallclock" or "fixed"
}

// DayConfig defines the business day boundary
type DayConfig struct {
	ResetTime string `mapstructure:"reset_time"` // HH:MM
	Timezone  string `mapstructure:"timezone"`   // IANA name or "Local"
}

// JournalConfig defines the optional event journal
type JournalConfig struct {
	Enabled       bool        `mapstructure:"enabled"`
	RetentionDays int         `mapstructure:"retention_days"`
	Redis         RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig defines the metrics endpoint
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("TABLETIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration produced by defaults alone
func Defaults() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Table defaults
	v.SetDefault("tables.count", 5)
	v.SetDefault("tables.default_hourly_rate", "200")

	// Workbook defaults
	v.SetDefault("workbook.path", "KingsTableSessions.xlsx")
	v.SetDefault("workbook.history_cache_size", 32)
	v.SetDefault("workbook.save_on_exit", false)

	// Timer defaults
	v.SetDefault("timer.interval", "1s")
	v.SetDefault("timer.mode", "wallclock")

	// Day defaults
	v.SetDefault("day.reset_time", "00:00")
	v.SetDefault("day.timezone", "Local")

	// Journal defaults
	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.retention_days", 90)
	v.SetDefault("journal.redis.host", "localhost")
	v.SetDefault("journal.redis.port", 6379)
	v.SetDefault("journal.redis.password", "")
	v.SetDefault("journal.redis.db", 0)
	v.SetDefault("journal.redis.dial_timeout", "5s")
	v.SetDefault("journal.redis.read_timeout", "3s")
	v.SetDefault("journal.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.bind_address", "127.0.0.1:9090")
}

// KnownKeys returns every configuration key understood by Load
func KnownKeys() map[string]bool {
	v := viper.New()
	SetDefaults(v)

	keys := make(map[string]bool)
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	return keys
}

// DefaultHourlyRate parses the configured default rate
func (c *Config) DefaultHourlyRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.Tables.DefaultHourlyRate)
	if err != nil {
		return decimal.NewFromInt(200)
	}
	return rate
}

// TimerInterval parses the configured tick interval
func (c *Config) TimerInterval() time.Duration {
	d, err := time.ParseDuration(c.Timer.Interval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// Location resolves the configured business day timezone
func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.Day.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate tables
	if cfg.Tables.Count < 1 {
		return fmt.Errorf("tables.count must be at least 1, got %d", cfg.Tables.Count)
	}
	rate, err := decimal.NewFromString(cfg.Tables.DefaultHourlyRate)
	if err != nil {
		return fmt.Errorf("invalid tables.default_hourly_rate %q: %w", cfg.Tables.DefaultHourlyRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("tables.default_hourly_rate must not be negative: %s", rate)
	}

	// Validate workbook path
	if cfg.Workbook.Path == "" {
		return fmt.Errorf("workbook path is required")
	}

	// Validate timer
	if d, err := time.ParseDuration(cfg.Timer.Interval); err != nil || d <= 0 {
		return fmt.Errorf("invalid timer.interval: %q", cfg.Timer.Interval)
	}
	switch cfg.Timer.Mode {
	case "wallclock", "fixed":
	default:
		return fmt.Errorf("invalid timer.mode %q (must be wallclock or fixed)", cfg.Timer.Mode)
	}

	// Validate day boundary
	if _, err := time.Parse("15:04", cfg.Day.ResetTime); err != nil {
		return fmt.Errorf("invalid day.reset_time %q (expected HH:MM)", cfg.Day.ResetTime)
	}
	if _, err := loadLocation(cfg.Day.Timezone); err != nil {
		return fmt.Errorf("invalid day.timezone %q: %w", cfg.Day.Timezone, err)
	}

	// Validate journal
	if cfg.Journal.Enabled {
		if cfg.Journal.Redis.Host == "" {
			return fmt.Errorf("journal.redis.host is required when the journal is enabled")
		}
		for name, value := range map[string]string{
			"dial_timeout":  cfg.Journal.Redis.DialTimeout,
			"read_timeout":  cfg.Journal.Redis.ReadTimeout,
			"write_timeout": cfg.Journal.Redis.WriteTimeout,
		} {
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid journal.redis.%s: %q", name, value)
			}
		}
	}

	// Ensure workbook directory exists
	workbookDir := filepath.Dir(cfg.Workbook.Path)
	if err := os.MkdirAll(workbookDir, 0755); err != nil {
		return fmt.Errorf("failed to create workbook directory: %w", err)
	}

	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	// SetConfigFile bypasses the search path, so a missing file surfaces as
	// a plain filesystem error
	return os.IsNotExist(err)
}
