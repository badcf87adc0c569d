package main

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/tabletime/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the tabletime configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	// Warn about unknown keys
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	// If dump requested, show full configuration with defaults highlighted
	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		dumpConfig(cfg, config.Defaults(), unknownKeys)
	}

	return nil
}

// findUnknownKeys returns keys present in the file that Load does not understand
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	validKeys := config.KnownKeys()

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(cfg, defaultCfg *config.Config, unknownKeys []string) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	// Tables
	_, _ = cyan.Println("\n[tables]")
	dumpField("  count", cfg.Tables.Count, defaultCfg.Tables.Count, yellow, green)
	dumpField("  default_hourly_rate", cfg.Tables.DefaultHourlyRate, defaultCfg.Tables.DefaultHourlyRate, yellow, green)

	// Workbook
	_, _ = cyan.Println("\n[workbook]")
	dumpField("  path", cfg.Workbook.Path, defaultCfg.Workbook.Path, yellow, green)
	dumpField("  history_cache_size", cfg.Workbook.HistoryCacheSize, defaultCfg.Workbook.HistoryCacheSize, yellow, green)
	dumpField("  save_on_exit", cfg.Workbook.SaveOnExit, defaultCfg.Workbook.SaveOnExit, yellow, green)

	// Timer
	_, _ = cyan.Println("\n[timer]")
	dumpField("  interval", cfg.Timer.Interval, defaultCfg.Timer.Interval, yellow, green)
	dumpField("  mode", cfg.Timer.Mode, defaultCfg.Timer.Mode, yellow, green)

	// Day
	_, _ = cyan.Println("\n[day]")
	dumpField("  reset_time", cfg.Day.ResetTime, defaultCfg.Day.ResetTime, yellow, green)
	dumpField("  timezone", cfg.Day.Timezone, defaultCfg.Day.Timezone, yellow, green)

	// Journal
	_, _ = cyan.Println("\n[journal]")
	dumpField("  enabled", cfg.Journal.Enabled, defaultCfg.Journal.Enabled, yellow, green)
	dumpField("  retention_days", cfg.Journal.RetentionDays, defaultCfg.Journal.RetentionDays, yellow, green)
	_, _ = cyan.Println("  [journal.redis]")
	dumpField("    host", cfg.Journal.Redis.Host, defaultCfg.Journal.Redis.Host, yellow, green)
	dumpField("    port", cfg.Journal.Redis.Port, defaultCfg.Journal.Redis.Port, yellow, green)
	dumpField("    password", redactPassword(cfg.Journal.Redis.Password), redactPassword(defaultCfg.Journal.Redis.Password), yellow, green)
	dumpField("    db", cfg.Journal.Redis.DB, defaultCfg.Journal.Redis.DB, yellow, green)
	dumpField("    dial_timeout", cfg.Journal.Redis.DialTimeout, defaultCfg.Journal.Redis.DialTimeout, yellow, green)
	dumpField("    read_timeout", cfg.Journal.Redis.ReadTimeout, defaultCfg.Journal.Redis.ReadTimeout, yellow, green)
	dumpField("    write_timeout", cfg.Journal.Redis.WriteTimeout, defaultCfg.Journal.Redis.WriteTimeout, yellow, green)

	// Logging
	_, _ = cyan.Println("\n[logging]")
	dumpField("  level", cfg.Logging.Level, defaultCfg.Logging.Level, yellow, green)
	dumpField("  format", cfg.Logging.Format, defaultCfg.Logging.Format, yellow, green)

	// Metrics
	_, _ = cyan.Println("\n[metrics]")
	dumpField("  enabled", cfg.Metrics.Enabled, defaultCfg.Metrics.Enabled, yellow, green)
	dumpField("  bind_address", cfg.Metrics.BindAddress, defaultCfg.Metrics.BindAddress, yellow, green)

	// Display unknown keys if any
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)

		_, _ = cyan.Println("\n[UNKNOWN KEYS - These will be ignored!]")
		for _, key := range unknownKeys {
			_, _ = red.Printf("  %s = (unknown key - check for typos)\n", key)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
}

// dumpField prints a field with color if it differs from default
func dumpField(name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	// Deep equal comparison
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Printf("%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Printf("%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
