package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tabletime",
	Short: "tabletime - billiard table session timer and billing",
	Long: `tabletime tracks play time on a fixed set of billiard tables, computes
hourly fees when a table is stopped, and records every business day as a tab
in a single Excel workbook.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to console command when no subcommand is provided
		return runConsole(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tabletime.yaml", "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
