package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/tabletime/internal/config"
	"github.com/goodtune/tabletime/internal/console"
	"github.com/goodtune/tabletime/internal/session"
	"github.com/goodtune/tabletime/internal/tracker"
	"github.com/goodtune/tabletime/internal/workbook"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	showList bool
)

var showCmd = &cobra.Command{
	Use:   "show [DATE]",
	Short: "Print a day's tab from the workbook",
	Long: `Print the sessions recorded for one business day (YYYY-MM-DD). Without a
date the current business day is shown. With --list the recorded days are
listed instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
	Example: `  # Show today's tab
  tabletime show

  # Show a past day
  tabletime show 2026-10-17

  # List recorded days
  tabletime show --list`,
}

func init() {
	showCmd.Flags().BoolVar(&showList, "list", false, "List the days recorded in the workbook")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Reading never touches the tracker, so logging stays quiet
	wb := openWorkbook(cfg, zerolog.Nop())

	if showList {
		days, err := wb.Days()
		if err != nil {
			return fmt.Errorf("failed to read workbook: %w", err)
		}
		for _, day := range days {
			fmt.Println(day)
		}
		return nil
	}

	day, err := showDay(cfg, args)
	if err != nil {
		return err
	}

	sessions, err := wb.ReadDay(day)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", day, err)
	}

	printDay(wb.Path(), day, sessions, cfg.Location())
	return nil
}

// showDay returns the requested day, defaulting to the current business day
func showDay(cfg *config.Config, args []string) (string, error) {
	if len(args) == 1 {
		if _, err := time.Parse(workbook.DayLayout, args[0]); err != nil {
			return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", args[0])
		}
		return args[0], nil
	}

	resetTime, err := tracker.ParseResetTime(cfg.Day.ResetTime)
	if err != nil {
		return "", fmt.Errorf("invalid reset time: %w", err)
	}
	return tracker.BusinessDay(time.Now(), resetTime, cfg.Location()), nil
}

// printDay prints a day's tab with colors
func printDay(path, day string, sessions []session.Session, loc *time.Location) {
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Printf("BUSINESS DAY %s\n", day)
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Workbook:   %s\n", path)
	fmt.Printf("Tables:     %d\n", len(sessions))
	fmt.Println()

	console.RenderSessions(os.Stdout, sessions, loc)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
}
