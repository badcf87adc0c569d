package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/tabletime/internal/config"
	"github.com/goodtune/tabletime/internal/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal [DATE]",
	Short: "Print table events recorded in the Redis journal",
	Long: `Print the start, pause, stop and rollover events journaled for a business
day (YYYY-MM-DD). Without a date the days still held in Redis are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is disabled (set journal.enabled in %s)", configPath)
	}

	j, err := journal.Open(cfg.Journal.Redis, cfg.Journal.RetentionDays)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer func() { _ = j.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(args) == 0 {
		days, err := j.Days(ctx)
		if err != nil {
			return fmt.Errorf("failed to list journal days: %w", err)
		}
		for _, day := range days {
			fmt.Println(day)
		}
		return nil
	}

	events, err := j.List(ctx, args[0])
	if errors.Is(err, journal.ErrNotFound) {
		fmt.Printf("No events recorded for %s\n", args[0])
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	printEvents(events, cfg.Location())
	return nil
}

// printEvents prints one line per event, oldest first
func printEvents(events []journal.Event, loc *time.Location) {
	colors := map[journal.EventType]*color.Color{
		journal.EventStart:    color.New(color.FgGreen, color.Bold),
		journal.EventPause:    color.New(color.FgYellow, color.Bold),
		journal.EventStop:     color.New(color.FgCyan, color.Bold),
		journal.EventRollover: color.New(color.FgMagenta),
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTABLE\tPLAYER\tRATE\tELAPSED\tFEES\tEVENT")
	for _, e := range events {
		table := "-"
		if e.Table > 0 {
			table = fmt.Sprintf("%d", e.Table)
		}
		label := string(e.Type)
		if c, ok := colors[e.Type]; ok {
			label = c.Sprint(label)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.At.In(loc).Format("15:04:05"),
			table,
			e.Player,
			e.HourlyRate,
			e.ElapsedSeconds,
			e.TotalFees,
			label,
		)
	}
	_ = tw.Flush()
}
