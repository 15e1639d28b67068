package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/day"
	"github.com/platewise/platewise/internal/printer"
	"github.com/platewise/platewise/pkg/foodlog"
)

var dayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "Show one day's entries and totals",
	Long: `Show every confirmed food, hydration, and supplement entry for a
calendar day, with the summed totals. Defaults to today.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDay,
}

func init() {
	rootCmd.AddCommand(dayCmd)
}

func runDay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	date := foodlog.DateOf(time.Now())
	if len(args) == 1 {
		parsed, err := time.ParseInLocation("2006-01-02", args[0], time.Local)
		if err != nil {
			return printer.Error("Invalid date", err.Error(), []string{
				"Use the YYYY-MM-DD form, e.g. 2026-08-30",
			})
		}
		date = foodlog.DateOf(parsed)
	}

	cfg, err := loadConfig()
	if err != nil {
		return printer.Error("Invalid configuration", err.Error(), nil)
	}

	store, err := newStore()
	if err != nil {
		return printer.Error("Cannot open store", err.Error(), nil)
	}
	defer store.Close()

	agg := day.NewAggregator(store, date, cfg.Sync.DedupWindow())
	if err := agg.Refresh(ctx); err != nil {
		return printer.Error("Cannot load day", err.Error(), []string{
			"Check that Redis is reachable at " + redisAddr,
		})
	}

	printer.Day(agg.Aggregate())
	return nil
}
