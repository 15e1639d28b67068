package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/day"
	"github.com/platewise/platewise/internal/printer"
	"github.com/platewise/platewise/pkg/foodlog"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow today's totals as entries arrive",
	Long: `Subscribe to the session's change feed and reprint today's totals
whenever any client logs an entry. Reconnects automatically with
exponential backoff if the feed drops. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return printer.Error("Invalid configuration", err.Error(), nil)
	}

	store, err := newStore()
	if err != nil {
		return printer.Error("Cannot open store", err.Error(), nil)
	}
	defer store.Close()

	agg := day.NewAggregator(store, foodlog.DateOf(time.Now()), cfg.Sync.DedupWindow())
	agg.AddListener(func(snapshot foodlog.DailyAggregate) {
		printer.Totals(snapshot.Totals)
	})

	engine := day.NewSyncEngine(store, agg, cfg.Sync)
	if err := engine.Start(ctx); err != nil {
		return printer.Error("Cannot start sync", err.Error(), nil)
	}
	defer engine.Stop()

	printer.Step("Watching %s (session %s). Ctrl-C to stop.\n", agg.Date(), session)

	<-ctx.Done()
	printer.Println()
	printer.Info("Stopped.\n")
	return nil
}
