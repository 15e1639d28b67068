package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/journal"
	"github.com/platewise/platewise/internal/printer"
)

var replayJournalPath string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay journaled entries to the store",
	Long: `Push entries from the local fallback journal to the store, oldest
first. Entries that failed to persist while the store was unreachable
land in the journal; run this once it is back.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayJournalPath, "journal", "", "Journal path (overrides the configured one)")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return printer.Error("Invalid configuration", err.Error(), nil)
	}

	path := cfg.Journal.Path
	if replayJournalPath != "" {
		path = replayJournalPath
	}
	if path == "" {
		return printer.Error("No journal configured",
			"Set journal.path in platewise.yml or pass --journal", nil)
	}

	j, err := journal.Open(path)
	if err != nil {
		return printer.Error("Cannot open journal", err.Error(), nil)
	}
	defer j.Close()

	store, err := newStore()
	if err != nil {
		return printer.Error("Cannot open store", err.Error(), nil)
	}
	defer store.Close()

	replayed, err := j.Replay(ctx, store)
	if err != nil {
		return printer.ErrorWithContext("Replay interrupted", err.Error(), map[string]string{
			"Replayed": fmt.Sprintf("%d entries", replayed),
		}, []string{
			"Fix the store connection and run replay again; finished entries are not repeated",
		})
	}

	if replayed == 0 {
		printer.Info("Journal is empty.\n")
		return nil
	}

	printer.Success("Replayed %d journaled entr%s\n", replayed, plural(replayed, "y", "ies"))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
