package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/printer"
	"github.com/platewise/platewise/pkg/foodlog"
)

var removeCmd = &cobra.Command{
	Use:   "remove <entry-id>",
	Short: "Remove a confirmed food entry",
	Long: `Delete a confirmed entry from the log and its day index. Other
clients pick the change up on their next refresh.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := newStore()
	if err != nil {
		return printer.Error("Cannot open store", err.Error(), nil)
	}
	defer store.Close()

	if err := store.RemoveFood(ctx, args[0]); err != nil {
		if foodlog.IsNotFound(err) {
			return printer.Error("Entry not found", "No entry with id "+args[0], []string{
				"List today's entries with 'platewise day' to find the id",
			})
		}
		return printer.Error("Cannot remove entry", err.Error(), nil)
	}

	printer.Success("Removed %s\n", args[0])
	return nil
}
