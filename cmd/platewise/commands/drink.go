package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/printer"
	"github.com/platewise/platewise/pkg/foodlog"
)

var drinkName string

var drinkCmd = &cobra.Command{
	Use:   "drink <ml>",
	Short: "Log hydration",
	Long: `Log a hydration entry by volume in milliliters. Hydration counts
toward the day's water total, not its macros.`,
	Args: cobra.ExactArgs(1),
	RunE: runDrink,
}

func init() {
	drinkCmd.Flags().StringVar(&drinkName, "name", "Water", "What was drunk")
	rootCmd.AddCommand(drinkCmd)
}

func runDrink(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	volume, err := strconv.ParseFloat(args[0], 64)
	if err != nil || volume <= 0 {
		return printer.Error("Invalid volume", "Volume must be a positive number of milliliters", nil)
	}

	store, err := newStore()
	if err != nil {
		return printer.Error("Cannot open store", err.Error(), nil)
	}
	defer store.Close()

	entry := &foodlog.HydrationEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      drinkName,
		VolumeML:  volume,
		Kind:      foodlog.HydrationWater,
		CreatedAt: time.Now(),
	}

	if err := store.SaveHydration(ctx, entry); err != nil {
		return printer.Error("Cannot save hydration", err.Error(), nil)
	}

	printer.Success("%s  %.0f ml\n", entry.Name, entry.VolumeML)
	return nil
}
