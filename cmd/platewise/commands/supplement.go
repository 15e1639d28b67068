package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/printer"
	"github.com/platewise/platewise/pkg/foodlog"
)

var (
	supplementDose float64
	supplementUnit string
	supplementFreq string
)

var supplementCmd = &cobra.Command{
	Use:   "supplement <name>",
	Short: "Log a supplement",
	Args:  cobra.ExactArgs(1),
	RunE:  runSupplement,
}

func init() {
	supplementCmd.Flags().Float64Var(&supplementDose, "dose", 1, "Dosage amount")
	supplementCmd.Flags().StringVar(&supplementUnit, "unit", "capsule", "Dosage unit (mg, g, capsule, ...)")
	supplementCmd.Flags().StringVar(&supplementFreq, "frequency", "", "How often it is taken")
	rootCmd.AddCommand(supplementCmd)
}

func runSupplement(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := newStore()
	if err != nil {
		return printer.Error("Cannot open store", err.Error(), nil)
	}
	defer store.Close()

	entry := &foodlog.SupplementEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      args[0],
		Dosage:    supplementDose,
		Unit:      supplementUnit,
		Frequency: supplementFreq,
		CreatedAt: time.Now(),
	}

	if err := store.SaveSupplement(ctx, entry); err != nil {
		return printer.Error("Cannot save supplement", err.Error(), nil)
	}

	printer.Success("%s  %g %s\n", entry.Name, entry.Dosage, entry.Unit)
	return nil
}
