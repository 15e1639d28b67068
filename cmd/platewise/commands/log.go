package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platewise/platewise/internal/confirm"
	"github.com/platewise/platewise/internal/journal"
	"github.com/platewise/platewise/internal/pipeline"
	"github.com/platewise/platewise/internal/printer"
	"github.com/platewise/platewise/internal/resolver"
	"github.com/platewise/platewise/internal/serving"
	"github.com/platewise/platewise/pkg/foodlog"
)

var (
	logQuantity string
	logSource   string
	logBarcode  string
	logProducts string
)

var logCmd = &cobra.Command{
	Use:   "log <food name>",
	Short: "Log a food through the full confirmation pipeline",
	Long: `Log a food entry. The name and quantity run through nutrition
resolution and serving normalization, then the entry is confirmed and
persisted.

Quantities understand explicit grams ("250g"), countable units
("2 large eggs"), and container words ("2 cups"); with none of those
the per-100g values are logged as-is.

With --barcode the packaged-product catalog is consulted first and its
declared serving size applies.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logQuantity, "quantity", "", "Quantity expression (e.g. \"250g\", \"2 large eggs\")")
	logCmd.Flags().StringVar(&logSource, "source", string(foodlog.SourceManual), "Input channel: manual, voice, photo, barcode")
	logCmd.Flags().StringVar(&logBarcode, "barcode", "", "Scanned barcode digits")
	logCmd.Flags().StringVar(&logProducts, "products", "", "Path to a packaged-product catalog (YAML)")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return printer.Error("Invalid configuration", err.Error(), nil)
	}

	source := foodlog.Source(logSource)
	if logBarcode != "" {
		source = foodlog.SourceBarcode
	}
	if err := source.Validate(); err != nil {
		return printer.Error("Invalid source", err.Error(), []string{
			"Use one of: manual, voice, photo, barcode",
		})
	}

	store, err := newStore()
	if err != nil {
		return printer.Error("Cannot open store", err.Error(), nil)
	}
	defer store.Close()

	var fallback confirm.Journal
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return printer.Error("Cannot open journal", err.Error(), nil)
		}
		defer j.Close()
		fallback = j
	}

	catalog := resolver.NewLocalProducts(nil)
	if logProducts != "" {
		catalog, err = resolver.LoadProducts(logProducts)
		if err != nil {
			return printer.Error("Cannot load product catalog", err.Error(), nil)
		}
	}

	res := resolver.New(catalog, resolver.NewLocalEstimator(), cfg.Resolver)
	machine := confirm.NewMachine(store, fallback, nil, cfg.Confirm, userID)
	p := pipeline.New(res, serving.NewNormalizer(), machine, catalog)

	name := args[0]
	for _, extra := range args[1:] {
		name += " " + extra
	}

	candidate := foodlog.CandidateItem{
		Name:            name,
		RawQuantityText: logQuantity,
		SourceChannel:   source,
		Barcode:         logBarcode,
	}
	if !source.ManualLike() {
		candidate.EnrichmentComplete = true
		candidate.IngredientList = []string{}
	}

	if _, err := p.RouteRecognizedItems(ctx, []foodlog.CandidateItem{candidate}, source); err != nil {
		return printer.Error("Cannot route entry", err.Error(), nil)
	}

	if err := confirmAll(p, cfg.Confirm.PipelineTimeout()); err != nil {
		return printer.Error("Confirmation failed", err.Error(), nil)
	}

	return nil
}

// confirmAll drives the machine until the queue drains, waiting out
// background enrichment for each item.
func confirmAll(p *pipeline.Pipeline, budget time.Duration) error {
	deadline := time.Now().Add(budget)

	for {
		snap := p.Machine().Snapshot()
		switch snap.State {
		case confirm.StateAllComplete:
			return nil

		case confirm.StateConfirming:
			current := snap.Current()
			if current.Resolved.SourceLabel == "pending" {
				if time.Now().After(deadline) {
					p.CancelAll()
					return fmt.Errorf("timed out waiting for nutrition resolution")
				}
				time.Sleep(20 * time.Millisecond)
				continue
			}
			if err := p.ConfirmCurrentItem(nil); err != nil {
				p.CancelAll()
				return err
			}
			printer.Success("%s  %.0f kcal  (%s, %s)\n",
				current.DisplayName,
				current.Resolved.Nutrition.Calories,
				current.Resolved.SourceLabel,
				current.Resolved.DecisionReason,
			)

		case confirm.StateAwaitingNextItem:
			time.Sleep(10 * time.Millisecond)

		default:
			return fmt.Errorf("confirmation ended in state %s", snap.State)
		}
	}
}
