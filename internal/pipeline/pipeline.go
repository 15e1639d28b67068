// Package pipeline is the top-level orchestration surface: recognized
// candidates go in, a running confirmation flow comes out. It wires the
// ingestion router, the nutrition resolver, the serving normalizer, and
// the confirmation machine together.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/platewise/platewise/internal/confirm"
	"github.com/platewise/platewise/internal/ingest"
	"github.com/platewise/platewise/internal/resolver"
	"github.com/platewise/platewise/internal/serving"
	"github.com/platewise/platewise/pkg/foodlog"
)

// Pipeline drives one user's logging flow end to end.
type Pipeline struct {
	router     *ingest.Router
	resolver   *resolver.Resolver
	normalizer *serving.Normalizer
	machine    *confirm.Machine
	barcodes   resolver.BarcodeLookup // optional
}

// New assembles a pipeline. barcodes may be nil when no barcode
// database is configured.
func New(r *resolver.Resolver, n *serving.Normalizer, m *confirm.Machine, barcodes resolver.BarcodeLookup) *Pipeline {
	return &Pipeline{
		router:     ingest.NewRouter(),
		resolver:   r,
		normalizer: n,
		machine:    m,
		barcodes:   barcodes,
	}
}

// Machine exposes the confirmation machine for confirm/skip/cancel and
// state observation.
func (p *Pipeline) Machine() *confirm.Machine {
	return p.machine
}

// RouteRecognizedItems takes one batch of recognition candidates and
// starts the confirmation flow for it.
//
// For manual-like input the flow opens immediately on skeleton entries
// and each item is enriched in the background; results landing after a
// cancel or a newer batch are dropped by generation. For everything
// else, resolution and normalization run concurrently across items and
// the flow opens only when all of them are ready.
func (p *Pipeline) RouteRecognizedItems(ctx context.Context, candidates []foodlog.CandidateItem, sourceHint foodlog.Source) (*ingest.Routed, error) {
	routed, err := p.router.Route(candidates, sourceHint)
	if err != nil {
		return nil, err
	}

	if routed.ForceConfirm {
		generation, err := p.machine.Begin(ctx, skeletons(routed.Items))
		if err != nil {
			return nil, err
		}
		for i, item := range routed.Items {
			go func(index int, c foodlog.CandidateItem) {
				entry := p.prepare(ctx, c)
				p.machine.ApplyResolution(generation, index, entry)
			}(i, item)
		}
		return routed, nil
	}

	entries := make([]foodlog.NormalizedFoodEntry, len(routed.Items))
	var wg sync.WaitGroup
	for i, item := range routed.Items {
		wg.Add(1)
		go func(index int, c foodlog.CandidateItem) {
			defer wg.Done()
			entries[index] = p.prepare(ctx, c)
		}(i, item)
	}
	wg.Wait()

	if _, err := p.machine.Begin(ctx, entries); err != nil {
		return nil, err
	}
	return routed, nil
}

// ConfirmCurrentItem persists the item under confirmation, with
// optional user edits, and advances the flow.
func (p *Pipeline) ConfirmCurrentItem(edited *foodlog.NormalizedFoodEntry) error {
	return p.machine.Confirm(edited)
}

// SkipCurrentItem advances past the item without logging it.
func (p *Pipeline) SkipCurrentItem() error {
	return p.machine.Skip()
}

// CancelAll aborts the whole flow from any state.
func (p *Pipeline) CancelAll() {
	p.machine.Cancel()
}

// prepare resolves and normalizes one candidate into a queue entry.
func (p *Pipeline) prepare(ctx context.Context, c foodlog.CandidateItem) foodlog.NormalizedFoodEntry {
	query := resolver.Query{
		Name:    c.Name,
		OCRText: c.OCRText,
		Barcode: c.Barcode,
	}

	var declaredServing float64
	if c.Barcode != "" && p.barcodes != nil {
		if product, err := p.barcodes.LookupProduct(ctx, c.Barcode); err != nil {
			logEvent("barcode_lookup_failed", map[string]interface{}{
				"barcode": c.Barcode,
				"error":   err.Error(),
			})
		} else if product != nil {
			declaredServing = product.ServingGrams
			if query.Name == "" {
				query.Name = product.Name
			}
		}
	}

	resolved := p.resolver.Resolve(ctx, query)
	normalized := p.normalizer.Normalize(c.Name, c.RawQuantityText, resolved.Nutrition, declaredServing)

	resolved.Nutrition = normalized.Nutrition
	return foodlog.NormalizedFoodEntry{
		Candidate:    c,
		Resolved:     resolved,
		ServingGrams: normalized.ServingGrams,
		DisplayName:  normalized.Title,
		ServingDebug: fmt.Sprintf("%s factor=%.2f grams=%.0f", normalized.Debug.Source, normalized.Debug.Factor, normalized.Debug.Grams),
	}
}

// skeletons builds placeholder entries so the flow can open before
// enrichment completes.
func skeletons(items []foodlog.CandidateItem) []foodlog.NormalizedFoodEntry {
	entries := make([]foodlog.NormalizedFoodEntry, len(items))
	for i, c := range items {
		entries[i] = foodlog.NormalizedFoodEntry{
			Candidate:   c,
			DisplayName: c.Name,
			Resolved: foodlog.ResolvedNutrition{
				SourceLabel: "pending",
			},
		}
	}
	return entries
}

// logEvent logs a structured event in JSON format.
func logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "pipeline"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Pipeline] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
