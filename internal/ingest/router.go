// Package ingest normalizes raw recognition candidates from any
// channel and decides how confirmation opens: immediately for typed or
// transcribed input, gated on completed enrichment for everything else.
package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/platewise/platewise/pkg/foodlog"
)

// Flow selects the confirmation surface for a routed batch.
type Flow string

const (
	// FlowSingleConfirm opens the one-item confirmation directly.
	FlowSingleConfirm Flow = "single-confirm"

	// FlowMultiReview opens the multi-item review list first.
	FlowMultiReview Flow = "multi-review"
)

// Routed is the router's decision for one candidate batch.
type Routed struct {
	Flow  Flow
	Items []foodlog.CandidateItem

	// ForceConfirm means confirmation opens even though enrichment is
	// still incomplete; a skeleton is shown while it continues.
	ForceConfirm bool

	// BypassHydration tells the UI not to block on the slow macro
	// pre-fetch for speech/manual/barcode-sourced single items.
	BypassHydration bool
}

// Router validates and routes candidate batches.
type Router struct{}

// NewRouter creates a Router.
func NewRouter() *Router {
	return &Router{}
}

// Route normalizes raw candidates and decides the confirmation flow.
//
// Manual-like sources (typed text, transcribed speech) force the flow
// open regardless of enrichment state. All other sources pass a guard:
// every candidate must carry a completed-enrichment marker and an
// ingredient list (an empty list is fine, a missing one is not).
func (r *Router) Route(candidates []foodlog.CandidateItem, sourceHint foodlog.Source) (*Routed, error) {
	if err := sourceHint.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", foodlog.ErrValidation, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates to route", foodlog.ErrValidation)
	}

	items := make([]foodlog.CandidateItem, 0, len(candidates))
	for i, c := range candidates {
		normalized, err := normalizeCandidate(c, sourceHint)
		if err != nil {
			// One bad candidate aborts only itself
			log.Printf("[Router] Dropping candidate %d: %v", i, err)
			continue
		}
		items = append(items, normalized)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no valid candidates after normalization", foodlog.ErrValidation)
	}

	forceConfirm := sourceHint.ManualLike()

	if !forceConfirm {
		for _, item := range items {
			if !item.EnrichmentComplete {
				return nil, fmt.Errorf("%w: candidate %q has incomplete enrichment", foodlog.ErrValidation, item.Name)
			}
			if item.IngredientList == nil {
				return nil, fmt.Errorf("%w: candidate %q missing ingredient list", foodlog.ErrValidation, item.Name)
			}
		}
	}

	flow := FlowSingleConfirm
	if len(items) > 1 {
		flow = FlowMultiReview
	}

	bypassHydration := flow == FlowSingleConfirm &&
		(sourceHint == foodlog.SourceVoice || sourceHint == foodlog.SourceManual || sourceHint == foodlog.SourceBarcode)

	routed := &Routed{
		Flow:            flow,
		Items:           items,
		ForceConfirm:    forceConfirm,
		BypassHydration: bypassHydration,
	}

	logEvent("candidates_routed", map[string]interface{}{
		"source":           string(sourceHint),
		"count":            len(items),
		"flow":             string(flow),
		"force_confirm":    forceConfirm,
		"bypass_hydration": bypassHydration,
	})

	return routed, nil
}

// normalizeCandidate trims and validates a single candidate without
// discarding any annotation the channel attached. An explicit
// IsGeneric flag is preserved as-is; a nil one stays nil rather than
// being defaulted.
func normalizeCandidate(c foodlog.CandidateItem, sourceHint foodlog.Source) (foodlog.CandidateItem, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return c, fmt.Errorf("candidate name cannot be empty")
	}

	c.RawQuantityText = strings.TrimSpace(c.RawQuantityText)

	if c.SourceChannel == "" {
		c.SourceChannel = sourceHint
	}
	if err := c.SourceChannel.Validate(); err != nil {
		return c, err
	}

	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}

	return c, nil
}

// logEvent logs a structured event in JSON format.
func logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "ingest"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Router] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
