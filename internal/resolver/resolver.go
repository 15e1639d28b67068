// Package resolver arbitrates between competing nutrition-data
// providers to produce one authoritative macro set per food name.
//
// Two providers run concurrently for every query: a branded-product
// match and a generic model-based estimate. An ordered decision policy
// picks the winner; when both fail, a deterministic heuristic fallback
// keeps the pipeline moving. The confidence thresholds are policy
// parameters supplied by config, not constants.
package resolver

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/platewise/platewise/internal/config"
	"github.com/platewise/platewise/pkg/foodlog"
)

// Query is one resolution request.
type Query struct {
	Name    string
	OCRText string
	Barcode string
}

// BrandedResult is the outcome of a branded-product lookup.
// Confidence is on the provider's 0..100 scale.
type BrandedResult struct {
	Found       bool
	Confidence  float64
	Nutrition   foodlog.Nutrition
	ProductName string
	BrandName   string
}

// GenericResult is the outcome of a generic model-based estimate.
// Confidence is on the provider's 0..100 scale.
type GenericResult struct {
	Nutrition  foodlog.Nutrition
	Confidence float64
}

// BrandedLookup matches a query against packaged-product data.
type BrandedLookup interface {
	LookupBranded(ctx context.Context, q Query) (*BrandedResult, error)
}

// GenericEstimator estimates macros from a food name alone.
type GenericEstimator interface {
	EstimateGeneric(ctx context.Context, name string) (*GenericResult, error)
}

// Resolver runs both providers concurrently and arbitrates the results.
type Resolver struct {
	branded BrandedLookup
	generic GenericEstimator
	policy  *config.ResolverConfig
}

// New creates a resolver with the given providers and policy.
func New(branded BrandedLookup, generic GenericEstimator, policy *config.ResolverConfig) *Resolver {
	return &Resolver{
		branded: branded,
		generic: generic,
		policy:  policy,
	}
}

// Resolve produces one authoritative macro set for the query.
// Both provider branches run concurrently and are jointly awaited; a
// failure in one never cancels the other. Resolve never returns an
// error for provider failures - the heuristic fallback absorbs them.
func (r *Resolver) Resolve(ctx context.Context, q Query) foodlog.ResolvedNutrition {
	branchCtx, cancel := context.WithTimeout(ctx, r.policy.LookupTimeout())
	defer cancel()

	var (
		wg         sync.WaitGroup
		brandRes   *BrandedResult
		brandErr   error
		genericRes *GenericResult
		genericErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		brandRes, brandErr = r.branded.LookupBranded(branchCtx, q)
	}()
	go func() {
		defer wg.Done()
		genericRes, genericErr = r.generic.EstimateGeneric(branchCtx, q.Name)
	}()
	wg.Wait()

	if brandErr != nil {
		log.Printf("[Resolver] Branded lookup failed for %q: %v", q.Name, brandErr)
		brandRes = nil
	}
	if genericErr != nil {
		log.Printf("[Resolver] Generic estimate failed for %q: %v", q.Name, genericErr)
		genericRes = nil
	}

	in := decisionInput(q, brandRes, genericRes)
	source, reason := Decide(in, r.policy)

	resolved := r.buildResult(q, source, reason, brandRes, genericRes)

	logEvent("nutrition_resolved", map[string]interface{}{
		"name":            q.Name,
		"source":          resolved.SourceLabel,
		"confidence":      resolved.Confidence,
		"decision_reason": resolved.DecisionReason,
	})

	return resolved
}

// SourceChoice identifies the winning provider.
type SourceChoice string

const (
	ChooseBranded  SourceChoice = "branded"
	ChooseGeneric  SourceChoice = "generic"
	ChooseFallback SourceChoice = "hardcoded-fallback"
)

// DecisionInput is the flattened state the ordered policy evaluates.
// Keeping it a plain value type makes the policy a pure function.
type DecisionInput struct {
	HasBarcode        bool
	BrandFound        bool
	BrandConfidence   float64 // 0..100
	GenericFound      bool
	GenericConfidence float64 // 0..100
	NameConflict      bool
}

func decisionInput(q Query, b *BrandedResult, g *GenericResult) DecisionInput {
	in := DecisionInput{HasBarcode: q.Barcode != ""}
	if b != nil && b.Found {
		in.BrandFound = true
		in.BrandConfidence = b.Confidence
		in.NameConflict = nameConflict(q.Name, b.ProductName)
	}
	if g != nil {
		in.GenericFound = true
		in.GenericConfidence = g.Confidence
	}
	return in
}

// Decide evaluates the ordered arbitration policy; first match wins.
// It is deterministic given the same input and policy.
func Decide(in DecisionInput, policy *config.ResolverConfig) (SourceChoice, string) {
	// 1. Barcode-backed branded match with very high confidence.
	if in.HasBarcode && in.BrandFound && in.BrandConfidence >= float64(*policy.BarcodeMinConfidence) {
		return ChooseBranded, "barcode-brand-high-confidence"
	}

	// 2. Branded product name shares no token with the queried name:
	// never trust a mismatched brand.
	if in.BrandFound && in.NameConflict {
		if in.GenericFound {
			return ChooseGeneric, "brand-name-conflict"
		}
		return ChooseFallback, "brand-name-conflict-no-generic"
	}

	// 3. Generic failed but the brand match is strong enough to rescue.
	if !in.GenericFound && in.BrandFound && in.BrandConfidence >= float64(*policy.RescueMinConfidence) {
		return ChooseBranded, "brand-rescue-generic-failed"
	}

	// 4. Both found, generic weak, brand very strong.
	if in.GenericFound && in.BrandFound &&
		in.GenericConfidence < float64(*policy.WeakGenericConfidence) &&
		in.BrandConfidence >= float64(*policy.StrongBrandConfidence) {
		return ChooseBranded, "brand-overrides-weak-generic"
	}

	// 5. Default preference: generic.
	if in.GenericFound {
		return ChooseGeneric, "generic-default"
	}

	// 6. Last resort before fallback.
	if in.BrandFound {
		return ChooseBranded, "brand-last-resort"
	}

	// 7. Neither provider produced anything.
	return ChooseFallback, "fallback-both-failed"
}

func (r *Resolver) buildResult(q Query, source SourceChoice, reason string, b *BrandedResult, g *GenericResult) foodlog.ResolvedNutrition {
	switch source {
	case ChooseBranded:
		return foodlog.ResolvedNutrition{
			Nutrition:      b.Nutrition.Sanitize(),
			SourceLabel:    string(ChooseBranded),
			Confidence:     b.Confidence / 100,
			DecisionReason: reason,
			ProductName:    b.ProductName,
			BrandName:      b.BrandName,
		}
	case ChooseGeneric:
		return foodlog.ResolvedNutrition{
			Nutrition:      g.Nutrition.Sanitize(),
			SourceLabel:    string(ChooseGeneric),
			Confidence:     g.Confidence / 100,
			DecisionReason: reason,
		}
	default:
		return fallbackNutrition(q.Name, reason)
	}
}

// nameConflict reports whether the branded product name shares no
// meaningful token with the queried name. Tokens shorter than three
// runes and common filler words are ignored.
func nameConflict(queryName, productName string) bool {
	if strings.TrimSpace(productName) == "" {
		return false
	}

	queryTokens := meaningfulTokens(queryName)
	productTokens := meaningfulTokens(productName)
	if len(queryTokens) == 0 || len(productTokens) == 0 {
		return false
	}

	for tok := range queryTokens {
		if _, ok := productTokens[tok]; ok {
			return false
		}
	}
	return true
}

var fillerWords = map[string]struct{}{
	"the": {}, "and": {}, "with": {}, "for": {}, "from": {},
	"original": {}, "classic": {}, "brand": {},
}

func meaningfulTokens(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if utf8.RuneCountInString(tok) < 3 {
			continue
		}
		if _, filler := fillerWords[tok]; filler {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

// logEvent logs a structured event in JSON format.
func logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "resolver"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Resolver] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
