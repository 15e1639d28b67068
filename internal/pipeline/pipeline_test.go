package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/internal/config"
	"github.com/platewise/platewise/internal/confirm"
	"github.com/platewise/platewise/internal/resolver"
	"github.com/platewise/platewise/internal/serving"
	"github.com/platewise/platewise/pkg/foodlog"
)

type fakeBranded struct {
	result *resolver.BrandedResult
}

func (f *fakeBranded) LookupBranded(ctx context.Context, q resolver.Query) (*resolver.BrandedResult, error) {
	if f.result != nil {
		return f.result, nil
	}
	return &resolver.BrandedResult{Found: false}, nil
}

type fakeGeneric struct {
	calories float64
}

func (f *fakeGeneric) EstimateGeneric(ctx context.Context, name string) (*resolver.GenericResult, error) {
	return &resolver.GenericResult{
		Nutrition:  foodlog.Nutrition{Calories: f.calories, Protein: 10},
		Confidence: 85,
	}, nil
}

type fakeBarcodes struct {
	product *resolver.Product
}

func (f *fakeBarcodes) LookupProduct(ctx context.Context, barcode string) (*resolver.Product, error) {
	return f.product, nil
}

type memoryGateway struct {
	mu    sync.Mutex
	saved []*foodlog.ConfirmedLogEntry
}

func (g *memoryGateway) SaveFood(ctx context.Context, e *foodlog.ConfirmedLogEntry) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved = append(g.saved, e)
	return e.ID, nil
}

func setupTestPipeline(t *testing.T, gateway confirm.Gateway) *Pipeline {
	t.Helper()
	cfg := config.Default()
	res := resolver.New(&fakeBranded{}, &fakeGeneric{calories: 100}, cfg.Resolver)
	machine := confirm.NewMachine(gateway, nil, nil, cfg.Confirm, "user-1")
	return New(res, serving.NewNormalizer(), machine, nil)
}

func photoCandidate(name, quantity string) foodlog.CandidateItem {
	return foodlog.CandidateItem{
		Name:               name,
		RawQuantityText:    quantity,
		SourceChannel:      foodlog.SourcePhoto,
		EnrichmentComplete: true,
		IngredientList:     []string{},
	}
}

func TestRouteRecognizedItems_PhotoBatch(t *testing.T) {
	gateway := &memoryGateway{}
	p := setupTestPipeline(t, gateway)

	routed, err := p.RouteRecognizedItems(context.Background(), []foodlog.CandidateItem{
		photoCandidate("grilled chicken", "250g"),
		photoCandidate("rice", "100g"),
	}, foodlog.SourcePhoto)
	require.NoError(t, err)
	assert.False(t, routed.ForceConfirm)

	// Flow opens only once every item is resolved and normalized
	snap := p.Machine().Snapshot()
	assert.Equal(t, confirm.StateConfirming, snap.State)
	require.Len(t, snap.Queue, 2)
	assert.Equal(t, "Grilled Chicken (250g)", snap.Queue[0].DisplayName)
	assert.Equal(t, 250.0, snap.Queue[0].Resolved.Nutrition.Calories)

	require.NoError(t, p.ConfirmCurrentItem(nil))
	require.NoError(t, p.SkipCurrentItem())

	assert.Equal(t, confirm.StateAllComplete, p.Machine().Snapshot().State)
	require.Len(t, gateway.saved, 1)
	assert.Equal(t, "Grilled Chicken (250g)", gateway.saved[0].Name)
}

func TestRouteRecognizedItems_ManualOpensOnSkeleton(t *testing.T) {
	p := setupTestPipeline(t, &memoryGateway{})

	routed, err := p.RouteRecognizedItems(context.Background(), []foodlog.CandidateItem{
		{Name: "peanut butter toast", SourceChannel: foodlog.SourceManual},
	}, foodlog.SourceManual)
	require.NoError(t, err)
	assert.True(t, routed.ForceConfirm)

	// The flow is already open even if enrichment has not landed yet
	assert.Equal(t, confirm.StateConfirming, p.Machine().Snapshot().State)

	// Enrichment lands in the background
	assert.Eventually(t, func() bool {
		current := p.Machine().Snapshot().Current()
		return current != nil && current.Resolved.SourceLabel != "pending"
	}, 2*time.Second, 10*time.Millisecond)

	current := p.Machine().Snapshot().Current()
	assert.Equal(t, 100.0, current.Resolved.Nutrition.Calories)
}

func TestRouteRecognizedItems_BarcodeDeclaredServing(t *testing.T) {
	gateway := &memoryGateway{}
	cfg := config.Default()
	res := resolver.New(
		&fakeBranded{result: &resolver.BrandedResult{
			Found:       true,
			Confidence:  97,
			Nutrition:   foodlog.Nutrition{Calories: 500, Protein: 20},
			ProductName: "Crunchy Granola",
			BrandName:   "Acme",
		}},
		&fakeGeneric{calories: 400},
		cfg.Resolver,
	)
	machine := confirm.NewMachine(gateway, nil, nil, cfg.Confirm, "user-1")
	barcodes := &fakeBarcodes{product: &resolver.Product{
		Barcode:      "0123456789012",
		Name:         "Crunchy Granola",
		ServingGrams: 45,
	}}
	p := New(res, serving.NewNormalizer(), machine, barcodes)

	_, err := p.RouteRecognizedItems(context.Background(), []foodlog.CandidateItem{
		{
			Name:               "crunchy granola",
			SourceChannel:      foodlog.SourceBarcode,
			Barcode:            "0123456789012",
			EnrichmentComplete: true,
			IngredientList:     []string{},
		},
	}, foodlog.SourceBarcode)
	require.NoError(t, err)

	current := p.Machine().Snapshot().Current()
	require.NotNil(t, current)
	assert.Equal(t, "branded", current.Resolved.SourceLabel)
	// 500 kcal per 100g at the declared 45g serving
	assert.Equal(t, 225.0, current.Resolved.Nutrition.Calories)
	assert.Equal(t, 45.0, current.ServingGrams)
	assert.Equal(t, "barcode-brand-high-confidence", current.Resolved.DecisionReason)
}

func TestCancelAll(t *testing.T) {
	p := setupTestPipeline(t, &memoryGateway{})

	_, err := p.RouteRecognizedItems(context.Background(), []foodlog.CandidateItem{
		photoCandidate("apple", ""),
	}, foodlog.SourcePhoto)
	require.NoError(t, err)

	p.CancelAll()
	assert.Equal(t, confirm.StateIdle, p.Machine().Snapshot().State)

	// Late enrichment for the cancelled run must not resurrect it
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, confirm.StateIdle, p.Machine().Snapshot().State)
}
