package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/pkg/foodlog"
)

func TestLocalEstimator(t *testing.T) {
	e := NewLocalEstimator()
	ctx := context.Background()

	t.Run("exact match", func(t *testing.T) {
		got, err := e.EstimateGeneric(ctx, "Grilled Chicken")
		require.NoError(t, err)
		assert.Equal(t, 165.0, got.Nutrition.Calories)
		assert.Equal(t, 85.0, got.Confidence)
	})

	t.Run("substring match loses confidence", func(t *testing.T) {
		got, err := e.EstimateGeneric(ctx, "leftover rice with herbs")
		require.NoError(t, err)
		assert.Equal(t, 130.0, got.Nutrition.Calories)
		assert.Equal(t, 75.0, got.Confidence)
	})

	t.Run("unknown food errors so the fallback takes over", func(t *testing.T) {
		_, err := e.EstimateGeneric(ctx, "mystery casserole")
		assert.Error(t, err)
	})
}

func TestLocalProducts(t *testing.T) {
	catalog := NewLocalProducts([]Product{
		{
			Barcode:      "0123456789012",
			Name:         "Crunchy Granola",
			Brand:        "Acme",
			ServingGrams: 45,
			Nutrition:    foodlog.Nutrition{Calories: 450, Protein: 10},
		},
	})
	ctx := context.Background()

	t.Run("barcode hit", func(t *testing.T) {
		p, err := catalog.LookupProduct(ctx, "0123456789012")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Crunchy Granola", p.Name)
	})

	t.Run("barcode miss is nil not error", func(t *testing.T) {
		p, err := catalog.LookupProduct(ctx, "9999999999999")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("branded lookup by barcode is high confidence", func(t *testing.T) {
		got, err := catalog.LookupBranded(ctx, Query{Barcode: "0123456789012"})
		require.NoError(t, err)
		assert.True(t, got.Found)
		assert.Equal(t, 96.0, got.Confidence)
		assert.Equal(t, "Acme", got.BrandName)
	})

	t.Run("branded lookup by name is weaker", func(t *testing.T) {
		got, err := catalog.LookupBranded(ctx, Query{Name: "crunchy granola"})
		require.NoError(t, err)
		assert.True(t, got.Found)
		assert.Equal(t, 75.0, got.Confidence)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := catalog.LookupBranded(ctx, Query{Name: "plain oats"})
		require.NoError(t, err)
		assert.False(t, got.Found)
	})
}

func TestLoadProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
products:
  - barcode: "0123456789012"
    name: Crunchy Granola
    brand: Acme
    serving_grams: 45
    nutrition:
      calories: 450
      protein: 10
      carbs: 60
      fat: 18
`), 0644))

	catalog, err := LoadProducts(path)
	require.NoError(t, err)

	p, err := catalog.LookupProduct(context.Background(), "0123456789012")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 450.0, p.Nutrition.Calories)
	assert.Equal(t, 45.0, p.ServingGrams)

	t.Run("missing name rejected", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yml")
		require.NoError(t, os.WriteFile(bad, []byte("products:\n  - barcode: \"1\"\n"), 0644))
		_, err := LoadProducts(bad)
		assert.Error(t, err)
	})
}
