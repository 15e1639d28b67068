package serving

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platewise/platewise/pkg/foodlog"
)

func TestNormalize_ExplicitGrams(t *testing.T) {
	n := NewNormalizer()
	base := foodlog.Nutrition{Calories: 100, Protein: 10, Carbs: 20, Fat: 4}

	result := n.Normalize("grilled chicken", "250g", base, 0)

	// 100 kcal per 100g scaled to 250g
	assert.InDelta(t, 250, result.Nutrition.Calories, 0.5)
	assert.InDelta(t, 25, result.Nutrition.Protein, 0.05)
	assert.InDelta(t, 50, result.Nutrition.Carbs, 0.05)
	assert.InDelta(t, 10, result.Nutrition.Fat, 0.05)
	assert.Equal(t, 250.0, result.ServingGrams)
	assert.Equal(t, "explicit-grams", result.Debug.Source)
	assert.Equal(t, "Grilled Chicken (250g)", result.Title)
}

func TestNormalize_DiscreteUnitOverride(t *testing.T) {
	n := NewNormalizer()
	// Base macros that proportional scaling would distort badly
	base := foodlog.Nutrition{Calories: 999, Protein: 99}

	result := n.Normalize("egg", "2 large eggs", base, 0)

	// Two large eggs use the per-unit table value x2, ignoring base
	assert.InDelta(t, 144, result.Nutrition.Calories, 0.5)
	assert.InDelta(t, 12.6, result.Nutrition.Protein, 0.05)
	assert.Equal(t, 100.0, result.ServingGrams)
	assert.Equal(t, "unit-override", result.Debug.Source)
	assert.Equal(t, "2 Large Eggs", result.Title)
}

func TestNormalize_DefaultEggSize(t *testing.T) {
	n := NewNormalizer()

	result := n.Normalize("egg", "3 eggs", foodlog.Nutrition{}, 0)

	// Unsized eggs default to large
	assert.InDelta(t, 216, result.Nutrition.Calories, 0.5)
	assert.Equal(t, 150.0, result.ServingGrams)
	assert.Equal(t, "3 Large Eggs", result.Title)
}

func TestNormalize_ContainerUnit(t *testing.T) {
	n := NewNormalizer()
	base := foodlog.Nutrition{Calories: 60, Protein: 3.4, Carbs: 4.7, Fat: 3.3}

	result := n.Normalize("milk", "2 cups", base, 0)

	// 2 cups = 480g
	assert.Equal(t, 480.0, result.ServingGrams)
	assert.InDelta(t, 288, result.Nutrition.Calories, 0.5)
	assert.Equal(t, "container-unit", result.Debug.Source)
}

func TestNormalize_DeclaredServing(t *testing.T) {
	n := NewNormalizer()
	base := foodlog.Nutrition{Calories: 400}

	result := n.Normalize("granola", "", base, 45)

	assert.Equal(t, 45.0, result.ServingGrams)
	assert.InDelta(t, 180, result.Nutrition.Calories, 0.5)
	assert.Equal(t, "declared-serving", result.Debug.Source)
}

func TestNormalize_DefaultHundredGrams(t *testing.T) {
	n := NewNormalizer()
	base := foodlog.Nutrition{Calories: 52, Carbs: 14}

	result := n.Normalize("apple", "", base, 0)

	assert.Equal(t, 100.0, result.ServingGrams)
	assert.InDelta(t, 52, result.Nutrition.Calories, 0.5)
	assert.Equal(t, "default", result.Debug.Source)
	assert.Equal(t, "Apple", result.Title)
}

func TestNormalize_Rounding(t *testing.T) {
	n := NewNormalizer()
	base := foodlog.Nutrition{
		Calories: 123.4, Protein: 11.14, Carbs: 22.22, Fat: 3.33,
		Fiber: 1.11, Sugar: 2.22, Sodium: 333.3, SaturatedFat: 1.11,
	}

	result := n.Normalize("stew", "150g", base, 0)

	// Whole numbers for calories and sodium, one decimal elsewhere
	assert.Equal(t, 185.0, result.Nutrition.Calories)
	assert.Equal(t, 500.0, result.Nutrition.Sodium)
	assert.Equal(t, 16.7, result.Nutrition.Protein)
	assert.Equal(t, 33.3, result.Nutrition.Carbs)
	assert.Equal(t, 5.0, result.Nutrition.Fat)
}

func TestNormalize_TitleWhitespaceCollapsed(t *testing.T) {
	n := NewNormalizer()

	result := n.Normalize("  grilled   chicken  ", "250g", foodlog.Nutrition{Calories: 100}, 0)

	assert.Equal(t, "Grilled Chicken (250g)", result.Title)
}

func TestDuplicateFingerprint(t *testing.T) {
	n := NewNormalizer()
	base := foodlog.Nutrition{Calories: 100, Protein: 10, Carbs: 20, Fat: 4}

	first := n.Normalize("chicken wrap", "100g", base, 0)
	assert.Empty(t, first.Debug.DuplicateOf)

	// Different name, identical macro tuple: advisory flag
	second := n.Normalize("mystery wrap", "100g", base, 0)
	assert.Equal(t, "Chicken Wrap (100g)", second.Debug.DuplicateOf)

	// Same name again: not flagged (identical food logged twice)
	third := n.Normalize("chicken wrap", "100g", base, 0)
	assert.Empty(t, third.Debug.DuplicateOf)

	// Different macros: no flag
	fourth := n.Normalize("salad", "100g", foodlog.Nutrition{Calories: 35}, 0)
	assert.Empty(t, fourth.Debug.DuplicateOf)
}

func TestNormalize_NeverNegativeOrNaN(t *testing.T) {
	n := NewNormalizer()
	base := foodlog.Nutrition{Calories: -50, Protein: 10}

	result := n.Normalize("weird", "200g", base, 0)

	assert.GreaterOrEqual(t, result.Nutrition.Calories, 0.0)
	assert.InDelta(t, 20, result.Nutrition.Protein, 0.05)
}
