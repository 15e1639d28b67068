package resolver

import (
	"hash/fnv"
	"math/rand"

	"github.com/platewise/platewise/pkg/foodlog"
)

// fallbackNutrition produces heuristic macros when both providers fail.
// The ranges cover a plausible single serving of an unknown mixed food.
// Seeding from the food name keeps repeated resolutions of the same
// name stable, which matters for the duplicate-nutrition advisory and
// for tests.
func fallbackNutrition(name, reason string) foodlog.ResolvedNutrition {
	h := fnv.New64a()
	h.Write([]byte(name))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	inRange := func(lo, hi float64) float64 {
		return lo + rng.Float64()*(hi-lo)
	}

	n := foodlog.Nutrition{
		Calories: inRange(180, 420),
		Protein:  inRange(8, 28),
		Carbs:    inRange(15, 55),
		Fat:      inRange(5, 20),
		Fiber:    inRange(1, 6),
		Sugar:    inRange(2, 12),
		Sodium:   inRange(80, 500),
	}

	return foodlog.ResolvedNutrition{
		Nutrition:      n.Sanitize(),
		SourceLabel:    string(ChooseFallback),
		Confidence:     0.4,
		DecisionReason: reason,
	}
}
