package serving

import (
	"strings"

	"github.com/platewise/platewise/pkg/foodlog"
)

// Discrete-unit override tables.
//
// For countable items with a per-unit size class the table value takes
// precedence over proportional weight scaling: "2 large eggs" means
// two large-egg units, whatever the base per-100g macros say.

// SizeClass is a named per-unit size (egg sizes, slice thickness).
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
	SizeXL     SizeClass = "xl"
)

// unitSpec describes one discrete unit of a countable food.
type unitSpec struct {
	Grams     float64
	Nutrition foodlog.Nutrition // per single unit
}

// eggUnits uses USDA whole-egg figures per size class.
var eggUnits = map[SizeClass]unitSpec{
	SizeSmall:  {Grams: 38, Nutrition: foodlog.Nutrition{Calories: 54, Protein: 4.8, Carbs: 0.3, Fat: 3.7, Sodium: 52, SaturatedFat: 1.2}},
	SizeMedium: {Grams: 44, Nutrition: foodlog.Nutrition{Calories: 63, Protein: 5.5, Carbs: 0.3, Fat: 4.2, Sodium: 61, SaturatedFat: 1.4}},
	SizeLarge:  {Grams: 50, Nutrition: foodlog.Nutrition{Calories: 72, Protein: 6.3, Carbs: 0.4, Fat: 4.8, Sodium: 71, SaturatedFat: 1.6}},
	SizeXL:     {Grams: 56, Nutrition: foodlog.Nutrition{Calories: 80, Protein: 7.0, Carbs: 0.4, Fat: 5.3, Sodium: 80, SaturatedFat: 1.8}},
}

var breadSliceUnits = map[SizeClass]unitSpec{
	SizeSmall:  {Grams: 22, Nutrition: foodlog.Nutrition{Calories: 58, Protein: 2.0, Carbs: 11, Fat: 0.7, Fiber: 0.6, Sugar: 1.2, Sodium: 110}},
	SizeMedium: {Grams: 28, Nutrition: foodlog.Nutrition{Calories: 74, Protein: 2.6, Carbs: 14, Fat: 0.9, Fiber: 0.8, Sugar: 1.5, Sodium: 140}},
	SizeLarge:  {Grams: 36, Nutrition: foodlog.Nutrition{Calories: 95, Protein: 3.3, Carbs: 18, Fat: 1.2, Fiber: 1.0, Sugar: 1.9, Sodium: 180}},
}

// discreteUnits maps a unit keyword to its size-class table and the
// default size used when the quantity text names none.
var discreteUnits = map[string]struct {
	sizes       map[SizeClass]unitSpec
	defaultSize SizeClass
}{
	"egg":   {sizes: eggUnits, defaultSize: SizeLarge},
	"eggs":  {sizes: eggUnits, defaultSize: SizeLarge},
	"slice": {sizes: breadSliceUnits, defaultSize: SizeMedium},
	"slices": {sizes: breadSliceUnits, defaultSize: SizeMedium},
}

// containerGrams maps loose container/serving words to gram estimates.
// Values follow common label conventions (a cup of liquid ~240g, a
// standard can 355ml).
var containerGrams = map[string]float64{
	"cup":     240,
	"cups":    240,
	"bottle":  500,
	"bottles": 500,
	"can":     355,
	"cans":    355,
	"bar":     40,
	"bars":    40,
	"piece":   25,
	"pieces":  25,
	"cookie":  30,
	"cookies": 30,
	"cracker": 10,
	"crackers": 10,
	"serving": 30,
	"servings": 30,
	"portion": 30,
	"portions": 30,
	"pack":    25,
	"packs":   25,
	"sachet":  15,
	"sachets": 15,
	"bowl":    250,
	"bowls":   250,
	"tbsp":    15,
	"tsp":     5,
}

// parseSizeClass recognizes a size word; empty string means none.
func parseSizeClass(word string) SizeClass {
	switch strings.ToLower(word) {
	case "small":
		return SizeSmall
	case "medium":
		return SizeMedium
	case "large", "big":
		return SizeLarge
	case "xl", "extra-large", "jumbo":
		return SizeXL
	default:
		return ""
	}
}

// lookupDiscreteUnit finds the per-unit spec for a unit keyword and
// size class, falling back to the unit's default size. The second
// return reports whether the keyword is a discrete-unit food at all.
func lookupDiscreteUnit(unit string, size SizeClass) (unitSpec, SizeClass, bool) {
	entry, ok := discreteUnits[strings.ToLower(unit)]
	if !ok {
		return unitSpec{}, "", false
	}
	if size == "" {
		size = entry.defaultSize
	}
	spec, ok := entry.sizes[size]
	if !ok {
		// Unknown size for a known unit: use the default size
		size = entry.defaultSize
		spec = entry.sizes[size]
	}
	return spec, size, true
}
