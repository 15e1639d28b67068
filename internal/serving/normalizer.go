// Package serving converts free-text quantity expressions plus base
// macros into final per-item macros. One scale factor is applied
// uniformly to every macro field; countable items with a per-unit size
// class bypass proportional scaling entirely.
package serving

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/platewise/platewise/pkg/foodlog"
)

// Result is the outcome of serving normalization.
type Result struct {
	Nutrition    foodlog.Nutrition // final, rounded macros
	ServingGrams float64
	Title        string
	Debug        DebugInfo
}

// DebugInfo records how the serving size was derived, for display in
// debug overlays and for tests.
type DebugInfo struct {
	Source string  // "explicit-grams", "unit-override", "container-unit", "declared-serving", "default"
	Factor float64 // multiplier applied to base macros (0 for unit-override)
	Grams  float64

	// DuplicateOf names a previously-normalized item whose macro
	// fingerprint matches this one. Advisory only: exact-tuple matches
	// can false-positive on genuinely identical foods, so nothing
	// downstream blocks or merges on it.
	DuplicateOf string
}

// Normalizer computes serving-scaled macros and tracks a session-scoped
// duplicate-nutrition fingerprint table. Safe for concurrent use.
type Normalizer struct {
	mu           sync.Mutex
	fingerprints map[fingerprint]string // macro tuple -> first display name seen
}

// NewNormalizer creates a Normalizer with an empty fingerprint table.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		fingerprints: make(map[fingerprint]string),
	}
}

var (
	gramsPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*g(?:rams?)?\b`)
	countPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*(?:x\s*)?(.*)$`)
)

// Normalize converts a quantity expression and base macros (per 100g
// unless a declared serving applies) into final per-item macros.
//
// Precedence: discrete-unit override > explicit grams > container unit
// > declared serving > 100g default. The discrete-unit table wins over
// proportional weight scaling for countable items.
func (n *Normalizer) Normalize(name, quantityText string, base foodlog.Nutrition, declaredServingGrams float64) Result {
	base = base.Sanitize()
	canonical := canonicalName(name)
	text := strings.ToLower(strings.TrimSpace(quantityText))

	count, remainder := parseLeadingCount(text)
	size, unitWord := parseSizeAndUnit(remainder)

	var result Result

	switch {
	case unitWord != "" && isDiscreteUnit(unitWord):
		spec, resolvedSize, _ := lookupDiscreteUnit(unitWord, size)
		units := count
		if units <= 0 {
			units = 1
		}
		result = Result{
			Nutrition:    roundNutrition(spec.Nutrition.Scale(units)),
			ServingGrams: spec.Grams * units,
			Title:        unitTitle(units, resolvedSize, canonical),
			Debug:        DebugInfo{Source: "unit-override", Grams: spec.Grams * units},
		}

	case gramsPattern.MatchString(text):
		grams, _ := strconv.ParseFloat(gramsPattern.FindStringSubmatch(text)[1], 64)
		factor := grams / 100
		result = Result{
			Nutrition:    roundNutrition(base.Scale(factor)),
			ServingGrams: grams,
			Title:        fmt.Sprintf("%s (%sg)", canonical, trimFloat(grams)),
			Debug:        DebugInfo{Source: "explicit-grams", Factor: factor, Grams: grams},
		}

	case unitWord != "" && containerGrams[unitWord] > 0:
		units := count
		if units <= 0 {
			units = 1
		}
		grams := containerGrams[unitWord] * units
		factor := grams / 100
		result = Result{
			Nutrition:    roundNutrition(base.Scale(factor)),
			ServingGrams: grams,
			Title:        countTitle(units, canonical),
			Debug:        DebugInfo{Source: "container-unit", Factor: factor, Grams: grams},
		}

	case declaredServingGrams > 0:
		units := count
		if units <= 0 {
			units = 1
		}
		grams := declaredServingGrams * units
		factor := grams / 100
		result = Result{
			Nutrition:    roundNutrition(base.Scale(factor)),
			ServingGrams: grams,
			Title:        countTitle(units, canonical),
			Debug:        DebugInfo{Source: "declared-serving", Factor: factor, Grams: grams},
		}

	default:
		units := count
		if units <= 0 {
			units = 1
		}
		grams := 100 * units
		factor := units
		result = Result{
			Nutrition:    roundNutrition(base.Scale(factor)),
			ServingGrams: grams,
			Title:        countTitle(units, canonical),
			Debug:        DebugInfo{Source: "default", Factor: factor, Grams: grams},
		}
	}

	result.Debug.DuplicateOf = n.checkFingerprint(result.Nutrition, result.Title)

	return result
}

// fingerprint is the exact macro 4-tuple used by the duplicate advisory.
type fingerprint struct {
	calories, protein, carbs, fat float64
}

// checkFingerprint records the item's macro tuple and returns the name
// of an earlier item with the same tuple under a different name.
func (n *Normalizer) checkFingerprint(macros foodlog.Nutrition, title string) string {
	fp := fingerprint{
		calories: macros.Calories,
		protein:  macros.Protein,
		carbs:    macros.Carbs,
		fat:      macros.Fat,
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if seen, ok := n.fingerprints[fp]; ok && seen != title {
		return seen
	}
	n.fingerprints[fp] = title
	return ""
}

func parseLeadingCount(text string) (float64, string) {
	m := countPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, text
	}
	count, err := strconv.ParseFloat(m[1], 64)
	if err != nil || count <= 0 {
		return 0, text
	}
	// A leading number immediately followed by a gram suffix is a
	// weight, not a count
	if gramsPattern.MatchString(text) && strings.Index(text, m[1]) == 0 &&
		gramsPattern.FindStringIndex(text)[0] == 0 {
		return 0, text
	}
	return count, strings.TrimSpace(m[2])
}

func parseSizeAndUnit(remainder string) (SizeClass, string) {
	words := strings.Fields(remainder)
	if len(words) == 0 {
		return "", ""
	}
	if size := parseSizeClass(words[0]); size != "" {
		if len(words) > 1 {
			return size, words[1]
		}
		return size, ""
	}
	return "", words[0]
}

func isDiscreteUnit(word string) bool {
	_, ok := discreteUnits[strings.ToLower(word)]
	return ok
}

// roundNutrition applies the display rounding rules: whole numbers for
// calories and sodium, one decimal place everywhere else.
func roundNutrition(n foodlog.Nutrition) foodlog.Nutrition {
	round1 := func(v float64) float64 { return math.Round(v*10) / 10 }
	return foodlog.Nutrition{
		Calories:     math.Round(n.Calories),
		Protein:      round1(n.Protein),
		Carbs:        round1(n.Carbs),
		Fat:          round1(n.Fat),
		Fiber:        round1(n.Fiber),
		Sugar:        round1(n.Sugar),
		Sodium:       math.Round(n.Sodium),
		SaturatedFat: round1(n.SaturatedFat),
	}
}

// canonicalName title-cases the food name with whitespace collapsed.
func canonicalName(name string) string {
	words := strings.Fields(strings.TrimSpace(name))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func unitTitle(units float64, size SizeClass, canonical string) string {
	sizeWord := strings.ToUpper(string(size)[:1]) + string(size)[1:]
	noun := pluralize(canonical, units)
	return collapseSpaces(fmt.Sprintf("%s %s %s", trimFloat(units), sizeWord, noun))
}

func countTitle(units float64, canonical string) string {
	if units == 1 {
		return canonical
	}
	return collapseSpaces(fmt.Sprintf("%s %s", trimFloat(units), pluralize(canonical, units)))
}

func pluralize(noun string, units float64) string {
	if units <= 1 || strings.HasSuffix(strings.ToLower(noun), "s") {
		return noun
	}
	return noun + "s"
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
