package foodlog

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Source identifies the recognition channel a log entry originated from.
type Source string

const (
	// SourcePhoto is a photo capture run through food detection
	SourcePhoto Source = "photo"

	// SourceVoice is a transcribed speech description
	SourceVoice Source = "voice"

	// SourceManual is typed free text
	SourceManual Source = "manual"

	// SourceBarcode is a scanned packaged-product barcode
	SourceBarcode Source = "barcode"
)

// Validate checks if the Source is a valid enum value.
func (s Source) Validate() error {
	switch s {
	case SourcePhoto, SourceVoice, SourceManual, SourceBarcode:
		return nil
	default:
		return fmt.Errorf("unknown source: %q", s)
	}
}

// ManualLike reports whether the source is typed or transcribed text.
// Manual-like sources force the confirmation flow open even while
// enrichment is still running.
func (s Source) ManualLike() bool {
	return s == SourceManual || s == SourceVoice
}

// Nutrition holds the seven macro fields plus saturated fat, all per
// final serving. Values are floored at zero and never NaN.
type Nutrition struct {
	Calories     float64 `json:"calories"`
	Protein      float64 `json:"protein"`
	Carbs        float64 `json:"carbs"`
	Fat          float64 `json:"fat"`
	Fiber        float64 `json:"fiber"`
	Sugar        float64 `json:"sugar"`
	Sodium       float64 `json:"sodium"`
	SaturatedFat float64 `json:"saturated_fat"`
}

// Sanitize replaces NaN/Inf with zero, floors every field at zero, and
// defaults saturated fat to 30% of total fat when it is missing.
func (n Nutrition) Sanitize() Nutrition {
	n.Calories = clampMacro(n.Calories)
	n.Protein = clampMacro(n.Protein)
	n.Carbs = clampMacro(n.Carbs)
	n.Fat = clampMacro(n.Fat)
	n.Fiber = clampMacro(n.Fiber)
	n.Sugar = clampMacro(n.Sugar)
	n.Sodium = clampMacro(n.Sodium)
	n.SaturatedFat = clampMacro(n.SaturatedFat)
	if n.SaturatedFat == 0 && n.Fat > 0 {
		n.SaturatedFat = n.Fat * 0.3
	}
	return n
}

// Scale returns the nutrition multiplied by a uniform factor, unrounded.
func (n Nutrition) Scale(factor float64) Nutrition {
	return Nutrition{
		Calories:     n.Calories * factor,
		Protein:      n.Protein * factor,
		Carbs:        n.Carbs * factor,
		Fat:          n.Fat * factor,
		Fiber:        n.Fiber * factor,
		Sugar:        n.Sugar * factor,
		Sodium:       n.Sodium * factor,
		SaturatedFat: n.SaturatedFat * factor,
	}
}

func clampMacro(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ResolvedNutrition is the output of the nutrition resolver: one
// authoritative macro set plus provenance for debugging and tests.
type ResolvedNutrition struct {
	Nutrition

	SourceLabel    string  `json:"source_label"`    // "branded", "generic", or "hardcoded-fallback"
	Confidence     float64 `json:"confidence"`      // 0..1
	DecisionReason string  `json:"decision_reason"` // Which arbitration rule fired
	ProductName    string  `json:"product_name,omitempty"`
	BrandName      string  `json:"brand_name,omitempty"`
}

// CandidateItem is a raw, unresolved food suggestion from a recognition
// channel. Candidates are ephemeral: they exist only between recognition
// and resolution.
type CandidateItem struct {
	Name               string     `json:"name"`
	RawQuantityText    string     `json:"raw_quantity_text"`
	SourceChannel      Source     `json:"source_channel"`
	Confidence         float64    `json:"confidence,omitempty"` // 0..1, recognition confidence
	Barcode            string     `json:"barcode,omitempty"`
	OCRText            string     `json:"ocr_text,omitempty"`
	ImageRef           string     `json:"image_ref,omitempty"`
	IngredientList     []string   `json:"ingredient_list,omitempty"`
	NutritionHints     *Nutrition `json:"nutrition_hints,omitempty"`
	EnrichmentComplete bool       `json:"enrichment_complete"`

	// IsGeneric is tri-state: nil means the channel did not say.
	// An explicit value is preserved through normalization, never defaulted.
	IsGeneric *bool `json:"is_generic,omitempty"`
}

// NormalizedFoodEntry is a candidate after nutrition resolution and
// serving normalization, ready for the confirmation queue.
type NormalizedFoodEntry struct {
	Candidate    CandidateItem     `json:"candidate"`
	Resolved     ResolvedNutrition `json:"resolved"`
	ServingGrams float64           `json:"serving_grams"`
	DisplayName  string            `json:"display_name"`
	ServingDebug string            `json:"serving_debug"`
}

// ConfirmedLogEntry is a persisted food record. Immutable once written.
type ConfirmedLogEntry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Nutrition     Nutrition `json:"nutrition"`
	Source        Source    `json:"source"`
	ConfidencePct int       `json:"confidence_pct"` // 0..100
	ImageRef      string    `json:"image_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks if the ConfirmedLogEntry has valid field values.
func (e *ConfirmedLogEntry) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid entry ID: not a valid UUID")
	}
	if e.UserID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if e.Name == "" {
		return fmt.Errorf("food name cannot be empty")
	}
	if err := e.Source.Validate(); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	if e.Nutrition.Calories < 0 {
		return fmt.Errorf("calories cannot be negative: %v", e.Nutrition.Calories)
	}
	if e.ConfidencePct < 0 || e.ConfidencePct > 100 {
		return fmt.Errorf("confidence must be 0..100, got %d", e.ConfidencePct)
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("created_at cannot be zero")
	}
	return nil
}

// HydrationKind distinguishes water from other tracked liquids.
type HydrationKind string

const (
	HydrationWater HydrationKind = "water"
	HydrationOther HydrationKind = "other"
)

// HydrationEntry is a persisted hydration record.
type HydrationEntry struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	VolumeML  float64       `json:"volume_ml"`
	Kind      HydrationKind `json:"kind"`
	CreatedAt time.Time     `json:"created_at"`
}

// Validate checks if the HydrationEntry has valid field values.
func (h *HydrationEntry) Validate() error {
	if !isValidUUID(h.ID) {
		return fmt.Errorf("invalid entry ID: not a valid UUID")
	}
	if h.UserID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if h.Name == "" {
		return fmt.Errorf("hydration name cannot be empty")
	}
	if h.VolumeML <= 0 {
		return fmt.Errorf("volume must be positive, got %v", h.VolumeML)
	}
	if h.Kind != HydrationWater && h.Kind != HydrationOther {
		return fmt.Errorf("unknown hydration kind: %q", h.Kind)
	}
	if h.CreatedAt.IsZero() {
		return fmt.Errorf("created_at cannot be zero")
	}
	return nil
}

// SupplementEntry is a persisted supplement record.
type SupplementEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Dosage    float64   `json:"dosage"`
	Unit      string    `json:"unit"`
	Frequency string    `json:"frequency,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the SupplementEntry has valid field values.
func (s *SupplementEntry) Validate() error {
	if !isValidUUID(s.ID) {
		return fmt.Errorf("invalid entry ID: not a valid UUID")
	}
	if s.UserID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("supplement name cannot be empty")
	}
	if s.Dosage <= 0 {
		return fmt.Errorf("dosage must be positive, got %v", s.Dosage)
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("created_at cannot be zero")
	}
	return nil
}

// Table identifies which persisted set a change event belongs to.
type Table string

const (
	TableFood       Table = "food"
	TableHydration  Table = "hydration"
	TableSupplement Table = "supplement"
)

// Validate checks if the Table is a valid enum value.
func (t Table) Validate() error {
	switch t {
	case TableFood, TableHydration, TableSupplement:
		return nil
	default:
		return fmt.Errorf("unknown table: %q", t)
	}
}

// ChangeEvent is an insert notification pushed over the change feed
// after a successful write. The payload field matching Table is set;
// the other two are nil.
type ChangeEvent struct {
	ID         string             `json:"id"`
	Table      Table              `json:"table"`
	Food       *ConfirmedLogEntry `json:"food,omitempty"`
	Hydration  *HydrationEntry    `json:"hydration,omitempty"`
	Supplement *SupplementEntry   `json:"supplement,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Totals are the summed macros plus hydration volume for one day.
// Totals are always recomputed from the full entry set, never patched.
type Totals struct {
	Nutrition
	HydrationML float64 `json:"hydration_ml"`
}

// DailyAggregate mirrors one day's confirmed entries and their totals.
type DailyAggregate struct {
	Date        string              `json:"date"` // YYYY-MM-DD, local calendar day
	Foods       []ConfirmedLogEntry `json:"foods"`
	Hydration   []HydrationEntry    `json:"hydration"`
	Supplements []SupplementEntry   `json:"supplements"`
	Totals      Totals              `json:"totals"`
}

// ComputeTotals derives totals by summing the full confirmed-entry set.
// Deriving fresh on every call keeps the aggregate correct when the
// confirmation pipeline and the sync engine interleave mutations.
func ComputeTotals(foods []ConfirmedLogEntry, hydration []HydrationEntry) Totals {
	var t Totals
	for _, f := range foods {
		t.Calories += f.Nutrition.Calories
		t.Protein += f.Nutrition.Protein
		t.Carbs += f.Nutrition.Carbs
		t.Fat += f.Nutrition.Fat
		t.Fiber += f.Nutrition.Fiber
		t.Sugar += f.Nutrition.Sugar
		t.Sodium += f.Nutrition.Sodium
		t.SaturatedFat += f.Nutrition.SaturatedFat
	}
	for _, h := range hydration {
		t.HydrationML += h.VolumeML
	}
	return t
}

// DateOf formats a timestamp as a local calendar day key (YYYY-MM-DD).
func DateOf(ts time.Time) string {
	return ts.Local().Format("2006-01-02")
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
