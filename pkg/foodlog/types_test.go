package foodlog

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func validFood() *ConfirmedLogEntry {
	return &ConfirmedLogEntry{
		ID:     uuid.New().String(),
		UserID: "user-1",
		Name:   "Grilled Chicken",
		Nutrition: Nutrition{
			Calories: 165, Protein: 31, Fat: 3.6, SaturatedFat: 1.1,
		},
		Source:        SourceManual,
		ConfidencePct: 85,
		CreatedAt:     time.Now(),
	}
}

func TestConfirmedLogEntry_Validate(t *testing.T) {
	t.Run("accepts valid entry", func(t *testing.T) {
		assert.NoError(t, validFood().Validate())
	})

	t.Run("rejects non-UUID id", func(t *testing.T) {
		e := validFood()
		e.ID = "not-a-uuid"
		err := e.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid entry ID")
	})

	t.Run("rejects empty name", func(t *testing.T) {
		e := validFood()
		e.Name = ""
		assert.Error(t, e.Validate())
	})

	t.Run("rejects unknown source", func(t *testing.T) {
		e := validFood()
		e.Source = "telepathy"
		assert.Error(t, e.Validate())
	})

	t.Run("rejects negative calories", func(t *testing.T) {
		e := validFood()
		e.Nutrition.Calories = -1
		assert.Error(t, e.Validate())
	})
}

func TestNutrition_Sanitize(t *testing.T) {
	t.Run("floors negatives and NaN at zero", func(t *testing.T) {
		n := Nutrition{Calories: math.NaN(), Protein: -5, Carbs: math.Inf(1)}.Sanitize()
		assert.Zero(t, n.Calories)
		assert.Zero(t, n.Protein)
		assert.Zero(t, n.Carbs)
	})

	t.Run("defaults saturated fat to 30 percent of fat", func(t *testing.T) {
		n := Nutrition{Fat: 10}.Sanitize()
		assert.InDelta(t, 3.0, n.SaturatedFat, 0.0001)
	})

	t.Run("keeps declared saturated fat", func(t *testing.T) {
		n := Nutrition{Fat: 10, SaturatedFat: 2}.Sanitize()
		assert.InDelta(t, 2.0, n.SaturatedFat, 0.0001)
	})
}

func TestSource_ManualLike(t *testing.T) {
	assert.True(t, SourceManual.ManualLike())
	assert.True(t, SourceVoice.ManualLike())
	assert.False(t, SourcePhoto.ManualLike())
	assert.False(t, SourceBarcode.ManualLike())
}

func TestComputeTotals(t *testing.T) {
	foods := []ConfirmedLogEntry{
		{Nutrition: Nutrition{Calories: 165, Protein: 31, Fat: 3.6}},
		{Nutrition: Nutrition{Calories: 95, Carbs: 25, Sugar: 19}},
	}
	hydration := []HydrationEntry{
		{VolumeML: 250}, {VolumeML: 500},
	}

	totals := ComputeTotals(foods, hydration)

	assert.InDelta(t, 260, totals.Calories, 0.0001)
	assert.InDelta(t, 31, totals.Protein, 0.0001)
	assert.InDelta(t, 25, totals.Carbs, 0.0001)
	assert.InDelta(t, 750, totals.HydrationML, 0.0001)
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2025, 6, 15, 23, 30, 0, 0, time.Local)
	assert.Equal(t, "2025-06-15", DateOf(ts))
}
