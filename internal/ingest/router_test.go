package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/platewise/pkg/foodlog"
)

func enriched(name string) foodlog.CandidateItem {
	return foodlog.CandidateItem{
		Name:               name,
		SourceChannel:      foodlog.SourcePhoto,
		EnrichmentComplete: true,
		IngredientList:     []string{},
	}
}

func TestRoute_SingleVersusMulti(t *testing.T) {
	r := NewRouter()

	t.Run("one candidate opens single confirmation", func(t *testing.T) {
		routed, err := r.Route([]foodlog.CandidateItem{enriched("Apple")}, foodlog.SourcePhoto)
		require.NoError(t, err)
		assert.Equal(t, FlowSingleConfirm, routed.Flow)
		assert.Len(t, routed.Items, 1)
	})

	t.Run("several candidates open multi review", func(t *testing.T) {
		routed, err := r.Route([]foodlog.CandidateItem{enriched("Apple"), enriched("Banana")}, foodlog.SourcePhoto)
		require.NoError(t, err)
		assert.Equal(t, FlowMultiReview, routed.Flow)
		assert.Len(t, routed.Items, 2)
	})

	t.Run("empty batch is a validation error", func(t *testing.T) {
		_, err := r.Route(nil, foodlog.SourcePhoto)
		assert.True(t, errors.Is(err, foodlog.ErrValidation))
	})
}

func TestRoute_ForceConfirmForManualLikeSources(t *testing.T) {
	r := NewRouter()

	// No enrichment marker, no ingredient list: still routes for typed text
	candidate := foodlog.CandidateItem{Name: "peanut butter toast", SourceChannel: foodlog.SourceManual}

	for _, source := range []foodlog.Source{foodlog.SourceManual, foodlog.SourceVoice} {
		candidate.SourceChannel = source
		routed, err := r.Route([]foodlog.CandidateItem{candidate}, source)
		require.NoError(t, err, "source %s", source)
		assert.True(t, routed.ForceConfirm)
	}
}

func TestRoute_GuardForNonManualSources(t *testing.T) {
	r := NewRouter()

	t.Run("incomplete enrichment blocks photo candidates", func(t *testing.T) {
		c := enriched("Salad")
		c.EnrichmentComplete = false

		_, err := r.Route([]foodlog.CandidateItem{c}, foodlog.SourcePhoto)
		assert.True(t, errors.Is(err, foodlog.ErrValidation))
		assert.Contains(t, err.Error(), "incomplete enrichment")
	})

	t.Run("missing ingredient list blocks photo candidates", func(t *testing.T) {
		c := enriched("Salad")
		c.IngredientList = nil

		_, err := r.Route([]foodlog.CandidateItem{c}, foodlog.SourcePhoto)
		assert.True(t, errors.Is(err, foodlog.ErrValidation))
		assert.Contains(t, err.Error(), "ingredient list")
	})

	t.Run("empty ingredient list passes the guard", func(t *testing.T) {
		c := enriched("Salad")

		routed, err := r.Route([]foodlog.CandidateItem{c}, foodlog.SourcePhoto)
		require.NoError(t, err)
		assert.False(t, routed.ForceConfirm)
		assert.NotNil(t, routed.Items[0].IngredientList)
	})
}

func TestRoute_BypassHydration(t *testing.T) {
	r := NewRouter()

	tests := []struct {
		source foodlog.Source
		want   bool
	}{
		{foodlog.SourceVoice, true},
		{foodlog.SourceManual, true},
		{foodlog.SourceBarcode, true},
		{foodlog.SourcePhoto, false},
	}

	for _, tt := range tests {
		c := enriched("Apple")
		c.SourceChannel = tt.source

		routed, err := r.Route([]foodlog.CandidateItem{c}, tt.source)
		require.NoError(t, err)
		assert.Equal(t, tt.want, routed.BypassHydration, "source %s", tt.source)
	}

	// Multi-item batches never bypass
	routed, err := r.Route([]foodlog.CandidateItem{enriched("Apple"), enriched("Banana")}, foodlog.SourceBarcode)
	require.NoError(t, err)
	assert.False(t, routed.BypassHydration)
}

func TestRoute_PreservesAnnotations(t *testing.T) {
	r := NewRouter()

	isGeneric := false
	c := enriched("Cereal")
	c.ImageRef = "img://shelf"
	c.IngredientList = []string{"oats", "sugar"}
	c.IsGeneric = &isGeneric

	routed, err := r.Route([]foodlog.CandidateItem{c}, foodlog.SourcePhoto)
	require.NoError(t, err)

	item := routed.Items[0]
	assert.Equal(t, "img://shelf", item.ImageRef)
	assert.Equal(t, []string{"oats", "sugar"}, item.IngredientList)
	require.NotNil(t, item.IsGeneric)
	assert.False(t, *item.IsGeneric)

	// A nil IsGeneric stays nil, never defaulted
	plain := enriched("Rice")
	routed, err = r.Route([]foodlog.CandidateItem{plain}, foodlog.SourcePhoto)
	require.NoError(t, err)
	assert.Nil(t, routed.Items[0].IsGeneric)
}

func TestRoute_DropsOnlyBadCandidates(t *testing.T) {
	r := NewRouter()

	bad := enriched("   ")
	good := enriched("Banana")

	routed, err := r.Route([]foodlog.CandidateItem{bad, good}, foodlog.SourcePhoto)
	require.NoError(t, err)
	require.Len(t, routed.Items, 1)
	assert.Equal(t, "Banana", routed.Items[0].Name)
	assert.Equal(t, FlowSingleConfirm, routed.Flow)
}
