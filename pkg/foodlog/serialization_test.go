package foodlog

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toRedisString mimics how go-redis stringifies hash values.
func toRedisString(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

func TestFoodHashRoundTrip(t *testing.T) {
	entry := &ConfirmedLogEntry{
		ID:     uuid.New().String(),
		UserID: "user-1",
		Name:   "Oatmeal",
		Nutrition: Nutrition{
			Calories: 150, Protein: 5, Carbs: 27, Fat: 2.5,
			Fiber: 4, Sugar: 1, Sodium: 2, SaturatedFat: 0.5,
		},
		Source:        SourcePhoto,
		ConfidencePct: 72,
		ImageRef:      "img://abc",
		CreatedAt:     time.UnixMilli(1750000000000),
	}

	hash, err := FoodToHash(entry)
	require.NoError(t, err)

	// Redis returns hashes as map[string]string
	stringHash := make(map[string]string, len(hash))
	for k, v := range hash {
		stringHash[k] = toRedisString(v)
	}

	decoded, err := HashToFood(stringHash)
	require.NoError(t, err)

	assert.Equal(t, entry.ID, decoded.ID)
	assert.Equal(t, entry.Name, decoded.Name)
	assert.Equal(t, entry.Source, decoded.Source)
	assert.Equal(t, entry.ConfidencePct, decoded.ConfidencePct)
	assert.Equal(t, entry.Nutrition, decoded.Nutrition)
	assert.Equal(t, entry.CreatedAt.UnixMilli(), decoded.CreatedAt.UnixMilli())
}

func TestHashToFood_InvalidConfidence(t *testing.T) {
	_, err := HashToFood(map[string]string{
		"id":             uuid.New().String(),
		"confidence_pct": "not-a-number",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "confidence_pct")
}

func TestHashToHydration_InvalidVolume(t *testing.T) {
	_, err := HashToHydration(map[string]string{
		"id":        uuid.New().String(),
		"volume_ml": "",
	})
	assert.Error(t, err)
}
