package foodlog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). The nutrition
// block is JSON-encoded into a single hash field; scalar fields stay as
// individual hash fields so they remain queryable.

// FoodToHash converts a ConfirmedLogEntry to Redis hash format.
func FoodToHash(e *ConfirmedLogEntry) (map[string]interface{}, error) {
	nutritionJSON, err := json.Marshal(e.Nutrition)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal nutrition: %w", err)
	}

	hash := map[string]interface{}{
		"id":             e.ID,
		"user_id":        e.UserID,
		"name":           e.Name,
		"nutrition":      string(nutritionJSON),
		"source":         string(e.Source),
		"confidence_pct": e.ConfidencePct,
		"image_ref":      e.ImageRef,
		"created_at_ms":  e.CreatedAt.UnixMilli(),
	}

	return hash, nil
}

// HashToFood converts a Redis hash to a ConfirmedLogEntry.
func HashToFood(hash map[string]string) (*ConfirmedLogEntry, error) {
	var nutrition Nutrition
	if nutritionJSON := hash["nutrition"]; nutritionJSON != "" {
		if err := json.Unmarshal([]byte(nutritionJSON), &nutrition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal nutrition: %w", err)
		}
	}

	confidencePct, err := strconv.Atoi(hash["confidence_pct"])
	if err != nil {
		return nil, fmt.Errorf("invalid confidence_pct field: %w", err)
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	entry := &ConfirmedLogEntry{
		ID:            hash["id"],
		UserID:        hash["user_id"],
		Name:          hash["name"],
		Nutrition:     nutrition,
		Source:        Source(hash["source"]),
		ConfidencePct: confidencePct,
		ImageRef:      hash["image_ref"],
		CreatedAt:     time.UnixMilli(createdAtMs),
	}

	return entry, nil
}

// HydrationToHash converts a HydrationEntry to Redis hash format.
func HydrationToHash(h *HydrationEntry) map[string]interface{} {
	return map[string]interface{}{
		"id":            h.ID,
		"user_id":       h.UserID,
		"name":          h.Name,
		"volume_ml":     h.VolumeML,
		"kind":          string(h.Kind),
		"created_at_ms": h.CreatedAt.UnixMilli(),
	}
}

// HashToHydration converts a Redis hash to a HydrationEntry.
func HashToHydration(hash map[string]string) (*HydrationEntry, error) {
	volume, err := strconv.ParseFloat(hash["volume_ml"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid volume_ml field: %w", err)
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &HydrationEntry{
		ID:        hash["id"],
		UserID:    hash["user_id"],
		Name:      hash["name"],
		VolumeML:  volume,
		Kind:      HydrationKind(hash["kind"]),
		CreatedAt: time.UnixMilli(createdAtMs),
	}, nil
}

// SupplementToHash converts a SupplementEntry to Redis hash format.
func SupplementToHash(s *SupplementEntry) map[string]interface{} {
	return map[string]interface{}{
		"id":            s.ID,
		"user_id":       s.UserID,
		"name":          s.Name,
		"dosage":        s.Dosage,
		"unit":          s.Unit,
		"frequency":     s.Frequency,
		"created_at_ms": s.CreatedAt.UnixMilli(),
	}
}

// HashToSupplement converts a Redis hash to a SupplementEntry.
func HashToSupplement(hash map[string]string) (*SupplementEntry, error) {
	dosage, err := strconv.ParseFloat(hash["dosage"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid dosage field: %w", err)
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &SupplementEntry{
		ID:        hash["id"],
		UserID:    hash["user_id"],
		Name:      hash["name"],
		Dosage:    dosage,
		Unit:      hash["unit"],
		Frequency: hash["frequency"],
		CreatedAt: time.UnixMilli(createdAtMs),
	}, nil
}
