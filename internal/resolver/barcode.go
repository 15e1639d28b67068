package resolver

import (
	"context"

	"github.com/platewise/platewise/pkg/foodlog"
)

// Product is a packaged-product record from a barcode database.
// Nutrition is per 100g; ServingGrams is the declared serving when the
// database carries one.
type Product struct {
	Barcode      string
	Name         string
	Brand        string
	Nutrition    foodlog.Nutrition
	ServingGrams float64
}

// BarcodeLookup resolves a scanned barcode to a product record.
// Implementations return (nil, nil) for not-found so callers can
// distinguish a miss from a transport failure.
type BarcodeLookup interface {
	LookupProduct(ctx context.Context, barcode string) (*Product, error)
}
