package resolver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platewise/platewise/pkg/foodlog"
)

// LocalEstimator is a GenericEstimator backed by a builtin per-100g
// table of common foods. It stands in where no estimation service is
// configured; unknown foods return an error so the resolver's fallback
// takes over.
type LocalEstimator struct{}

// NewLocalEstimator creates a LocalEstimator.
func NewLocalEstimator() *LocalEstimator {
	return &LocalEstimator{}
}

type localEstimate struct {
	nutrition  foodlog.Nutrition
	confidence float64
}

// Per-100g values for foods common enough to ship builtin.
var localTable = map[string]localEstimate{
	"grilled chicken": {foodlog.Nutrition{Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6, Sodium: 74}, 85},
	"chicken breast":  {foodlog.Nutrition{Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6, Sodium: 74}, 85},
	"apple":           {foodlog.Nutrition{Calories: 52, Protein: 0.3, Carbs: 14, Fat: 0.2, Fiber: 2.4, Sugar: 10}, 90},
	"banana":          {foodlog.Nutrition{Calories: 89, Protein: 1.1, Carbs: 23, Fat: 0.3, Fiber: 2.6, Sugar: 12}, 90},
	"rice":            {foodlog.Nutrition{Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3}, 85},
	"egg":             {foodlog.Nutrition{Calories: 143, Protein: 12.6, Carbs: 0.7, Fat: 9.5, Sodium: 142}, 90},
	"milk":            {foodlog.Nutrition{Calories: 60, Protein: 3.4, Carbs: 4.7, Fat: 3.3, Sugar: 4.7, Sodium: 44}, 88},
	"bread":           {foodlog.Nutrition{Calories: 265, Protein: 9, Carbs: 49, Fat: 3.2, Fiber: 2.7, Sodium: 491}, 85},
	"peanut butter":   {foodlog.Nutrition{Calories: 588, Protein: 25, Carbs: 20, Fat: 50, Fiber: 6, Sugar: 9, Sodium: 426}, 88},
	"oats":            {foodlog.Nutrition{Calories: 389, Protein: 16.9, Carbs: 66, Fat: 6.9, Fiber: 10.6}, 88},
	"yogurt":          {foodlog.Nutrition{Calories: 59, Protein: 10, Carbs: 3.6, Fat: 0.7, Sugar: 3.2}, 85},
	"salmon":          {foodlog.Nutrition{Calories: 208, Protein: 20, Carbs: 0, Fat: 13, Sodium: 59}, 85},
	"pasta":           {foodlog.Nutrition{Calories: 131, Protein: 5, Carbs: 25, Fat: 1.1}, 82},
	"potato":          {foodlog.Nutrition{Calories: 77, Protein: 2, Carbs: 17, Fat: 0.1, Fiber: 2.2}, 88},
	"broccoli":        {foodlog.Nutrition{Calories: 34, Protein: 2.8, Carbs: 7, Fat: 0.4, Fiber: 2.6}, 88},
}

// EstimateGeneric looks the name up in the builtin table, longest
// matching key first.
func (e *LocalEstimator) EstimateGeneric(ctx context.Context, name string) (*GenericResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(name))
	if est, ok := localTable[needle]; ok {
		return &GenericResult{Nutrition: est.nutrition, Confidence: est.confidence}, nil
	}

	var best string
	for key := range localTable {
		if strings.Contains(needle, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return nil, fmt.Errorf("no generic estimate for %q", name)
	}

	est := localTable[best]
	return &GenericResult{Nutrition: est.nutrition, Confidence: est.confidence - 10}, nil
}

// LocalProducts is a packaged-product catalog loaded from a YAML file.
// It serves as both the barcode database and the branded lookup when no
// external product service is configured.
type LocalProducts struct {
	products []Product
}

type productFile struct {
	Products []struct {
		Barcode      string  `yaml:"barcode"`
		Name         string  `yaml:"name"`
		Brand        string  `yaml:"brand"`
		ServingGrams float64 `yaml:"serving_grams"`
		Nutrition    struct {
			Calories     float64 `yaml:"calories"`
			Protein      float64 `yaml:"protein"`
			Carbs        float64 `yaml:"carbs"`
			Fat          float64 `yaml:"fat"`
			Fiber        float64 `yaml:"fiber"`
			Sugar        float64 `yaml:"sugar"`
			Sodium       float64 `yaml:"sodium"`
			SaturatedFat float64 `yaml:"saturated_fat"`
		} `yaml:"nutrition"`
	} `yaml:"products"`
}

// NewLocalProducts creates a catalog from in-memory records.
func NewLocalProducts(products []Product) *LocalProducts {
	return &LocalProducts{products: products}
}

// LoadProducts reads a product catalog from a YAML file.
func LoadProducts(path string) (*LocalProducts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read product catalog: %w", err)
	}

	var file productFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse product catalog: %w", err)
	}

	products := make([]Product, 0, len(file.Products))
	for _, p := range file.Products {
		if p.Name == "" {
			return nil, fmt.Errorf("product catalog entry missing name")
		}
		products = append(products, Product{
			Barcode:      p.Barcode,
			Name:         p.Name,
			Brand:        p.Brand,
			ServingGrams: p.ServingGrams,
			Nutrition: foodlog.Nutrition{
				Calories:     p.Nutrition.Calories,
				Protein:      p.Nutrition.Protein,
				Carbs:        p.Nutrition.Carbs,
				Fat:          p.Nutrition.Fat,
				Fiber:        p.Nutrition.Fiber,
				Sugar:        p.Nutrition.Sugar,
				Sodium:       p.Nutrition.Sodium,
				SaturatedFat: p.Nutrition.SaturatedFat,
			},
		})
	}

	return &LocalProducts{products: products}, nil
}

// LookupProduct implements BarcodeLookup. Returns (nil, nil) on a miss.
func (l *LocalProducts) LookupProduct(ctx context.Context, barcode string) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range l.products {
		if l.products[i].Barcode != "" && l.products[i].Barcode == barcode {
			p := l.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

// LookupBranded implements BrandedLookup. A barcode match is near
// certain; a name match is much weaker.
func (l *LocalProducts) LookupBranded(ctx context.Context, q Query) (*BrandedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if q.Barcode != "" {
		product, err := l.LookupProduct(ctx, q.Barcode)
		if err != nil {
			return nil, err
		}
		if product != nil {
			return &BrandedResult{
				Found:       true,
				Confidence:  96,
				Nutrition:   product.Nutrition,
				ProductName: product.Name,
				BrandName:   product.Brand,
			}, nil
		}
	}

	needle := strings.ToLower(strings.TrimSpace(q.Name))
	if needle == "" {
		return &BrandedResult{Found: false}, nil
	}
	for i := range l.products {
		if strings.Contains(needle, strings.ToLower(l.products[i].Name)) ||
			strings.Contains(strings.ToLower(l.products[i].Name), needle) {
			return &BrandedResult{
				Found:       true,
				Confidence:  75,
				Nutrition:   l.products[i].Nutrition,
				ProductName: l.products[i].Name,
				BrandName:   l.products[i].Brand,
			}, nil
		}
	}

	return &BrandedResult{Found: false}, nil
}
