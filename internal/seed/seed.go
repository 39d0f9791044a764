package seed

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
)

type productUpserter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type productSeed struct {
	ID          string
	GTIN        string
	MPN         string
	Title       string
	Description string
	Brand       string
	Category    string
	Price       string
	Images      []string
	Variants    []map[string]string
}

var products = []productSeed{
	{
		ID:          "nike-air-max-90-white",
		GTIN:        "00883419552502",
		MPN:         "CW2288-111",
		Title:       "Nike Air Max 90",
		Description: "Classic runner with the Waffle outsole, stitched overlays and visible Max Air cushioning.",
		Brand:       "Nike",
		Category:    "Shoes > Running > Sneakers",
		Price:       "120.00",
		Images:      []string{"https://static.nike.com/a/images/air-max-90-white.jpg"},
		Variants: []map[string]string{
			{"size": "8", "size_system": "US", "gtin": "00883419552502"},
			{"size": "9", "size_system": "US", "gtin": "00883419552503"},
			{"size": "10", "size_system": "US", "gtin": "00883419552504"},
		},
	},
	{
		ID:          "nike-air-max-270-black",
		GTIN:        "00883419552510",
		MPN:         "AH8050-002",
		Title:       "Nike Air Max 270",
		Description: "Lifestyle sneaker built around a large heel Air unit for an all-day soft ride.",
		Brand:       "Nike",
		Category:    "Shoes > Lifestyle > Sneakers",
		Price:       "150.00",
	},
	{
		ID:          "nike-pegasus-40",
		GTIN:        "00883419552520",
		MPN:         "DV3853-100",
		Title:       "Nike Pegasus 40",
		Description: "Responsive daily trainer with balanced cushioning for road miles.",
		Brand:       "Nike",
		Category:    "Shoes > Running > Road Running",
		Price:       "140.00",
	},
	{
		ID:          "nike-dunk-low-retro",
		GTIN:        "00883419552530",
		MPN:         "DD1391-100",
		Title:       "Nike Dunk Low Retro",
		Description: "The 1980s basketball shoe returns with a padded low-cut collar and classic overlays.",
		Brand:       "Nike",
		Category:    "Shoes > Lifestyle > Sneakers",
		Price:       "110.00",
	},
	{
		ID:          "nike-air-force-1-07",
		GTIN:        "00883419552540",
		MPN:         "CW2288-111",
		Title:       "Nike Air Force 1 '07",
		Description: "The hardwood original with crisp leather and Air cushioning underfoot.",
		Brand:       "Nike",
		Category:    "Shoes > Lifestyle > Sneakers",
		Price:       "115.00",
	},
	{
		ID:          "nike-dri-fit-training-shirt",
		GTIN:        "00883419552550",
		MPN:         "BV6708-010",
		Title:       "Nike Dri-FIT Training Shirt",
		Description: "Sweat-wicking training tee that keeps you dry through hard sessions.",
		Brand:       "Nike",
		Category:    "Apparel > Training > Shirts",
		Price:       "35.00",
	},
	{
		ID:          "nike-sportswear-tech-fleece",
		GTIN:        "00883419552560",
		MPN:         "CU4489-063",
		Title:       "Nike Sportswear Tech Fleece Hoodie",
		Description: "Lightweight fleece hoodie, smooth outside and brushed soft inside.",
		Brand:       "Nike Sportswear",
		Category:    "Apparel > Lifestyle > Hoodies",
		Price:       "130.00",
	},
	{
		ID:          "nike-pro-365-leggings",
		GTIN:        "00883419552570",
		MPN:         "DD0252-010",
		Title:       "Nike Pro 365 Women's High-Waisted Leggings",
		Description: "Stretchy sweat-wicking leggings with a supportive high waistband.",
		Brand:       "Nike",
		Category:    "Apparel > Training > Leggings",
		Price:       "50.00",
	},
	{
		ID:          "nike-react-infinity-run-4",
		GTIN:        "00883419552580",
		MPN:         "DR2665-101",
		Title:       "Nike React Infinity Run Flyknit 4",
		Description: "Stable, soft road shoe designed to keep you running.",
		Brand:       "Nike",
		Category:    "Shoes > Running > Road Running",
		Price:       "160.00",
	},
	{
		ID:          "nike-metcon-9",
		GTIN:        "00883419552590",
		MPN:         "DZ2617-010",
		Title:       "Nike Metcon 9",
		Description: "Cross-training shoe with a wide, stable heel for lifting and conditioning.",
		Brand:       "Nike",
		Category:    "Shoes > Training > Cross Training",
		Price:       "150.00",
	},
}

// Catalog returns the demo catalog as domain products.
func Catalog() []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		out = append(out, domain.Product{
			ID:           p.ID,
			GTIN:         p.GTIN,
			MPN:          p.MPN,
			Title:        p.Title,
			Description:  p.Description,
			Brand:        p.Brand,
			Category:     p.Category,
			Price:        domain.MustAmount(p.Price),
			Currency:     "USD",
			Availability: domain.InStock,
			Images:       p.Images,
			Variants:     p.Variants,
		})
	}
	return out
}

// Apply upserts the demo catalog. Running it twice leaves the same rows.
func Apply(ctx context.Context, repo productUpserter, logger *log.Logger) (int, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	catalog := Catalog()
	for _, p := range catalog {
		if _, err := repo.Upsert(ctx, p); err != nil {
			return 0, fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
		logger.Printf("seed: upserted product id=%s gtin=%s", p.ID, p.GTIN)
	}
	return len(catalog), nil
}
