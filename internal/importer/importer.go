// Package importer loads catalog CSV exports into the product repository.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ynachiket/acp-checkout-poc/internal/domain"
	productsvc "github.com/ynachiket/acp-checkout-poc/internal/service/product"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog rows keyed by GTIN and upserts products.
//
// Expected columns: gtin, id, title, description, brand, category, price,
// currency, availability, customizable, sizes, image_url. Only gtin, title
// and price are required. A row with an empty gtin and an image_url adds
// another image to the product above it.
type CSVImporter struct {
	reader          *csv.Reader
	productRepo     ProductWriter
	defaultCurrency string
}

func NewCSVImporter(r io.Reader, repo ProductWriter, defaultCurrency string) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:          csvr,
		productRepo:     repo,
		defaultCurrency: strings.ToUpper(defaultCurrency),
	}
}

// Run parses CSV rows and upserts one product per gtin row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["gtin"]; !ok {
		return 0, errors.New("read headers: gtin column is required")
	}

	var (
		current  *domain.Product
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		gtin := pick(record, index, "gtin")
		image := pick(record, index, "image_url")
		if gtin == "" {
			// Continuation rows (images) belong to the current product.
			if current != nil && image != "" {
				current.Images = append(current.Images, image)
			}
			continue
		}

		if current != nil {
			if err := i.save(ctx, current); err != nil {
				return imported, err
			}
			imported++
		}
		current, err = i.parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, p *domain.Product) error {
	if _, err := i.productRepo.Upsert(ctx, *p); err != nil {
		return fmt.Errorf("upsert product %q: %w", p.GTIN, err)
	}
	return nil
}

func (i *CSVImporter) parseRow(record []string, index map[string]int) (*domain.Product, error) {
	gtin := pick(record, index, "gtin")
	if err := productsvc.ValidateGTIN(gtin); err != nil {
		return nil, err
	}
	title := pick(record, index, "title")
	if title == "" {
		return nil, fmt.Errorf("product %s: title is required", gtin)
	}
	price, err := domain.NewAmount(pick(record, index, "price"))
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", gtin, err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("product %s: price must not be negative", gtin)
	}

	p := &domain.Product{
		ID:           pick(record, index, "id"),
		GTIN:         gtin,
		Title:        title,
		Description:  pick(record, index, "description"),
		Brand:        pick(record, index, "brand"),
		Category:     pick(record, index, "category"),
		Price:        price.Round2(),
		Currency:     strings.ToUpper(pick(record, index, "currency")),
		Availability: domain.Availability(pick(record, index, "availability")),
	}
	if p.ID == "" {
		p.ID = "prod-" + gtin
	}
	if p.Currency == "" {
		p.Currency = i.defaultCurrency
	}
	switch p.Availability {
	case "":
		p.Availability = domain.InStock
	case domain.InStock, domain.OutOfStock:
	default:
		return nil, fmt.Errorf("product %s: unknown availability %q", gtin, p.Availability)
	}
	if raw := pick(record, index, "customizable"); raw != "" {
		p.Customizable, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("product %s: customizable: %w", gtin, err)
		}
	}
	for _, size := range strings.Split(pick(record, index, "sizes"), ";") {
		if size = strings.TrimSpace(size); size != "" {
			p.Variants = append(p.Variants, map[string]string{"size": size})
		}
	}
	if image := pick(record, index, "image_url"); image != "" {
		p.Images = []string{image}
	}
	return p, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
