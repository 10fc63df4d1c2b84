// Package catalog holds the read-only rental product reference data.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"rental-assistant/internal/domain"
)

//go:embed products.json
var defaultProducts []byte

// Catalog is an immutable, ordered set of products. It is safe for
// concurrent use without locking.
type Catalog struct {
	products []domain.Product
}

// Default loads the embedded reference catalog.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultProducts))
}

// Load decodes a JSON array of products and validates it.
func Load(r io.Reader) (*Catalog, error) {
	if r == nil {
		return nil, errors.New("catalog: reader must not be nil")
	}
	var products []domain.Product
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&products); err != nil {
		return nil, fmt.Errorf("catalog: decode products: %w", err)
	}
	return New(products)
}

// New validates products and returns a catalog that owns a copy of them.
func New(products []domain.Product) (*Catalog, error) {
	seen := make(map[string]struct{}, len(products))
	out := make([]domain.Product, 0, len(products))
	for i, p := range products {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" {
			return nil, fmt.Errorf("catalog: product %d has empty id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		seen[id] = struct{}{}
		if !p.AvailabilityStatus.Valid() {
			return nil, fmt.Errorf("catalog: product %q has invalid availability %q", p.ID, p.AvailabilityStatus)
		}
		if p.StockCount < 0 {
			return nil, fmt.Errorf("catalog: product %q has negative stock", p.ID)
		}
		if p.Rating < 0 || p.Rating > 5 {
			return nil, fmt.Errorf("catalog: product %q rating %v out of range", p.ID, p.Rating)
		}
		out = append(out, clone(p))
	}
	return &Catalog{products: out}, nil
}

// All returns every product in catalog order.
func (c *Catalog) All() []domain.Product {
	out := make([]domain.Product, len(c.products))
	for i, p := range c.products {
		out[i] = clone(p)
	}
	return out
}

// GetByID matches the id case-insensitively.
func (c *Catalog) GetByID(id string) (domain.Product, bool) {
	for _, p := range c.products {
		if strings.EqualFold(p.ID, id) {
			return clone(p), true
		}
	}
	return domain.Product{}, false
}

// Search returns products whose name, description, category or any feature
// contains query, ignoring case. An empty query returns the whole catalog.
func (c *Catalog) Search(query string) []domain.Product {
	q := strings.ToLower(query)
	if q == "" {
		return c.All()
	}
	out := []domain.Product{}
	for _, p := range c.products {
		if matches(p, q) {
			out = append(out, clone(p))
		}
	}
	return out
}

// ListAvailable summarises products with status Available as
// "name (category, $price/month)" joined by ", ".
func (c *Catalog) ListAvailable() string {
	parts := make([]string, 0, len(c.products))
	for _, p := range c.products {
		if p.AvailabilityStatus != domain.StatusAvailable {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s, $%.2f/month)", p.Name, p.Category, p.PricePerMonth))
	}
	return strings.Join(parts, ", ")
}

func matches(p domain.Product, q string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q) {
		return true
	}
	for _, f := range p.Features {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func clone(p domain.Product) domain.Product {
	p.Features = append([]string(nil), p.Features...)
	return p
}
