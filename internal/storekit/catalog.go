package storekit

import (
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
)

// Product is one consumable SKU in the store catalog. Each grants Credits
// report credits for a single category.
type Product struct {
	ID          string                      `json:"id"`
	DisplayName string                      `json:"display_name"`
	Category    creditdomain.ReportCategory `json:"category"`
	Credits     int                         `json:"credits"`
	Price       string                      `json:"price"`
	Currency    string                      `json:"currency"`
}

// Catalog is the fixed consumable product catalog. The platform is the
// source of truth for pricing; these entries mirror the configured SKUs.
type Catalog struct {
	products map[string]Product
	ordered  []Product
}

// NewCatalog builds the default catalog: one single-credit SKU per category.
func NewCatalog() *Catalog {
	return newCatalog([]Product{
		{ID: "report.career.single", DisplayName: "Career Report", Category: creditdomain.CategoryCareer, Credits: 1, Price: "4.99", Currency: "USD"},
		{ID: "report.relationships.single", DisplayName: "Relationships Report", Category: creditdomain.CategoryRelationships, Credits: 1, Price: "4.99", Currency: "USD"},
		{ID: "report.wellness.single", DisplayName: "Wellness Report", Category: creditdomain.CategoryWellness, Credits: 1, Price: "4.99", Currency: "USD"},
		{ID: "report.personality.single", DisplayName: "Personality Report", Category: creditdomain.CategoryPersonality, Credits: 1, Price: "4.99", Currency: "USD"},
	})
}

func newCatalog(products []Product) *Catalog {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &Catalog{products: byID, ordered: products}
}

// Find returns the product for the SKU, or false when it is not for sale.
func (c *Catalog) Find(productID string) (Product, bool) {
	p, ok := c.products[productID]
	return p, ok
}

// List returns all products in catalog order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.ordered))
	copy(out, c.ordered)
	return out
}
