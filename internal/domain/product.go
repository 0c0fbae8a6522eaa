package domain

import "time"

// Product is a catalog entry. Name is the unique key across the catalog.
type Product struct {
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Unit        string    `json:"unit"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CatalogEntry is the slice of a product the cart reconciler needs.
type CatalogEntry struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// UploadedProduct is a fully validated bulk-upload record ready for upsert.
type UploadedProduct struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
	Price       int64  `json:"price"`
	Description string `json:"description,omitempty"`
}

// Product converts the upload record into a catalog product.
func (u UploadedProduct) Product() Product {
	return Product{
		Name:        u.Name,
		Category:    u.Category,
		Unit:        u.Unit,
		Description: u.Description,
		Price:       u.Price,
	}
}

// Catalog projects products into reconciler entries.
func Catalog(products []Product) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(products))
	for _, p := range products {
		out = append(out, CatalogEntry{Name: p.Name, Price: p.Price})
	}
	return out
}
