package domain

// Category summarizes the products filed under one category name.
type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"productCount"`
	MinPrice     int64  `json:"minPrice"`
	MaxPrice     int64  `json:"maxPrice"`
}
