// Package products is the mock catalog served behind sign-in.
package products

import "time"

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Stock       int     `json:"stock"`
}

type ListResponse struct {
	Products  []Product `json:"products"`
	Total     int       `json:"total"`
	Timestamp string    `json:"timestamp"`
}

// isoMillis is RFC 3339 in UTC with millisecond precision.
const isoMillis = "2006-01-02T15:04:05.000Z"

var catalog = []Product{
	{
		ID:          "1",
		Name:        "Premium Headphones",
		Price:       299.99,
		Category:    "Electronics",
		Description: "High-quality wireless headphones with noise cancellation",
		Image:       "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500&h=500&fit=crop",
		Stock:       45,
	},
	{
		ID:          "2",
		Name:        "Smart Watch",
		Price:       399.99,
		Category:    "Electronics",
		Description: "Feature-rich smartwatch with health tracking",
		Image:       "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=500&h=500&fit=crop",
		Stock:       32,
	},
	{
		ID:          "3",
		Name:        "Laptop Stand",
		Price:       49.99,
		Category:    "Accessories",
		Description: "Ergonomic aluminum laptop stand",
		Image:       "https://images.unsplash.com/photo-1527864550417-7fd91fc51a46?w=500&h=500&fit=crop",
		Stock:       120,
	},
	{
		ID:          "4",
		Name:        "Mechanical Keyboard",
		Price:       149.99,
		Category:    "Electronics",
		Description: "RGB mechanical keyboard with custom switches",
		Image:       "https://images.unsplash.com/photo-1587829741301-dc798b83add3?w=500&h=500&fit=crop",
		Stock:       67,
	},
	{
		ID:          "5",
		Name:        "Wireless Mouse",
		Price:       79.99,
		Category:    "Electronics",
		Description: "Precision wireless mouse for productivity",
		Image:       "https://images.unsplash.com/photo-1527814050087-3793815479db?w=500&h=500&fit=crop",
		Stock:       89,
	},
	{
		ID:          "6",
		Name:        "USB-C Hub",
		Price:       59.99,
		Category:    "Accessories",
		Description: "Multi-port USB-C hub with HDMI and SD card reader",
		Image:       "https://images.unsplash.com/photo-1625948515291-69613efd103f?w=500&h=500&fit=crop",
		Stock:       156,
	},
}

// List returns the catalog stamped with now.
func List(now time.Time) ListResponse {
	items := make([]Product, len(catalog))
	copy(items, catalog)
	return ListResponse{
		Products:  items,
		Total:     len(items),
		Timestamp: now.UTC().Format(isoMillis),
	}
}
