// Package model defines the normalized marketplace entities shared by services and controllers.
package model

// Product is the stable client-side product shape. Instances are rebuilt on
// every fetch and never mutated in place.
type Product struct {
	ID            string   `json:"id"` // backend numeric or string id, always coerced to string
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"` // pre-discount price, nil when absent
	Discount      *float64 `json:"discount,omitempty"`      // percentage, nil when absent
	Image         string   `json:"image"`
	Images        []string `json:"images,omitempty"`
	CategoryID    string   `json:"categoryId"` // empty when unknown
	Rating        float64  `json:"rating"`     // 0..5
	ReviewsCount  int      `json:"reviewsCount"`
	InStock       bool     `json:"inStock"`
}

// Seller identifies the user who listed a product.
type Seller struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductDetail is a product plus the optional seller info the detail
// endpoint returns.
type ProductDetail struct {
	Product
	Seller *Seller `json:"seller,omitempty"`
}

// Category is a product category. ProductCount stays 0 while the backend
// supplies no aggregate counts.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	ProductCount int    `json:"productCount"`
}

// CartLine pairs a product with a quantity. Quantity is >= 1 for as long as
// the line exists; a line dropping to zero is removed, never retained.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// User is the authenticated account profile.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Filter narrows a product listing. A nil pointer (or empty Search) means no
// constraint on that dimension. Min/max are inclusive bounds.
type Filter struct {
	CategoryID *string  `json:"categoryId,omitempty"`
	MinPrice   *float64 `json:"minPrice,omitempty"`
	MaxPrice   *float64 `json:"maxPrice,omitempty"`
	Search     string   `json:"search,omitempty"`
}

// IsZero reports whether no dimension is constrained.
func (f Filter) IsZero() bool {
	return f.CategoryID == nil && f.MinPrice == nil && f.MaxPrice == nil && f.Search == ""
}

// Matches applies the category and price checks to a product. The free-text
// term is a server-side concern and is not evaluated here.
func (f Filter) Matches(p Product) bool {
	if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}

// PageInfo describes the position of one fetched page. TotalItems and
// TotalPages are 0 when the backend reports no totals.
type PageInfo struct {
	Page       int  `json:"page"` // 1-based
	PageSize   int  `json:"pageSize"`
	TotalItems int  `json:"totalItems,omitempty"`
	TotalPages int  `json:"totalPages,omitempty"`
	HasNext    bool `json:"hasNext"`
}

// ProductPage is one page of a listing plus its pagination state.
type ProductPage struct {
	Items []Product `json:"items"`
	Page  PageInfo  `json:"pagination"`
}
