package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PageSize is the fixed number of listings per page.
const PageSize = 12

// UnknownSeller is shown when a listing's seller has no profile.
const UnknownSeller = "Unknown Seller"

// Categories is the fixed category list offered by the sell form and filters.
var Categories = []string{"Technology", "Clothing", "Sports", "Home & Garden", "Books"}

func IsCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

type Product struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Category    string          `db:"category" json:"category"`
	ImageURL    string          `db:"image_url" json:"image_url"`
	SellerID    string          `db:"seller_id" json:"seller_id"`
	Sold        bool            `db:"sold" json:"sold"`
	CreatedAt   string          `db:"created_at" json:"created_at"`

	// Seller display fields, filled by joins on profiles.
	SellerName      string `db:"seller_name" json:"seller_name"`
	SellerAvatar    string `db:"seller_avatar" json:"seller_avatar,omitempty"`
	SellerFirstName string `db:"seller_first_name" json:"-"`
	SellerLastName  string `db:"seller_last_name" json:"-"`
}

// PriceRef is the authoritative price/seller pair used during fulfillment.
type PriceRef struct {
	ProductID string          `db:"id"`
	Price     decimal.Decimal `db:"price"`
	SellerID  string          `db:"seller_id"`
}

type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
)

// ParseSort falls back to newest for anything unknown.
func ParseSort(s string) Sort {
	switch Sort(strings.TrimSpace(s)) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	default:
		return SortNewest
	}
}

type ListingFilter struct {
	Page     int
	Category string // "" means all
	Sort     Sort
	Search   string
}

type ListingPage struct {
	Products   []Product `json:"products"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Total      int       `json:"total"`
}

// TotalPages is ceil(count / PageSize).
func TotalPages(count int) int {
	if count <= 0 {
		return 0
	}
	return (count + PageSize - 1) / PageSize
}
