package entities

import (
	"strings"
	"time"
)

// Product represents a catalog item listed by an artisan seller.
type Product struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Description       string    `json:"description" db:"description"`
	Category          string    `json:"category" db:"category"`
	CraftType         string    `json:"craft_type" db:"craft_type"`
	Price             float64   `json:"price" db:"price"`
	Tags              []string  `json:"tags" db:"tags"`
	SellerID          string    `json:"seller_id" db:"seller_id"`
	SellerLocation    string    `json:"seller_location" db:"seller_location"`
	Views             int       `json:"views" db:"views"`
	Likes             int       `json:"likes" db:"likes"`
	Rating            float64   `json:"rating" db:"rating"`
	IsCustomizable    bool      `json:"is_customizable" db:"is_customizable"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	AvailableQuantity int       `json:"available_quantity" db:"available_quantity"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// ProductCategories is the canonical category vocabulary for the catalog.
var ProductCategories = []string{
	"Pottery",
	"Woodwork",
	"Metalwork",
	"Jewelry",
	"Textiles",
	"Leather Goods",
	"Glasswork",
	"Paintings",
	"Home Decor",
}

// IsValidCategory reports whether category is part of the canonical vocabulary.
// Matching is case-insensitive; the canonical casing should be used for storage.
func IsValidCategory(category string) bool {
	for _, c := range ProductCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// CanonicalCategory returns the canonical casing for a category name,
// or the empty string if the name is not in the vocabulary.
func CanonicalCategory(category string) string {
	for _, c := range ProductCategories {
		if strings.EqualFold(c, category) {
			return c
		}
	}
	return ""
}

// categoryVocabulary maps informal material and craft terms onto canonical
// categories. Checked in order; the first matching term wins.
var categoryVocabulary = []struct {
	Term     string
	Category string
}{
	{"wood", "Woodwork"},
	{"metal", "Metalwork"},
	{"pottery", "Pottery"},
	{"ceramic", "Pottery"},
	{"clay", "Pottery"},
	{"jewel", "Jewelry"},
	{"textile", "Textiles"},
	{"fabric", "Textiles"},
	{"weav", "Textiles"},
	{"leather", "Leather Goods"},
	{"glass", "Glasswork"},
	{"paint", "Paintings"},
	{"decor", "Home Decor"},
}

// MatchCategory resolves free text to a canonical category by substring match
// against the informal vocabulary, so "wooden jewelry box" lands on Woodwork
// and "ceramic bowl" on Pottery. Returns "" when nothing matches.
func MatchCategory(text string) string {
	text = strings.ToLower(text)
	for _, entry := range categoryVocabulary {
		if strings.Contains(text, entry.Term) {
			return entry.Category
		}
	}
	return ""
}
