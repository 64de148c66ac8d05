package entities

// ProductSuggestion is a lightweight autocomplete hit from the product index.
type ProductSuggestion struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
}
