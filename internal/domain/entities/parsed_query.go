package entities

// ParseSource identifies which parser path produced a ParsedQuery.
type ParseSource string

const (
	// ParseSourceAI marks a query parsed by the language model.
	ParseSourceAI ParseSource = "ai"

	// ParseSourceFallback marks a query parsed by the rule-based fallback.
	ParseSourceFallback ParseSource = "fallback"
)

// IntentSearch is the default intent when nothing more specific is detected.
const IntentSearch = "search"

// IntentGift marks queries with gift-shopping intent.
const IntentGift = "gift"

// PriceRange is an inclusive price filter. A nil bound is unbounded on that side.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// ParsedQuery is the structured filter extracted from a free-text search query.
// It is immutable after creation; Confidence is derived from what was
// extracted, never supplied by the caller.
type ParsedQuery struct {
	Intent       string      `json:"intent"`
	Category     string      `json:"category,omitempty"`
	Keywords     []string    `json:"keywords"`
	PriceRange   *PriceRange `json:"price_range,omitempty"`
	Occasion     string      `json:"occasion,omitempty"`
	Materials    []string    `json:"materials,omitempty"`
	Colors       []string    `json:"colors,omitempty"`
	Location     string      `json:"location,omitempty"`
	Style        string      `json:"style,omitempty"`
	Customizable *bool       `json:"customizable,omitempty"`
	Confidence   float64     `json:"confidence"`

	// Source records which parser produced the fields; FallbackReason is set
	// only when Source is ParseSourceFallback.
	Source         ParseSource `json:"source"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
}

// HasKeywords reports whether any keywords were extracted.
func (p *ParsedQuery) HasKeywords() bool {
	return len(p.Keywords) > 0
}

// JoinedKeywords returns the keywords joined with spaces.
func (p *ParsedQuery) JoinedKeywords() string {
	joined := ""
	for i, k := range p.Keywords {
		if i > 0 {
			joined += " "
		}
		joined += k
	}
	return joined
}
