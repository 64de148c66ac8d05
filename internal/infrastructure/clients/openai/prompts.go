package openai

import (
	"fmt"
	"strings"
)

// QueryExtractionSystemPrompt instructs the model to turn a shopping query
// into the constrained JSON object the parser validates against.
const QueryExtractionSystemPrompt = `You are a search assistant for a handmade artisan marketplace. Return ONLY valid JSON with this schema:
{
  "intent": string (one of: search, gift, browse),
  "category": string (one of: Pottery, Woodwork, Metalwork, Jewelry, Textiles, Leather Goods, Glasswork, Paintings, Home Decor; omit if unclear),
  "keywords": string[] (1-8 lowercase search terms),
  "priceRange": { "min": number, "max": number } (omit absent bounds),
  "occasion": string (e.g. wedding, birthday, anniversary; omit if none),
  "materials": string[] (lowercase, e.g. clay, oak, brass; omit if none),
  "colors": string[] (lowercase color names; omit if none),
  "location": string (seller region if the user asked for one; omit otherwise),
  "style": string (e.g. rustic, minimalist, traditional; omit if none),
  "customizable": boolean (only when the user asked for personalization)
}
Do not invent fields the query does not support. Do not add commentary.`

// BuildQueryExtractionPrompt renders the user prompt for query extraction,
// with optional shopper context appended.
func BuildQueryExtractionPrompt(query, userType string, preferences []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shopping query: %s\n", query)
	if userType != "" {
		fmt.Fprintf(&b, "Shopper type: %s\n", userType)
	}
	if len(preferences) > 0 {
		fmt.Fprintf(&b, "Known preferences: %s\n", strings.Join(preferences, ", "))
	}
	return b.String()
}

// StripCodeFences removes Markdown code fences around a model response.
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}
