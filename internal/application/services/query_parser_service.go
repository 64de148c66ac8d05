package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/craftline/artisan-marketplace/internal/domain/entities"
	"github.com/craftline/artisan-marketplace/internal/domain/providers"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/clients/openai"
	"github.com/craftline/artisan-marketplace/internal/infrastructure/observability"
)

const (
	parseCachePrefix     = "query_parse:"
	parseCacheTTLSeconds = 86400 // 24 hours

	maxKeywords  = 8
	maxListTerms = 8
)

// UserContext carries optional shopper context forwarded to the language model.
type UserContext struct {
	UserID      string   `json:"user_id,omitempty"`
	UserType    string   `json:"user_type,omitempty"`
	SessionID   string   `json:"session_id,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}

// QueryParserService turns free-text shopping queries into structured
// ParsedQuery filters. The language model is the primary parser; a rule-based
// fallback guarantees a usable result when the model is unavailable or
// returns something other than the JSON it was asked for.
type QueryParserService struct {
	llm     providers.LanguageModelProvider
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewQueryParserService creates a parser service. Both the language model and
// the cache may be nil; parsing then runs purely on the fallback rules.
func NewQueryParserService(llm providers.LanguageModelProvider, cacheProvider providers.CacheProvider) *QueryParserService {
	return &QueryParserService{
		llm:   llm,
		cache: cacheProvider,
	}
}

// SetMetrics attaches fallback metrics recording.
func (s *QueryParserService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// llmParsedQuery is the JSON shape the extraction prompt asks the model for.
// Decoding is strict: unknown fields mark the whole response malformed.
type llmParsedQuery struct {
	Intent     string   `json:"intent"`
	Category   string   `json:"category"`
	Keywords   []string `json:"keywords"`
	PriceRange *struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"priceRange"`
	Occasion     string   `json:"occasion"`
	Materials    []string `json:"materials"`
	Colors       []string `json:"colors"`
	Location     string   `json:"location"`
	Style        string   `json:"style"`
	Customizable *bool    `json:"customizable"`
}

// Parse converts a raw query into a ParsedQuery. It never fails: any problem
// on the AI path degrades to the rule-based fallback, and the result records
// which path produced it.
func (s *QueryParserService) Parse(ctx context.Context, query string, userCtx *UserContext) *entities.ParsedQuery {
	normalized := entities.NormalizeQuery(query)
	if normalized == "" {
		return s.finalize(&entities.ParsedQuery{
			Intent:         entities.IntentSearch,
			Keywords:       []string{},
			Source:         entities.ParseSourceFallback,
			FallbackReason: "empty_query",
		})
	}

	cacheKey := parseCachePrefix + normalized
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached entities.ParsedQuery
			if json.Unmarshal(data, &cached) == nil {
				return &cached
			}
		}
	}

	parsed := s.parseWithModel(ctx, normalized, userCtx)
	if parsed == nil {
		parsed = s.parseFallback(normalized)
	}
	parsed = s.finalize(parsed)

	if s.cache != nil {
		if data, err := json.Marshal(parsed); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, parseCacheTTLSeconds)
		}
	}

	return parsed
}

func (s *QueryParserService) parseWithModel(ctx context.Context, query string, userCtx *UserContext) *entities.ParsedQuery {
	if s.llm == nil {
		return nil
	}

	userType := ""
	var preferences []string
	if userCtx != nil {
		userType = userCtx.UserType
		preferences = userCtx.Preferences
	}

	output, err := s.llm.Complete(ctx, openai.QueryExtractionSystemPrompt,
		openai.BuildQueryExtractionPrompt(query, userType, preferences))
	if err != nil {
		logger := observability.LoggerFromContext(ctx)
		logger.Warn().Err(err).Str("query", query).Msg("Language model unavailable, using fallback parser")
		observability.RecordFallback(ctx, s.metrics, "parse", "provider_unavailable")
		return nil
	}

	cleaned := openai.StripCodeFences(output)
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.DisallowUnknownFields()

	var raw llmParsedQuery
	if err := decoder.Decode(&raw); err != nil {
		logger := observability.LoggerFromContext(ctx)
		logger.Warn().Err(err).Str("query", query).Msg("Language model returned malformed JSON, using fallback parser")
		observability.RecordFallback(ctx, s.metrics, "parse", "malformed_output")
		return nil
	}

	return s.sanitize(&raw)
}

// sanitize maps the model output onto the domain type, discarding anything
// outside the allowed vocabularies rather than trusting the model.
func (s *QueryParserService) sanitize(raw *llmParsedQuery) *entities.ParsedQuery {
	parsed := &entities.ParsedQuery{
		Intent:   entities.IntentSearch,
		Keywords: []string{},
		Source:   entities.ParseSourceAI,
	}

	switch strings.ToLower(strings.TrimSpace(raw.Intent)) {
	case entities.IntentGift:
		parsed.Intent = entities.IntentGift
	case "browse":
		parsed.Intent = "browse"
	}

	parsed.Category = entities.CanonicalCategory(raw.Category)
	if parsed.Category == "" {
		parsed.Category = entities.MatchCategory(raw.Category)
	}
	parsed.Keywords = cleanTerms(raw.Keywords, maxKeywords)
	parsed.Materials = cleanTerms(raw.Materials, maxListTerms)
	parsed.Colors = cleanTerms(raw.Colors, maxListTerms)
	parsed.Occasion = strings.ToLower(strings.TrimSpace(raw.Occasion))
	parsed.Location = strings.TrimSpace(raw.Location)
	parsed.Style = strings.ToLower(strings.TrimSpace(raw.Style))
	parsed.Customizable = raw.Customizable

	if raw.PriceRange != nil {
		parsed.PriceRange = sanitizePriceRange(raw.PriceRange.Min, raw.PriceRange.Max)
	}

	return parsed
}

func sanitizePriceRange(min, max *float64) *entities.PriceRange {
	if min != nil && *min < 0 {
		min = nil
	}
	if max != nil && *max < 0 {
		max = nil
	}
	if min != nil && max != nil && *min > *max {
		return nil
	}
	if min == nil && max == nil {
		return nil
	}
	return &entities.PriceRange{Min: min, Max: max}
}

func cleanTerms(terms []string, limit int) []string {
	seen := make(map[string]struct{})
	cleaned := []string{}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		cleaned = append(cleaned, term)
		if len(cleaned) == limit {
			break
		}
	}
	return cleaned
}

var priceCeilingPattern = regexp.MustCompile(`(?:under|below|less than)\s+(?:rs\.?\s*|₹\s*|\$\s*)?(\d+(?:\.\d+)?)`)

var fallbackStopwords = map[string]struct{}{
	"and": {}, "for": {}, "from": {}, "the": {}, "with": {},
	"some": {}, "any": {}, "under": {}, "below": {}, "than": {}, "less": {},
}

var giftTerms = map[string]struct{}{
	"gift": {}, "gifts": {}, "present": {}, "presents": {},
}

// parseFallback extracts what it can from the query text alone: a price
// ceiling from "under N" phrasing, a category by vocabulary substring match,
// gift intent from gift words, and the remaining meaningful tokens as
// keywords.
func (s *QueryParserService) parseFallback(normalized string) *entities.ParsedQuery {
	parsed := &entities.ParsedQuery{
		Intent:         entities.IntentSearch,
		Keywords:       []string{},
		Source:         entities.ParseSourceFallback,
		FallbackReason: "rule_based",
	}

	remaining := normalized
	if match := priceCeilingPattern.FindStringSubmatch(normalized); match != nil {
		if ceiling, err := strconv.ParseFloat(match[1], 64); err == nil && ceiling >= 0 {
			parsed.PriceRange = &entities.PriceRange{Max: &ceiling}
			remaining = strings.Replace(remaining, match[0], " ", 1)
		}
	}

	parsed.Category = entities.MatchCategory(normalized)

	for _, token := range strings.Fields(remaining) {
		token = strings.Trim(token, ".,!?;:\"'()")
		if _, ok := giftTerms[token]; ok {
			parsed.Intent = entities.IntentGift
			continue
		}
		if len(token) <= 2 || isNumeric(token) {
			continue
		}
		if _, ok := fallbackStopwords[token]; ok {
			continue
		}
		parsed.Keywords = append(parsed.Keywords, token)
		if len(parsed.Keywords) == maxKeywords {
			break
		}
	}

	return parsed
}

func isNumeric(token string) bool {
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(token) > 0
}

// finalize derives the confidence score from what was extracted. Confidence
// is never taken from the model output.
func (s *QueryParserService) finalize(parsed *entities.ParsedQuery) *entities.ParsedQuery {
	confidence := 0.5
	if parsed.Category != "" {
		confidence += 0.15
	}
	if parsed.HasKeywords() {
		confidence += 0.15
	}
	if parsed.Intent != entities.IntentSearch {
		confidence += 0.1
	}
	if parsed.PriceRange != nil {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	parsed.Confidence = confidence
	return parsed
}
