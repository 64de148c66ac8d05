package providers

import (
	"context"
	"errors"
)

// ErrLanguageModelUnavailable indicates the language model could not serve
// the request. Callers are expected to degrade to rule-based parsing.
var ErrLanguageModelUnavailable = errors.New("language model unavailable")

// LanguageModelProvider sends a prompt pair to an external language model and
// returns its raw text output. The output is untrusted: it may or may not
// contain the JSON the prompt asked for.
type LanguageModelProvider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
