package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
)

// Extraction failures. They never reach API callers; Merge turns them into
// degraded articles whose reason carries the message.
var (
	ErrNoArrayFound        = errors.New("no JSON array found in response")
	ErrMalformedJSON       = errors.New("malformed JSON array")
	ErrEmptyOrInvalidShape = errors.New("invalid analysis format")
)

// ExtractFragments pulls the first bracket-balanced JSON array out of text and
// decodes it into fragments, one per element, in order.
//
// The bracket scan does not understand string literals. Balanced brackets
// inside strings are harmless, but a lone "]" or "[" inside a quoted value
// closes or deepens the candidate early and usually yields ErrMalformedJSON.
func ExtractFragments(text string) ([]models.AnalysisFragment, error) {
	candidate, err := firstArray(text)
	if err != nil {
		return nil, err
	}

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	items, ok := parsed.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: expected a non-empty array", ErrEmptyOrInvalidShape)
	}

	fragments := make([]models.AnalysisFragment, len(items))
	for i, item := range items {
		fragments[i] = toFragment(item)
	}
	return fragments, nil
}

func firstArray(text string) (string, error) {
	start := strings.IndexByte(text, '[')
	if start == -1 {
		return "", ErrNoArrayFound
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '[':
			depth++
		case ']':
			depth--
		}
		if depth == 0 {
			return text[start : i+1], nil
		}
	}
	return "", fmt.Errorf("%w: unterminated array", ErrMalformedJSON)
}

// toFragment keeps only fields of the expected JSON type; anything else is
// left zero so the merger falls back per field.
func toFragment(item any) models.AnalysisFragment {
	obj, ok := item.(map[string]any)
	if !ok {
		return models.AnalysisFragment{}
	}

	var f models.AnalysisFragment
	f.Summary, _ = obj["summary"].(string)
	f.Bias, _ = obj["bias"].(string)
	f.Reason, _ = obj["reason"].(string)
	if v, ok := obj["sentiment"].(float64); ok {
		f.Sentiment = &v
	}
	return f
}
