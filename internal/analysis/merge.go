package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/processing"
)

// Defaults applied when the model leaves a field unusable.
const (
	DefaultBias      = "Neutral"
	DefaultReason    = "AI analysis completed"
	MaxReasonLength  = 200
	DefaultSentiment = 0.0
)

// Merge zips hits with fragments by index. The result always has len(hits)
// entries. A nil failure with a fragment present applies per-field defaults;
// a missing fragment (failure set, or fewer fragments than hits) degrades the
// whole record and records why in Reason.
func Merge(hits []models.RawHit, fragments []models.AnalysisFragment, failure error) []models.AnalyzedArticle {
	out := make([]models.AnalyzedArticle, len(hits))
	for i, hit := range hits {
		if failure == nil && i < len(fragments) {
			out[i] = mergeOne(hit, fragments[i])
			continue
		}

		reason := fmt.Sprintf("no analysis returned for article %d", i+1)
		if failure != nil {
			reason = failure.Error()
		}
		out[i] = degraded(hit, reason)
	}
	return out
}

func mergeOne(hit models.RawHit, f models.AnalysisFragment) models.AnalyzedArticle {
	a := base(hit)
	if s := strings.TrimSpace(f.Summary); s != "" {
		a.Summary = s
	}
	if validSentiment(f.Sentiment) {
		a.Sentiment = *f.Sentiment
	}
	if b := strings.TrimSpace(f.Bias); b != "" {
		a.Bias = b
	}
	if r := strings.TrimSpace(f.Reason); r != "" {
		a.Reason = r
	}
	return a
}

func degraded(hit models.RawHit, reason string) models.AnalyzedArticle {
	a := base(hit)
	a.Reason = processing.Truncate(reason, MaxReasonLength)
	return a
}

func base(hit models.RawHit) models.AnalyzedArticle {
	return models.AnalyzedArticle{
		Title:     hit.Title,
		Snippet:   hit.Snippet,
		Summary:   hit.Snippet,
		Sentiment: DefaultSentiment,
		Bias:      DefaultBias,
		Reason:    DefaultReason,
		Link:      hit.Link,
		Source:    hit.Source,
		Date:      hit.Date,
	}
}

func validSentiment(v *float64) bool {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return false
	}
	return *v >= -1 && *v <= 1
}
