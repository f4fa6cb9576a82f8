package analysis

import (
	"fmt"
	"strings"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
)

const instructions = `You are BiasHunter, an AI that summarizes and evaluates the bias of news articles.

For each article provided:
1. Summarize the content in 200-250 words with detailed analysis.
2. Assign:
   - A sentiment score between -1 (very negative) and +1 (very positive)
   - A political bias label: Left / Center / Right / Neutral
3. Justify the bias classification with one concise reason.

Answer with one JSON object per article, in the same order as the articles are
numbered, so the array has exactly as many elements as there are articles:
[
  {
    "summary": "",
    "sentiment": 0.0,
    "bias": "",
    "reason": ""
  }
]

Return ONLY the JSON array, no additional text.`

// BuildPrompt renders the batch prompt for hits, numbered from 1.
func BuildPrompt(hits []models.RawHit) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nArticles:\n")
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Article %d: %s\n%s", i+1, hit.Title, hit.Snippet)
	}
	return b.String()
}
