package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	urlRegex    = regexp.MustCompile(`https?://[^\s]+`)
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "in": {}, "for": {}, "of": {},
	"and": {}, "or": {}, "but": {}, "on": {}, "at": {}, "by": {}, "with": {},
	"from": {}, "that": {}, "this": {}, "these": {}, "those": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "has": {}, "have": {},
	"had": {}, "will": {}, "would": {}, "could": {}, "should": {}, "about": {},
	"after": {}, "over": {}, "into": {}, "their": {}, "they": {}, "said": {},
	"says": {}, "more": {}, "than": {}, "what": {}, "which": {}, "who": {},
}

// StripMarkup returns the visible text of an HTML fragment with entities
// decoded and whitespace squeezed. Plain text passes through unchanged apart
// from whitespace.
func StripMarkup(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	text := input
	if strings.ContainsAny(input, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
		if err == nil {
			text = doc.Text()
		} else {
			text = html.UnescapeString(input)
		}
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// CleanText strips HTML entities, punctuation, squeezes whitespace, and removes URLs.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	decoded = urlRegex.ReplaceAllString(decoded, " ")
	decoded = punctuation.ReplaceAllString(decoded, " ")
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// ExtractKeywords returns the most frequent words that are not stop-words.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(CleanText(text))
	if clean == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, token := range strings.Fields(clean) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len([]rune(token)) < minLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		freq[token]++
	}

	if len(freq) == 0 {
		return nil
	}

	words := make([]string, 0, len(freq))
	for word := range freq {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] == freq[words[j]] {
			return words[i] < words[j]
		}
		return freq[words[i]] > freq[words[j]]
	})

	if limit > 0 && limit < len(words) {
		words = words[:limit]
	}
	return words
}

// BuildDocumentID hashes the article link, which identifies a search hit.
// Surrounding whitespace and a trailing slash do not change the ID.
func BuildDocumentID(link string) string {
	link = strings.TrimSuffix(strings.TrimSpace(link), "/")
	if link == "" {
		return ""
	}
	s := sha1.Sum([]byte(link))
	return hex.EncodeToString(s[:])
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
