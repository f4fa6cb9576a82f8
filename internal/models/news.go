package models

import "time"

// RawHit is a single search result before any analysis.
type RawHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source,omitempty"`
	Date    string `json:"date,omitempty"`
}

// AnalysisFragment is one model-produced record, aligned by position with the
// hit it describes. A nil Sentiment means the model did not return a number.
type AnalysisFragment struct {
	Summary   string
	Sentiment *float64
	Bias      string
	Reason    string
}

// AnalyzedArticle is a hit enriched with its analysis; it is what the API returns.
type AnalyzedArticle struct {
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Summary   string  `json:"summary"`
	Sentiment float64 `json:"sentiment"`
	Bias      string  `json:"bias"`
	Reason    string  `json:"reason"`
	Link      string  `json:"link"`
	Source    string  `json:"source,omitempty"`
	Date      string  `json:"date,omitempty"`
}

// AnalysisEvent is published once per analyzed article for the archive worker.
type AnalysisEvent struct {
	Topic      string          `json:"topic"`
	AnalyzedAt time.Time       `json:"analyzed_at"`
	Article    AnalyzedArticle `json:"article"`
}

// ArchivedArticle is the document stored in Elasticsearch.
type ArchivedArticle struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	Summary   string    `json:"summary"`
	Link      string    `json:"link"`
	Source    string    `json:"source"`
	Date      string    `json:"date,omitempty"`
	Sentiment float64   `json:"sentiment"`
	Bias      string    `json:"bias"`
	Reason    string    `json:"reason"`
	Topic     string    `json:"topic"`
	Keywords  []string  `json:"keywords"`
	Timestamp time.Time `json:"timestamp"`
}
