package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/logger"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
)

// DefaultMaxArticles bounds how many hits go into one model call.
const DefaultMaxArticles = 10

// Searcher returns raw hits for a topic.
type Searcher interface {
	Search(ctx context.Context, topic string) ([]models.RawHit, error)
}

// Model runs a prompt and returns the provider output as text.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Pipeline turns a topic into analyzed articles with a single model round trip.
type Pipeline struct {
	search      Searcher
	model       Model
	maxArticles int
	log         *slog.Logger
}

// NewPipeline wires the collaborators; maxArticles <= 0 uses DefaultMaxArticles.
func NewPipeline(search Searcher, model Model, maxArticles int, log *slog.Logger) *Pipeline {
	if maxArticles <= 0 {
		maxArticles = DefaultMaxArticles
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{search: search, model: model, maxArticles: maxArticles, log: log}
}

// Analyze searches for topic and analyzes the hits. Only search failures are
// returned; model and parsing failures degrade the affected articles instead.
func (p *Pipeline) Analyze(ctx context.Context, topic string) ([]models.AnalyzedArticle, error) {
	hits, err := p.search.Search(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", topic, err)
	}
	if len(hits) > p.maxArticles {
		hits = hits[:p.maxArticles]
	}
	if len(hits) == 0 {
		p.log.Info("no search results", slog.String("topic", topic))
		return []models.AnalyzedArticle{}, nil
	}

	started := time.Now()
	text, err := p.model.Complete(ctx, BuildPrompt(hits))
	latency := time.Since(started)
	if err != nil {
		p.log.Warn("model call failed, returning degraded articles",
			slog.Any("err", err),
			slog.Int("hits", len(hits)),
			slog.Duration("latency", latency),
		)
		return Merge(hits, nil, err), nil
	}

	fragments, err := ExtractFragments(text)
	if err != nil {
		p.log.Warn("model output unusable, returning degraded articles",
			slog.Any("err", err),
			slog.Int("hits", len(hits)),
			slog.Int("response_len", len(text)),
		)
		return Merge(hits, nil, err), nil
	}

	if len(fragments) != len(hits) {
		p.log.Warn("fragment count differs from hit count",
			slog.Int("hits", len(hits)),
			slog.Int("fragments", len(fragments)),
		)
	}
	p.log.Info("analysis completed",
		slog.String("topic", topic),
		slog.Int("hits", len(hits)),
		slog.Duration("latency", latency),
	)
	return Merge(hits, fragments, nil), nil
}
