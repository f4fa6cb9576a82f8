package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
)

// BatchTimeout bounds how long the writer holds a partial batch. One request
// produces far fewer messages than the writer's batch size, so every flush is
// timer driven.
const BatchTimeout = 10 * time.Millisecond

// Publisher emits one AnalysisEvent per analyzed article.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher writes to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
		BatchTimeout: BatchTimeout,
	}}
}

// Publish writes the batch for one analysis request.
func (p *Publisher) Publish(ctx context.Context, topic string, articles []models.AnalyzedArticle) error {
	if len(articles) == 0 {
		return nil
	}
	msgs, err := BuildMessages(topic, time.Now().UTC(), articles)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write analysis events: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// BuildMessages encodes articles as events keyed by link, so every event for
// the same article lands on the same partition.
func BuildMessages(topic string, analyzedAt time.Time, articles []models.AnalyzedArticle) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(articles))
	for _, article := range articles {
		value, err := json.Marshal(models.AnalysisEvent{
			Topic:      topic,
			AnalyzedAt: analyzedAt,
			Article:    article,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal analysis event: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(article.Link), Value: value})
	}
	return msgs, nil
}
