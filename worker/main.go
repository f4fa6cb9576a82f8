package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/config"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/dedupe"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/elasticsearch"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/logger"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/processing"
)

type articleIndexer interface {
	IndexArticle(ctx context.Context, doc models.ArchivedArticle) error
}

func main() {
	_ = godotenv.Load()

	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, cfg.ConnectRetries, log)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("shutdown signal received during startup")
			return
		}
		log.Error("connect elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	if err := esClient.EnsureIndex(ctx); err != nil {
		log.Error("ensure archive index", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       dlqTopic,
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, esClient, cache, cfg, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !sendToDLQ(ctx, log, dlqWriter, msg, err) {
				if ctx.Err() != nil {
					return
				}
				// leave uncommitted so the event is redelivered after restart
				log.Error("DLQ write exhausted retries",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// sendToDLQ forwards msg with failure headers, retrying with exponential
// backoff. It reports whether the write succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, w *kafka.Writer, msg kafka.Message, cause error) bool {
	dlqMsg := dlqMessage(msg, cause, time.Now())
	for attempt := 0; attempt < 5; attempt++ {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}
	return false
}

func dlqMessage(msg kafka.Message, cause error, at time.Time) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "timestamp", Value: []byte(at.UTC().Format(time.RFC3339))},
	)
	return kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}
}

func processMessage(ctx context.Context, log *slog.Logger, idx articleIndexer, cache *dedupe.Cache, cfg *config.Worker, msg kafka.Message) error {
	var event models.AnalysisEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode analysis event: %w", err)
	}

	doc, err := buildArchived(event, cfg)
	if err != nil {
		return err
	}

	key := dedupeKey(doc.ID, event.AnalyzedAt)
	if cache.IsSeen(key) {
		log.Debug("duplicate analysis", slog.String("id", doc.ID))
		return nil
	}

	if err := idx.IndexArticle(ctx, doc); err != nil {
		return err
	}

	cache.MarkSeen(key)
	log.Info("archived analysis",
		slog.String("id", doc.ID),
		slog.String("topic", doc.Topic),
		slog.String("bias", doc.Bias),
	)
	return nil
}

// dedupeKey identifies one analysis of one article. A redelivered event has
// the same key; a later analysis of the same link does not, so it replaces
// the archived document.
func dedupeKey(id string, analyzedAt time.Time) string {
	return id + "@" + analyzedAt.UTC().Format(time.RFC3339Nano)
}

func buildArchived(event models.AnalysisEvent, cfg *config.Worker) (models.ArchivedArticle, error) {
	a := event.Article
	title := strings.TrimSpace(a.Title)
	link := strings.TrimSpace(a.Link)
	if title == "" && link == "" {
		return models.ArchivedArticle{}, errors.New("event has neither title nor link")
	}

	id := processing.BuildDocumentID(link)
	if id == "" {
		id = uuid.NewString()
	}

	source := strings.TrimSpace(a.Source)
	if source == "" {
		source = "unknown"
	}

	ts := event.AnalyzedAt.UTC()
	if event.AnalyzedAt.IsZero() {
		ts = time.Now().UTC()
	}

	return models.ArchivedArticle{
		ID:        id,
		Title:     title,
		Snippet:   a.Snippet,
		Summary:   a.Summary,
		Link:      link,
		Source:    source,
		Date:      a.Date,
		Sentiment: a.Sentiment,
		Bias:      a.Bias,
		Reason:    a.Reason,
		Topic:     strings.TrimSpace(event.Topic),
		Keywords:  processing.ExtractKeywords(title+" "+a.Summary, cfg.KeywordLimit, cfg.KeywordMinLength),
		Timestamp: ts,
	}, nil
}
