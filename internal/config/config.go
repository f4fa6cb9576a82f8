package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Transcript backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Search configures the news search provider.
type Search struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// AI configures the Workers AI text generation endpoint.
type AI struct {
	BaseURL   string
	AccountID string
	APIToken  string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Transcript selects and configures the chat transcript backend.
type Transcript struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PostgresDSN   string
	MaxSessions   int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr       string
	DefaultPage    int
	MaxPage        int
	MaxArticles    int
	ArchiveEnabled bool
	KafkaBrokers   []string
	KafkaTopic     string
	Search         Search
	AI             AI
	Transcript     Transcript
}

// Worker holds configuration for the Kafka -> Elasticsearch archive worker.
type Worker struct {
	Common
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaConsumer    string
	KeywordLimit     int
	KeywordMinLength int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
	ConnectRetries   int
}

// Retention configures the archive cleanup loop.
type Retention struct {
	Common
	Interval       time.Duration
	MaxAge         time.Duration
	BatchSize      int
	ConnectRetries int
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "news_analysis"),
	}
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:         loadCommon(),
		BindAddr:       getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage:    getInt("API_PAGE_SIZE", 20),
		MaxPage:        getInt("API_MAX_PAGE_SIZE", 100),
		MaxArticles:    getInt("ANALYSIS_MAX_ARTICLES", 10),
		ArchiveEnabled: getBool("ARCHIVE_ENABLED", false),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "news_analyzed"),
		Search: Search{
			Endpoint: getEnv("SERPER_ENDPOINT", "https://google.serper.dev/news"),
			APIKey:   getEnv("SERPER_API_KEY", ""),
			Timeout:  getDuration("SEARCH_TIMEOUT", "15s"),
		},
		AI: AI{
			BaseURL:   getEnv("AI_BASE_URL", "https://api.cloudflare.com/client/v4"),
			AccountID: getEnv("AI_ACCOUNT_ID", ""),
			APIToken:  getEnv("AI_API_TOKEN", ""),
			Model:     getEnv("AI_MODEL", "@cf/meta/llama-3.3-70b-instruct-fp8-fast"),
			MaxTokens: getInt("AI_MAX_TOKENS", 4096),
			Timeout:   getDuration("AI_TIMEOUT", "60s"),
		},
		Transcript: Transcript{
			Backend:       strings.ToLower(getEnv("TRANSCRIPT_BACKEND", BackendMemory)),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getInt("REDIS_DB", 0),
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			MaxSessions:   getInt("TRANSCRIPT_MAX_SESSIONS", 10000),
		},
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.MaxArticles <= 0 {
		return nil, fmt.Errorf("ANALYSIS_MAX_ARTICLES must be positive")
	}
	if c.AI.MaxTokens <= 0 {
		return nil, fmt.Errorf("AI_MAX_TOKENS must be positive")
	}
	if c.AI.Model == "" {
		return nil, fmt.Errorf("AI_MODEL cannot be empty")
	}

	if c.Transcript.MaxSessions <= 0 {
		return nil, fmt.Errorf("TRANSCRIPT_MAX_SESSIONS must be positive")
	}

	switch c.Transcript.Backend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.Transcript.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for the postgres transcript backend")
		}
	default:
		return nil, fmt.Errorf("unknown TRANSCRIPT_BACKEND %q", c.Transcript.Backend)
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:           loadCommon(),
		KafkaBrokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "news_analyzed"),
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "archive-worker"),
		KeywordLimit:     getInt("WORKER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("WORKER_KEYWORD_MIN_LEN", 4),
		DedupeCapacity:   getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:        getInt("WORKER_BATCH_SIZE", 10),
		ConnectRetries:   getInt("ELASTICSEARCH_CONNECT_RETRIES", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_MIN_LEN cannot be negative")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:         loadCommon(),
		Interval:       getDuration("RETENTION_CRON", "24h"),
		MaxAge:         getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize:      getInt("RETENTION_BATCH_SIZE", 500),
		ConnectRetries: getInt("ELASTICSEARCH_CONNECT_RETRIES", 10),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDuration panics only when the hardcoded fallback is itself invalid.
func getDuration(key, fallback string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, fallback)); err == nil {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, err))
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
