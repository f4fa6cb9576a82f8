package config_test

import (
	"testing"
	"time"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadAPIDefaults(t *testing.T) {
	for _, key := range []string{
		"API_BIND_ADDR", "ANALYSIS_MAX_ARTICLES", "ARCHIVE_ENABLED", "KAFKA_BROKERS",
		"SERPER_ENDPOINT", "AI_MODEL", "AI_MAX_TOKENS", "TRANSCRIPT_BACKEND",
		"TRANSCRIPT_MAX_SESSIONS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.BindAddr)
	require.Equal(t, 10, cfg.MaxArticles)
	require.False(t, cfg.ArchiveEnabled)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, "news_analyzed", cfg.KafkaTopic)
	require.Equal(t, "https://google.serper.dev/news", cfg.Search.Endpoint)
	require.Equal(t, 15*time.Second, cfg.Search.Timeout)
	require.Equal(t, "@cf/meta/llama-3.3-70b-instruct-fp8-fast", cfg.AI.Model)
	require.Equal(t, 4096, cfg.AI.MaxTokens)
	require.Equal(t, config.BackendMemory, cfg.Transcript.Backend)
	require.Equal(t, 10000, cfg.Transcript.MaxSessions)
}

func TestLoadAPIOverrides(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("ANALYSIS_MAX_ARTICLES", "5")
	t.Setenv("ARCHIVE_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("SERPER_API_KEY", "secret")
	t.Setenv("AI_ACCOUNT_ID", "acct")
	t.Setenv("AI_TIMEOUT", "90s")
	t.Setenv("TRANSCRIPT_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "2")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 5, cfg.MaxArticles)
	require.True(t, cfg.ArchiveEnabled)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "secret", cfg.Search.APIKey)
	require.Equal(t, "acct", cfg.AI.AccountID)
	require.Equal(t, 90*time.Second, cfg.AI.Timeout)
	require.Equal(t, config.BackendRedis, cfg.Transcript.Backend)
	require.Equal(t, "redis:6380", cfg.Transcript.RedisAddr)
	require.Equal(t, 2, cfg.Transcript.RedisDB)
}

func TestLoadAPIValidation(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("TRANSCRIPT_BACKEND", "cassandra")
		_, err := config.LoadAPI()
		require.Error(t, err)
	})

	t.Run("zero session cap", func(t *testing.T) {
		t.Setenv("TRANSCRIPT_MAX_SESSIONS", "0")
		_, err := config.LoadAPI()
		require.Error(t, err)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("TRANSCRIPT_BACKEND", "postgres")
		t.Setenv("POSTGRES_DSN", "")
		_, err := config.LoadAPI()
		require.Error(t, err)
	})

	t.Run("page size above max", func(t *testing.T) {
		t.Setenv("API_PAGE_SIZE", "50")
		t.Setenv("API_MAX_PAGE_SIZE", "10")
		_, err := config.LoadAPI()
		require.Error(t, err)
	})

	t.Run("negative article bound", func(t *testing.T) {
		t.Setenv("ANALYSIS_MAX_ARTICLES", "-1")
		_, err := config.LoadAPI()
		require.Error(t, err)
	})
}

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "news_analysis", cfg.ElasticsearchIndex)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "news_analyzed", cfg.KafkaTopic)
	require.Equal(t, "archive-worker", cfg.KafkaConsumer)
	require.Equal(t, 10, cfg.ConnectRetries)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("WORKER_KEYWORD_LIMIT", "12")
	t.Setenv("WORKER_KEYWORD_MIN_LEN", "5")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")
	t.Setenv("WORKER_BATCH_SIZE", "3")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, 12, cfg.KeywordLimit)
	require.Equal(t, 5, cfg.KeywordMinLength)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.BatchSize)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "http://ret-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "ret-index")
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
	require.Equal(t, "http://ret-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "ret-index", cfg.ElasticsearchIndex)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("RETENTION_CRON", "soon")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, cfg.Interval)
}
