package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/config"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
)

const redisKeyPrefix = "transcript:"

// RedisBackend stores each transcript as one JSON value under transcript:<key>.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies connectivity.
func NewRedisBackend(ctx context.Context, cfg config.Transcript) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	return &RedisBackend{client: client}, nil
}

func (r *RedisBackend) Load(ctx context.Context, key string) ([]models.ChatMessage, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return messages, nil
}

func (r *RedisBackend) Save(ctx context.Context, key string, messages []models.ChatMessage) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
