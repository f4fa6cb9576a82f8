package transcript

import (
	"context"
	"sync"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
)

// MemoryBackend keeps transcripts in process memory. Contents are lost on restart.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]models.ChatMessage
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]models.ChatMessage)}
}

func (m *MemoryBackend) Load(_ context.Context, key string) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]models.ChatMessage, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, messages []models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]models.ChatMessage, len(messages))
	copy(stored, messages)
	m.data[key] = stored
	return nil
}
