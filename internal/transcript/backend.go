package transcript

import (
	"context"
	"fmt"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/config"
)

// OpenBackend builds the backend selected by cfg. The returned close func is
// never nil.
func OpenBackend(ctx context.Context, cfg config.Transcript) (Backend, func() error, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryBackend(), func() error { return nil }, nil
	case config.BackendRedis:
		b, err := NewRedisBackend(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case config.BackendPostgres:
		b, err := NewPostgresBackend(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown transcript backend %q", cfg.Backend)
	}
}
