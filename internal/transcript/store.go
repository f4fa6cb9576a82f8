package transcript

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
)

// Backend persists whole transcripts by session key. Load returns a nil slice
// and no error when nothing has been stored for key.
type Backend interface {
	Load(ctx context.Context, key string) ([]models.ChatMessage, error)
	Save(ctx context.Context, key string, messages []models.ChatMessage) error
}

// Store is the transcript of one session. It loads lazily on the first
// operation and writes the full log back on every mutation. All operations
// on a Store are serialized.
type Store struct {
	key     string
	backend Backend

	mu       sync.Mutex
	loaded   bool
	messages []models.ChatMessage
}

func newStore(key string, backend Backend) *Store {
	return &Store{key: key, backend: backend}
}

// Key returns the session key the store is bound to.
func (s *Store) Key() string { return s.key }

// Messages returns a copy of the log in append order.
func (s *Store) Messages(ctx context.Context) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// Append adds msg to the end of the log and persists the log before
// returning. On a persist failure the log is left as it was.
func (s *Store) Append(ctx context.Context, msg models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	next := make([]models.ChatMessage, len(s.messages), len(s.messages)+1)
	copy(next, s.messages)
	next = append(next, msg)
	if err := s.backend.Save(ctx, s.key, next); err != nil {
		return fmt.Errorf("persist transcript %s: %w", s.key, err)
	}
	s.messages = next
	return nil
}

// Clear empties the log and persists the empty state.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(ctx, s.key, []models.ChatMessage{}); err != nil {
		return fmt.Errorf("persist transcript %s: %w", s.key, err)
	}
	s.messages = []models.ChatMessage{}
	s.loaded = true
	return nil
}

// ensureLoaded must be called with mu held.
func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	stored, err := s.backend.Load(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load transcript %s: %w", s.key, err)
	}
	if stored == nil {
		stored = []models.ChatMessage{}
	}
	s.messages = stored
	s.loaded = true
	return nil
}

// Sessions hands out one Store per session key, so every concurrent request
// for a key goes through the same serialized store. With a positive capacity
// the registry keeps at most that many stores, dropping the least recently
// used idle ones; a dropped session reloads from the backend on next use.
type Sessions struct {
	backend  Backend
	capacity int

	mu     sync.Mutex
	stores map[string]*list.Element
	order  *list.List
}

type sessionEntry struct {
	store *Store
	refs  int
}

// NewSessions creates an empty registry over backend. capacity <= 0 keeps
// every store for the life of the process.
func NewSessions(backend Backend, capacity int) *Sessions {
	return &Sessions{
		backend:  backend,
		capacity: capacity,
		stores:   make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Acquire returns the store for key and pins it until release is called.
// Pinned stores are never evicted.
func (r *Sessions) Acquire(key string) (*Store, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.stores[key]
	if ok {
		r.order.MoveToFront(el)
	} else {
		el = r.order.PushFront(&sessionEntry{store: newStore(key, r.backend)})
		r.stores[key] = el
	}
	entry := el.Value.(*sessionEntry)
	entry.refs++
	r.evictIdle()

	var once sync.Once
	return entry.store, func() {
		once.Do(func() {
			r.mu.Lock()
			entry.refs--
			r.evictIdle()
			r.mu.Unlock()
		})
	}
}

// Get returns the store for key without pinning it.
func (r *Sessions) Get(key string) *Store {
	store, release := r.Acquire(key)
	release()
	return store
}

// Len reports how many stores are resident.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// evictIdle must be called with mu held. When every resident store is pinned
// the registry stays over capacity until a release.
func (r *Sessions) evictIdle() {
	if r.capacity <= 0 {
		return
	}
	for el := r.order.Back(); el != nil && len(r.stores) > r.capacity; {
		prev := el.Prev()
		entry := el.Value.(*sessionEntry)
		if entry.refs == 0 {
			r.order.Remove(el)
			delete(r.stores, entry.store.key)
		}
		el = prev
	}
}
