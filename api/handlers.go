package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/config"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/elasticsearch"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/models"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/transcript"
)

const (
	maxBodyBytes   = 1 << 20
	publishTimeout = 10 * time.Second
)

type analyzer interface {
	Analyze(ctx context.Context, topic string) ([]models.AnalyzedArticle, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, topic string, articles []models.AnalyzedArticle) error
}

type archiveSearcher interface {
	SearchArchive(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
	Health(ctx context.Context) error
}

type server struct {
	log      *slog.Logger
	cfg      *config.API
	pipeline analyzer
	sessions *transcript.Sessions
	events   eventPublisher
	archive  archiveSearcher

	publishing sync.WaitGroup
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Post("/api/news", s.handleNews)
	r.Get("/api/categories", s.handleCategories)
	r.Get("/api/archive", s.handleArchive)

	r.Route("/chat", func(r chi.Router) {
		r.Get("/history", s.handleHistory)
		r.Post("/add", s.handleAdd)
		r.Delete("/clear", s.handleClear)
	})

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
	return r
}

// cors decorates every response and answers preflight requests for any path.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Session-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not Found"))
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.archive != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.archive.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleNews(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "topic is required"})
		return
	}

	articles, err := s.pipeline.Analyze(r.Context(), topic)
	if err != nil {
		s.log.Error("analyze topic", slog.Any("err", err), slog.String("topic", topic))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	s.publish(r.Context(), topic, articles)
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

// publish hands the analysis to the event publisher in the background. The
// send outlives the request but is bounded by publishTimeout.
func (s *server) publish(ctx context.Context, topic string, articles []models.AnalyzedArticle) {
	if s.events == nil || len(articles) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		defer cancel()
		if err := s.events.Publish(ctx, topic, articles); err != nil {
			s.log.Warn("publish analysis events",
				slog.Any("err", err),
				slog.String("topic", topic),
				slog.Int("articles", len(articles)),
			)
		}
	}()
}

// waitPublishing blocks until in-flight publishes finish.
func (s *server) waitPublishing() {
	s.publishing.Wait()
}

func (s *server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": models.Categories})
}

func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		notFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:  strings.TrimSpace(q.Get("q")),
		Bias:   strings.TrimSpace(q.Get("bias")),
		Source: strings.TrimSpace(q.Get("source")),
		Topic:  strings.TrimSpace(q.Get("topic")),
		From:   clampInt(q.Get("from"), 0, 10_000),
		Size:   clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:   strings.TrimSpace(q.Get("sort")),
		Start:  parseTime(q.Get("start")),
		End:    parseTime(q.Get("end")),
	}

	result, err := s.archive.SearchArchive(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.sessionStore(w, r)
	if !ok {
		return
	}
	defer release()
	messages, err := store.Messages(r.Context())
	if err != nil {
		s.log.Error("load transcript", slog.Any("err", err), slog.String("session", store.Key()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load chat history"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *server) handleAdd(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.sessionStore(w, r)
	if !ok {
		return
	}
	defer release()

	var msg models.ChatMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if !models.ValidRole(msg.Role) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `role must be "user" or "assistant"`})
		return
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	if err := store.Append(r.Context(), msg); err != nil {
		s.log.Error("append transcript", slog.Any("err", err), slog.String("session", store.Key()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to save message"})
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	store, release, ok := s.sessionStore(w, r)
	if !ok {
		return
	}
	defer release()
	if err := store.Clear(r.Context()); err != nil {
		s.log.Error("clear transcript", slog.Any("err", err), slog.String("session", store.Key()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to clear chat history"})
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// sessionStore resolves the caller's transcript from X-Session-ID or ?session=.
// The returned release func unpins the store and must be called when done.
func (s *server) sessionStore(w http.ResponseWriter, r *http.Request) (*transcript.Store, func(), bool) {
	id := r.Header.Get("X-Session-ID")
	if id == "" {
		id = r.URL.Query().Get("session")
	}
	key, err := transcript.SessionKey(id)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, nil, false
	}
	store, release := s.sessions.Acquire(key)
	return store, release, true
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
