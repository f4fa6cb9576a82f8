package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chadvitiya/cf-ai-BiasDetect/internal/analysis"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/config"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/elasticsearch"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/events"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/llm"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/logger"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/search"
	"github.com/chadvitiya/cf-ai-BiasDetect/internal/transcript"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.Search.APIKey == "" {
		log.Warn("SERPER_API_KEY is empty, news searches will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	backend, closeBackend, err := transcript.OpenBackend(ctx, cfg.Transcript)
	if err != nil {
		log.Error("open transcript backend", slog.Any("err", err), slog.String("backend", cfg.Transcript.Backend))
		os.Exit(1)
	}
	defer closeBackend()

	srv := &server{
		log:      log,
		cfg:      cfg,
		pipeline: analysis.NewPipeline(search.New(cfg.Search), llm.New(cfg.AI), cfg.MaxArticles, log),
		sessions: transcript.NewSessions(backend, cfg.Transcript.MaxSessions),
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer pub.Close()
		srv.events = pub
	}

	if cfg.ArchiveEnabled {
		esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
		if err != nil {
			log.Error("init elasticsearch", slog.Any("err", err))
			os.Exit(1)
		}
		srv.archive = esClient
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Search.Timeout + cfg.AI.Timeout + 10*time.Second,
	}

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("transcript_backend", cfg.Transcript.Backend),
			slog.Bool("archive", cfg.ArchiveEnabled),
			slog.Bool("events", srv.events != nil),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
	srv.waitPublishing()
}
