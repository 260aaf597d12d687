package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	httpadapter "github.com/kirillkom/book-assistant/internal/adapters/http"
	"github.com/kirillkom/book-assistant/internal/config"
	"github.com/kirillkom/book-assistant/internal/core/ports"
	"github.com/kirillkom/book-assistant/internal/core/usecase"
	"github.com/kirillkom/book-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/book-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/book-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/book-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/book-assistant/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/book-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue  *nats.Queue
	Store  ports.CorpusStore
	ChatUC ports.ChatService

	Handler http.Handler

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewCorpusRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init analytics queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaChatModel, cfg.OllamaEmbedModel, executor)
	completer := ollama.NewCompleter(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)

	topics, err := config.LoadTopicVocabulary(cfg.TopicVocabularyPath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load topic vocabulary: %w", err)
	}

	enhancer := usecase.NewContextEnhancer(topics)
	extractor := usecase.NewConstraintExtractor(topics)
	classifier := usecase.NewQueryClassifier(topics, extractor)
	coordinator := usecase.NewRetrievalCoordinator(repo, vectorDB, embedder, usecase.RetrievalConfig{
		EntityCapPerToken:      cfg.RetrievalEntityCap,
		TopicCapPerToken:       cfg.RetrievalTopicCap,
		DocTypeCap:             cfg.RetrievalDocTypeCap,
		KeywordCapPerToken:     cfg.RetrievalKeywordCap,
		VectorLimit:            cfg.RetrievalVectorLimit,
		MinNonVectorCandidates: cfg.RetrievalMinNonVector,
	})
	chatUC := usecase.NewChatUseCase(enhancer, classifier, coordinator, repo, completer, queue, usecase.ChatConfig{
		CatalogPageSize: cfg.CatalogPageSize,
		HistoryTail:     cfg.HistoryTail,
	})

	httpMetrics := metrics.NewHTTPServerMetrics("book-assistant")
	handler := httpadapter.NewRouter(chatUC, httpadapter.RouterOptions{
		Metrics:        httpMetrics,
		RateLimitRPS:   cfg.RateLimitRequestsPerSec,
		RateLimitBurst: cfg.RateLimitBurst,
	}).Handler()

	return &App{
		Config:  cfg,
		Queue:   queue,
		Store:   repo,
		ChatUC:  chatUC,
		Handler: handler,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
