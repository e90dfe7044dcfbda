package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/manual-qa/internal/config"
	"github.com/kirillkom/manual-qa/internal/core/usecase"
	"github.com/kirillkom/manual-qa/internal/infrastructure/keyword"
	"github.com/kirillkom/manual-qa/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/manual-qa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/manual-qa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/manual-qa/internal/infrastructure/resilience"
	"github.com/kirillkom/manual-qa/internal/observability/metrics"
)

// App wires the retrieval engine together. The API serves all of it; the
// worker only touches Queue and AuditUC.
type App struct {
	Config config.Config

	Queue   *nats.Queue
	Records *postgres.RecordRepository

	Retriever *usecase.RetrievalOrchestrator
	AnswerUC  *usecase.AnswerUseCase
	AuditUC   *usecase.RecordAuditUseCase

	Metrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	poolCfg := postgres.PoolConfig{
		MinConns:         cfg.PostgresMinConns,
		MaxConns:         cfg.PostgresMaxConns,
		StatementTimeout: time.Duration(cfg.StatementTimeoutSeconds) * time.Second,
	}
	db, err := postgres.OpenDB(cfg.PostgresDSN, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	records := postgres.NewRecordRepository(db, poolCfg)
	auditRepo := postgres.NewAuditRepository(db)
	if err := auditRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(ollama.Config{
		BaseURL:        cfg.OllamaURL,
		GenModel:       cfg.OllamaGenModel,
		EmbedModelKo:   cfg.OllamaEmbedKo,
		EmbedModelEn:   cfg.OllamaEmbedEn,
		RequestTimeout: time.Duration(cfg.OllamaTimeoutSec) * time.Second,
		RequestsPerSec: cfg.OllamaRPS,
		Burst:          cfg.OllamaBurst,
	}, executor)

	lexicon := keyword.DefaultLexicon()
	if cfg.KeywordLexiconPath != "" {
		lexicon, err = keyword.LoadLexicon(cfg.KeywordLexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load keyword lexicon: %w", err)
		}
	}

	engine := usecase.NewHybridSearchEngine(
		records,
		ollama.NewEmbedder(ollamaClient),
		keyword.NewExtractor(lexicon),
		usecase.FusionConfig{
			K:              cfg.FusionRRFK,
			SemanticWeight: cfg.SemanticWeight,
			LexicalWeight:  cfg.LexicalWeight,
		},
	)

	serverMetrics := metrics.NewHTTPServerMetrics("api")

	workers := cfg.RetrievalWorkers
	if workers <= 0 {
		workers = usecase.WorkerPoolSize(records.MaxPoolSize())
	}
	retriever, err := usecase.NewRetrievalOrchestrator(
		engine,
		ollama.NewReranker(ollamaClient),
		serverMetrics,
		usecase.OrchestratorConfig{
			Workers:         workers,
			RerankThreshold: cfg.RerankThreshold,
			RerankPreview:   cfg.RerankPreview,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("init retrieval orchestrator: %w", err)
	}

	controller := usecase.NewCorrectiveController(
		ollama.NewSynthesizer(ollamaClient),
		ollama.NewGroundingChecker(ollamaClient),
		ollama.NewQualityChecker(ollamaClient),
		usecase.ControllerConfig{
			HallucinationThreshold: cfg.HallucinationThreshold,
			QualityThreshold:       cfg.QualityThreshold,
			MaxRetries:             cfg.MaxRetries,
		},
	)

	answerUC := usecase.NewAnswerUseCase(
		ollama.NewPlanner(ollamaClient),
		retriever,
		controller,
		queue,
		serverMetrics,
		cfg.SearchTopK,
	)

	auditUC := usecase.NewRecordAuditUseCase(auditRepo)

	return &App{
		Config: cfg,

		Queue:   queue,
		Records: records,

		Retriever: retriever,
		AnswerUC:  answerUC,
		AuditUC:   auditUC,

		Metrics: serverMetrics,

		closeFn: func() {
			retriever.Close()
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
