package ports

import (
	"context"
	"time"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// RecordStore reads the ingested corpus. Rows carry all record attributes
// plus the branch-specific score column.
type RecordStore interface {
	// FindBySimilarity returns up to limit records ranked by cosine
	// similarity on the language-specific embedding column.
	FindBySimilarity(ctx context.Context, lang domain.Language, vector []float32, filter domain.SearchFilter, limit int) ([]domain.ScoredResult, error)
	// FindByText returns up to limit records ranked by full-text rank on the
	// language-specific indexed column. tsquery uses `&`/`|` operators.
	FindByText(ctx context.Context, lang domain.Language, tsquery string, filter domain.SearchFilter, limit int) ([]domain.ScoredResult, error)
	// Health probes the connection pool with a trivial round trip.
	Health(ctx context.Context) error
	// MaxPoolSize reports the configured pool capacity so callers can size
	// worker concurrency below it.
	MaxPoolSize() int
}

// Embedder builds a query vector in the given corpus language.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string, lang domain.Language) ([]float32, error)
}

// KeywordExtractor derives a ranked, size-bounded term list for the lexical
// branch. An empty result means no lexical search is possible for the query.
type KeywordExtractor interface {
	Extract(text string, lang domain.Language) []string
}

// QueryPlanner produces query reformulations for one question. Planning is
// an external capability; the engine only consumes its output.
type QueryPlanner interface {
	PlanVariants(ctx context.Context, question string) ([]string, error)
}

// SynthesisRequest carries everything the generator needs for one attempt.
type SynthesisRequest struct {
	Question        string
	Sources         []domain.ScoredResult
	Mode            domain.SynthesisMode
	SupportedClaims []string
	MissingAspects  []string
	Suggestions     []string
}

// AnswerSynthesizer produces a structured answer from retrieved sources.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*domain.Answer, error)
}

// GroundingChecker verifies an answer's claims against its sources.
type GroundingChecker interface {
	CheckGrounding(ctx context.Context, question, answer string, sources []domain.ScoredResult) (domain.GroundingVerdict, error)
}

// QualityChecker scores an answer's usefulness to the user.
type QualityChecker interface {
	CheckQuality(ctx context.Context, question, answer string) (domain.QualityVerdict, error)
}

// RerankCandidate is a truncated preview handed to the reranking model.
type RerankCandidate struct {
	ID      string
	Preview string
}

// Reranker orders candidate identifiers by relevance to the query. The
// returned ids may come back mangled (brackets, prefixes, ints as strings);
// the caller repairs or drops them.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]string, error)
}

// QueryAudit is the per-answer telemetry event published after each query.
type QueryAudit struct {
	ID                string            `json:"id"`
	Question          string            `json:"question"`
	VariantCount      int               `json:"variant_count"`
	Languages         []domain.Language `json:"languages"`
	ResultCount       int               `json:"result_count"`
	Confidence        float64           `json:"confidence"`
	FallbackTriggered bool              `json:"fallback_triggered"`
	Reranked          bool              `json:"reranked"`
	RetryCount        int               `json:"retry_count"`
	GroundingScore    float64           `json:"grounding_score"`
	QualityScore      float64           `json:"quality_score"`
	DurationMS        int64             `json:"duration_ms"`
	AnsweredAt        time.Time         `json:"answered_at"`
}

// AuditPublisher emits query audit events. Publish failures must never fail
// the user-facing answer.
type AuditPublisher interface {
	PublishQueryAudit(ctx context.Context, audit QueryAudit) error
}

// AuditSubscriber consumes query audit events (worker side).
type AuditSubscriber interface {
	SubscribeQueryAudit(ctx context.Context, handler func(context.Context, QueryAudit) error) error
}

// AuditStore persists consumed audit events.
type AuditStore interface {
	SaveQueryAudit(ctx context.Context, audit QueryAudit) error
}
