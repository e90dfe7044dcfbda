package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// VariantSearcher is the per-variant search contract the orchestrator fans
// out over. Satisfied by HybridSearchEngine.
type VariantSearcher interface {
	Search(ctx context.Context, query string, lang domain.Language, filter domain.SearchFilter, topK int) ([]domain.ScoredResult, error)
}

// RetrievalMetrics receives orchestrator observations. Implemented by the
// prometheus retrieval metrics; nil-safe via noop default.
type RetrievalMetrics interface {
	ObserveVariantSearch(lang domain.Language, resultCount int, failed bool)
	ObserveBatch(resultCount int, fallback, reranked bool)
}

// OrchestratorConfig tunes the retrieval fan-out.
type OrchestratorConfig struct {
	// Workers bounds concurrent variant searches. Keep it well under the
	// storage pool capacity or branch queries starve each other.
	Workers         int
	RerankThreshold int
	RerankPreview   int
}

func (c OrchestratorConfig) normalize() OrchestratorConfig {
	out := c
	if out.Workers <= 0 {
		out.Workers = 3
	}
	if out.RerankThreshold <= 0 {
		out.RerankThreshold = 10
	}
	if out.RerankPreview <= 0 {
		out.RerankPreview = 200
	}
	return out
}

// RetrievalOrchestrator searches all query reformulations concurrently,
// deduplicates across them, and applies the no-filter fallback and optional
// LLM re-ranking.
type RetrievalOrchestrator struct {
	searcher VariantSearcher
	reranker ports.Reranker
	pool     *ants.Pool
	metrics  RetrievalMetrics
	cfg      OrchestratorConfig
}

// WorkerPoolSize derives the fan-out bound from storage pool capacity:
// roughly 30%, so concurrent variants plus their two branches each cannot
// starve the pool.
func WorkerPoolSize(maxDBConns int) int {
	size := (maxDBConns * 3) / 10
	if size < 1 {
		size = 1
	}
	return size
}

func NewRetrievalOrchestrator(
	searcher VariantSearcher,
	reranker ports.Reranker,
	metrics RetrievalMetrics,
	cfg OrchestratorConfig,
) (*RetrievalOrchestrator, error) {
	cfg = cfg.normalize()
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	if metrics == nil {
		metrics = noopRetrievalMetrics{}
	}
	return &RetrievalOrchestrator{
		searcher: searcher,
		reranker: reranker,
		pool:     pool,
		metrics:  metrics,
		cfg:      cfg,
	}, nil
}

// Close releases the worker pool.
func (o *RetrievalOrchestrator) Close() {
	o.pool.Release()
}

type variantOutcome struct {
	variant string
	lang    domain.Language
	results []domain.ScoredResult
	err     error
}

// Retrieve runs the two-pass entity-priority strategy for every reformulation
// and merges the outcomes into one deduplicated, confidence-scored batch.
func (o *RetrievalOrchestrator) Retrieve(
	ctx context.Context,
	variants []string,
	baseFilter domain.SearchFilter,
	topK int,
) (*domain.RetrievalBatch, error) {
	if len(variants) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("at least one query variant is required"))
	}
	if topK <= 0 {
		topK = 10
	}

	batch, err := o.retrieveOnce(ctx, variants, baseFilter, topK)
	if err != nil {
		return nil, err
	}

	// An over-specific filter must not silently produce "no answer" when the
	// content exists: drop the filter entirely and try once more.
	if batch.IsEmpty() && !baseFilter.IsEmpty() {
		slog.Info("filtered retrieval empty, retrying without filter", "variants", len(variants))
		batch, err = o.retrieveOnce(ctx, variants, domain.SearchFilter{}, topK)
		if err != nil {
			return nil, err
		}
		batch.FallbackTriggered = true
	}

	batch.Confidence = batchConfidence(batch.Results)

	if o.reranker != nil && len(batch.Results) > o.cfg.RerankThreshold {
		reordered, applied := o.rerankBatch(ctx, variants[0], batch.Results, topK)
		if applied {
			batch.Results = reordered
			batch.Reranked = true
		}
	}

	o.metrics.ObserveBatch(len(batch.Results), batch.FallbackTriggered, batch.Reranked)
	return batch, nil
}

func (o *RetrievalOrchestrator) retrieveOnce(
	ctx context.Context,
	variants []string,
	filter domain.SearchFilter,
	topK int,
) (*domain.RetrievalBatch, error) {
	outcomes := make(chan variantOutcome, len(variants))
	var wg sync.WaitGroup

	for _, variant := range variants {
		variant := variant
		wg.Add(1)
		task := func() {
			defer wg.Done()
			outcomes <- o.searchVariant(ctx, variant, filter, topK)
		}
		if err := o.pool.Submit(task); err != nil {
			// Pool saturation or release; run inline rather than lose the variant.
			task()
		}
	}

	wg.Wait()
	close(outcomes)

	batch := &domain.RetrievalBatch{}
	seen := make(map[string]struct{})
	langSeen := make(map[domain.Language]struct{})
	failures := 0

	// Collection follows worker completion order, so the first-occurrence
	// dedup winner is non-deterministic across runs. Duplicate records are
	// equivalent, so any winner is correct.
	for outcome := range outcomes {
		batch.QueryVariants = append(batch.QueryVariants, outcome.variant)
		o.metrics.ObserveVariantSearch(outcome.lang, len(outcome.results), outcome.err != nil)

		if outcome.err != nil {
			failures++
			slog.Warn("variant search failed",
				"variant", outcome.variant,
				"language", outcome.lang,
				"error", outcome.err,
			)
			continue
		}
		if _, ok := langSeen[outcome.lang]; !ok {
			langSeen[outcome.lang] = struct{}{}
			batch.Languages = append(batch.Languages, outcome.lang)
		}

		for _, res := range outcome.results {
			key := resultKey(res)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			res.Variant = outcome.variant
			batch.Results = append(batch.Results, res)

			switch res.MatchedBy {
			case domain.MatchedBySemantic:
				batch.SemanticHits++
			case domain.MatchedByLexical:
				batch.LexicalHits++
			case domain.MatchedByBoth:
				batch.SemanticHits++
				batch.LexicalHits++
			}
		}
	}

	if failures == len(variants) {
		return nil, domain.WrapError(domain.ErrAllVariantsFailed, "retrieve", fmt.Errorf("%d of %d variants failed", failures, len(variants)))
	}
	return batch, nil
}

// searchVariant detects the variant's own language and runs the two-pass
// entity-priority strategy. A panic inside a search branch degrades to an
// error outcome instead of crashing the fan-in barrier.
func (o *RetrievalOrchestrator) searchVariant(
	ctx context.Context,
	variant string,
	filter domain.SearchFilter,
	topK int,
) (outcome variantOutcome) {
	lang := domain.DetectLanguage(variant)
	outcome = variantOutcome{variant: variant, lang: lang}

	defer func() {
		if r := recover(); r != nil {
			outcome.results = nil
			outcome.err = fmt.Errorf("variant search panic: %v", r)
		}
	}()

	if !filter.HasEntity() {
		outcome.results, outcome.err = o.searcher.Search(ctx, variant, lang, filter, topK)
		return outcome
	}

	// Entity-tagged content is sparse; give it first call on the result
	// budget so generic full-category hits cannot crowd it out.
	entityFilter := filter.WithCategories(domain.EntityCarryingCategories())
	prioritized, err := o.searcher.Search(ctx, variant, lang, entityFilter, topK)
	if err != nil {
		outcome.err = err
		return outcome
	}

	outcome.results = prioritized
	shortfall := topK - len(prioritized)
	if shortfall <= 0 {
		return outcome
	}

	general, err := o.searcher.Search(ctx, variant, lang, filter.WithoutEntity(), shortfall)
	if err != nil {
		// The prioritized pass already delivered; backfill failure only
		// costs coverage.
		slog.Warn("general backfill pass failed", "variant", variant, "error", err)
		return outcome
	}

	have := make(map[string]struct{}, len(prioritized))
	for _, res := range prioritized {
		have[resultKey(res)] = struct{}{}
	}
	for _, res := range general {
		if _, dup := have[resultKey(res)]; dup {
			continue
		}
		outcome.results = append(outcome.results, res)
		if len(outcome.results) == topK {
			break
		}
	}
	return outcome
}

// batchConfidence is the mean fused score of the top five results.
func batchConfidence(results []domain.ScoredResult) float64 {
	if len(results) == 0 {
		return 0
	}
	n := len(results)
	if n > 5 {
		n = 5
	}
	sum := 0.0
	for _, res := range results[:n] {
		sum += res.Score
	}
	return sum / float64(n)
}

type noopRetrievalMetrics struct{}

func (noopRetrievalMetrics) ObserveVariantSearch(domain.Language, int, bool) {}
func (noopRetrievalMetrics) ObserveBatch(int, bool, bool)                    {}
