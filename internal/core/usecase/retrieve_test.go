package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

type searcherFake struct {
	mu    sync.Mutex
	calls []domain.SearchFilter
	fn    func(query string, filter domain.SearchFilter, topK int) ([]domain.ScoredResult, error)
}

func (f *searcherFake) Search(_ context.Context, query string, _ domain.Language, filter domain.SearchFilter, topK int) ([]domain.ScoredResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, filter)
	f.mu.Unlock()
	return f.fn(query, filter, topK)
}

func newOrchestrator(t *testing.T, searcher VariantSearcher, reranker ports.Reranker, cfg OrchestratorConfig) *RetrievalOrchestrator {
	t.Helper()
	o, err := NewRetrievalOrchestrator(searcher, reranker, nil, cfg)
	if err != nil {
		t.Fatalf("create orchestrator: %v", err)
	}
	t.Cleanup(o.Close)
	return o
}

func resultWithScore(id string, score float64) domain.ScoredResult {
	return domain.ScoredResult{
		Record:    domain.Record{ID: id, SourceDoc: "doc", Text: "text " + id},
		Score:     score,
		MatchedBy: domain.MatchedBySemantic,
	}
}

func TestRetrieveDeduplicatesAcrossVariants(t *testing.T) {
	searcher := &searcherFake{fn: func(string, domain.SearchFilter, int) ([]domain.ScoredResult, error) {
		return []domain.ScoredResult{resultWithScore("shared", 0.9)}, nil
	}}
	o := newOrchestrator(t, searcher, nil, OrchestratorConfig{})

	batch, err := o.Retrieve(context.Background(), []string{"v1", "v2", "v3"}, domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(batch.Results) != 1 {
		t.Fatalf("expected 1 deduplicated result, got %d", len(batch.Results))
	}
	if len(batch.QueryVariants) != 3 {
		t.Fatalf("expected 3 variants recorded, got %d", len(batch.QueryVariants))
	}
}

func TestRetrieveAllVariantsFailed(t *testing.T) {
	searcher := &searcherFake{fn: func(string, domain.SearchFilter, int) ([]domain.ScoredResult, error) {
		return nil, errors.New("db down")
	}}
	o := newOrchestrator(t, searcher, nil, OrchestratorConfig{})

	_, err := o.Retrieve(context.Background(), []string{"v1", "v2"}, domain.SearchFilter{}, 5)
	if !domain.IsKind(err, domain.ErrAllVariantsFailed) {
		t.Fatalf("expected ErrAllVariantsFailed, got %v", err)
	}
}

func TestRetrieveToleratesPartialVariantFailure(t *testing.T) {
	searcher := &searcherFake{fn: func(query string, _ domain.SearchFilter, _ int) ([]domain.ScoredResult, error) {
		if query == "bad" {
			return nil, errors.New("timeout")
		}
		return []domain.ScoredResult{resultWithScore("ok-"+query, 0.8)}, nil
	}}
	o := newOrchestrator(t, searcher, nil, OrchestratorConfig{})

	batch, err := o.Retrieve(context.Background(), []string{"good", "bad"}, domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(batch.Results) != 1 {
		t.Fatalf("expected surviving variant's result, got %d", len(batch.Results))
	}
}

func TestRetrieveRecoversFromSearchPanic(t *testing.T) {
	searcher := &searcherFake{fn: func(query string, _ domain.SearchFilter, _ int) ([]domain.ScoredResult, error) {
		if query == "boom" {
			panic("index out of range")
		}
		return []domain.ScoredResult{resultWithScore("safe", 0.8)}, nil
	}}
	o := newOrchestrator(t, searcher, nil, OrchestratorConfig{})

	batch, err := o.Retrieve(context.Background(), []string{"boom", "fine"}, domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(batch.Results) != 1 || batch.Results[0].Record.ID != "safe" {
		t.Fatalf("expected panic isolated to its variant, got %+v", batch.Results)
	}
}

func TestRetrieveFallbackDropsFilter(t *testing.T) {
	searcher := &searcherFake{fn: func(_ string, filter domain.SearchFilter, _ int) ([]domain.ScoredResult, error) {
		if !filter.IsEmpty() {
			return nil, nil
		}
		return []domain.ScoredResult{resultWithScore("unfiltered", 0.7)}, nil
	}}
	o := newOrchestrator(t, searcher, nil, OrchestratorConfig{})

	filter := domain.SearchFilter{SourceDocs: []string{"missing.pdf"}}
	batch, err := o.Retrieve(context.Background(), []string{"q"}, filter, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !batch.FallbackTriggered {
		t.Fatal("expected fallback_triggered")
	}
	if len(batch.Results) != 1 {
		t.Fatalf("expected fallback results, got %d", len(batch.Results))
	}
}

func TestRetrieveNoFallbackWithoutFilter(t *testing.T) {
	searcher := &searcherFake{fn: func(string, domain.SearchFilter, int) ([]domain.ScoredResult, error) {
		return nil, nil
	}}
	o := newOrchestrator(t, searcher, nil, OrchestratorConfig{})

	batch, err := o.Retrieve(context.Background(), []string{"q"}, domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if batch.FallbackTriggered {
		t.Fatal("fallback must not trigger for an already-empty filter")
	}
	if len(searcher.calls) != 1 {
		t.Fatalf("expected single search pass, got %d", len(searcher.calls))
	}
}

func TestSearchVariantEntityPriorityBackfill(t *testing.T) {
	entityResults := []domain.ScoredResult{resultWithScore("e1", 0.9), resultWithScore("e2", 0.8)}
	generalResults := []domain.ScoredResult{resultWithScore("e1", 0.9), resultWithScore("g1", 0.7), resultWithScore("g2", 0.6)}

	searcher := &searcherFake{fn: func(_ string, filter domain.SearchFilter, topK int) ([]domain.ScoredResult, error) {
		if filter.HasEntity() {
			return entityResults, nil
		}
		if topK < len(generalResults) {
			return generalResults[:topK], nil
		}
		return generalResults, nil
	}}
	o := newOrchestrator(t, searcher, nil, OrchestratorConfig{})

	filter := domain.SearchFilter{
		Categories: []domain.Category{domain.CategoryTable},
		Entity:     &domain.EntityFilter{Kind: "spec_table"},
	}
	outcome := o.searchVariant(context.Background(), "q", filter, 5)
	if outcome.err != nil {
		t.Fatalf("search variant: %v", outcome.err)
	}
	// Entity hits first, then general backfill minus the duplicate e1.
	if len(outcome.results) != 4 {
		t.Fatalf("expected 4 results (2 entity + 2 backfill), got %d", len(outcome.results))
	}
	if outcome.results[0].Record.ID != "e1" || outcome.results[1].Record.ID != "e2" {
		t.Fatalf("entity results must come first, got %q, %q", outcome.results[0].Record.ID, outcome.results[1].Record.ID)
	}

	// The prioritized pass must widen categories to the full entity-carrying
	// set and the backfill pass must drop the entity predicate.
	if len(searcher.calls) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(searcher.calls))
	}
	first, second := searcher.calls[0], searcher.calls[1]
	if len(first.Categories) != len(domain.EntityCarryingCategories()) {
		t.Fatalf("expected widened categories on entity pass, got %v", first.Categories)
	}
	if second.HasEntity() {
		t.Fatal("backfill pass must not carry the entity predicate")
	}
	if len(second.Categories) != 1 || second.Categories[0] != domain.CategoryTable {
		t.Fatalf("backfill pass must keep original categories, got %v", second.Categories)
	}
}

func TestSearchVariantEntityPassFillsBudget(t *testing.T) {
	var calls int
	searcher := &searcherFake{fn: func(_ string, _ domain.SearchFilter, topK int) ([]domain.ScoredResult, error) {
		calls++
		out := make([]domain.ScoredResult, topK)
		for i := range out {
			out[i] = resultWithScore(fmt.Sprintf("e%d", i), 0.9)
		}
		return out, nil
	}}
	o := newOrchestrator(t, searcher, nil, OrchestratorConfig{})

	filter := domain.SearchFilter{Entity: &domain.EntityFilter{Kind: "spec_table"}}
	outcome := o.searchVariant(context.Background(), "q", filter, 3)
	if outcome.err != nil {
		t.Fatalf("search variant: %v", outcome.err)
	}
	if calls != 1 {
		t.Fatalf("expected no backfill when entity pass fills the budget, got %d calls", calls)
	}
	if len(outcome.results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(outcome.results))
	}
}

func TestBatchConfidenceMeanOfTopFive(t *testing.T) {
	results := []domain.ScoredResult{
		resultWithScore("a", 1.0),
		resultWithScore("b", 0.8),
		resultWithScore("c", 0.6),
		resultWithScore("d", 0.4),
		resultWithScore("e", 0.2),
		resultWithScore("f", 0.0),
	}
	got := batchConfidence(results)
	want := (1.0 + 0.8 + 0.6 + 0.4 + 0.2) / 5
	if got != want {
		t.Fatalf("expected confidence %v, got %v", want, got)
	}

	if batchConfidence(nil) != 0 {
		t.Fatal("empty batch must have zero confidence")
	}
}

func TestWorkerPoolSize(t *testing.T) {
	cases := []struct{ maxConns, want int }{
		{10, 3},
		{20, 6},
		{3, 1},
		{0, 1},
	}
	for _, tc := range cases {
		if got := WorkerPoolSize(tc.maxConns); got != tc.want {
			t.Fatalf("WorkerPoolSize(%d) = %d, want %d", tc.maxConns, got, tc.want)
		}
	}
}
