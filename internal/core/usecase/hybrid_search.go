package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// HybridSearchEngine runs the semantic and lexical branches for one query in
// one language and fuses them. Both branches fetch 2*topK candidates so
// fusion has material to work with.
type HybridSearchEngine struct {
	store     ports.RecordStore
	embedder  ports.Embedder
	keywords  ports.KeywordExtractor
	fusionCfg FusionConfig
}

func NewHybridSearchEngine(
	store ports.RecordStore,
	embedder ports.Embedder,
	keywords ports.KeywordExtractor,
	fusionCfg FusionConfig,
) *HybridSearchEngine {
	return &HybridSearchEngine{
		store:     store,
		embedder:  embedder,
		keywords:  keywords,
		fusionCfg: fusionCfg,
	}
}

// Search returns the fused top-K ranked results with branch provenance. An
// empty lexical term set is not an error: the lexical branch just
// contributes nothing.
func (e *HybridSearchEngine) Search(
	ctx context.Context,
	query string,
	lang domain.Language,
	filter domain.SearchFilter,
	topK int,
) ([]domain.ScoredResult, error) {
	if topK <= 0 {
		topK = 10
	}
	candidateLimit := 2 * topK

	var (
		wg       sync.WaitGroup
		semantic []domain.ScoredResult
		lexical  []domain.ScoredResult
		semErr   error
		lexErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		vector, err := e.embedder.EmbedQuery(ctx, query, lang)
		if err != nil {
			semErr = fmt.Errorf("embed query: %w", err)
			return
		}
		semantic, err = e.store.FindBySimilarity(ctx, lang, vector, filter, candidateLimit)
		if err != nil {
			semErr = fmt.Errorf("semantic search: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		terms := e.keywords.Extract(query, lang)
		if len(terms) == 0 {
			return
		}
		tsquery := BuildLexicalQuery(terms)
		if tsquery == "" {
			return
		}
		var err error
		lexical, err = e.store.FindByText(ctx, lang, tsquery, filter, candidateLimit)
		if err != nil {
			lexErr = fmt.Errorf("lexical search: %w", err)
		}
	}()
	wg.Wait()

	if semErr != nil {
		return nil, semErr
	}
	if lexErr != nil {
		return nil, lexErr
	}

	cfg := e.fusionCfg
	cfg.TopN = topK
	fused := FuseRankedLists(semantic, lexical, cfg)
	for i := range fused {
		fused[i].Language = lang
	}
	return fused, nil
}
