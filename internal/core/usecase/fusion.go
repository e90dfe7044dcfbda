package usecase

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// FusionConfig tunes Reciprocal Rank Fusion. K damps rank-1 dominance; the
// branch weights shift trust between semantic and lexical evidence.
type FusionConfig struct {
	K              int
	SemanticWeight float64
	LexicalWeight  float64
	TopN           int
}

func (c FusionConfig) normalize() FusionConfig {
	out := c
	if out.K <= 0 {
		out.K = 60
	}
	if out.SemanticWeight <= 0 && out.LexicalWeight <= 0 {
		out.SemanticWeight = 0.5
		out.LexicalWeight = 0.5
	}
	return out
}

type fusedCandidate struct {
	result       domain.ScoredResult
	score        float64
	semanticRank int
	lexicalRank  int
}

// FuseRankedLists merges the two branch rankings with RRF: each appearance
// contributes weight/(k+rank) with 1-based ranks, a result absent from a
// branch contributes nothing from it. Scores in the returned set are
// normalized so the top result is exactly 1.0 within the batch, which makes
// scores comparable across batches but is not a probability.
//
// Deterministic for fixed inputs: ties break by semantic-branch order, then
// lexical-branch order.
func FuseRankedLists(semantic, lexical []domain.ScoredResult, cfg FusionConfig) []domain.ScoredResult {
	cfg = cfg.normalize()
	if len(semantic) == 0 && len(lexical) == 0 {
		return nil
	}

	const absentRank = 1 << 30
	acc := make(map[string]*fusedCandidate, len(semantic)+len(lexical))

	for i, res := range semantic {
		rank := i + 1
		key := resultKey(res)
		c := &fusedCandidate{result: res, semanticRank: rank, lexicalRank: absentRank}
		c.result.SemanticScore = res.SemanticScore
		c.result.MatchedBy = domain.MatchedBySemantic
		c.score = cfg.SemanticWeight / float64(cfg.K+rank)
		acc[key] = c
	}

	for i, res := range lexical {
		rank := i + 1
		key := resultKey(res)
		if c, ok := acc[key]; ok {
			c.score += cfg.LexicalWeight / float64(cfg.K+rank)
			c.lexicalRank = rank
			c.result.LexicalScore = res.LexicalScore
			c.result.MatchedBy = domain.MatchedByBoth
			continue
		}
		c := &fusedCandidate{result: res, semanticRank: absentRank, lexicalRank: rank}
		c.result.MatchedBy = domain.MatchedByLexical
		c.score = cfg.LexicalWeight / float64(cfg.K+rank)
		acc[key] = c
	}

	candidates := make([]*fusedCandidate, 0, len(acc))
	for _, c := range acc {
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].semanticRank != candidates[j].semanticRank {
			return candidates[i].semanticRank < candidates[j].semanticRank
		}
		return candidates[i].lexicalRank < candidates[j].lexicalRank
	})

	if cfg.TopN > 0 && len(candidates) > cfg.TopN {
		candidates = candidates[:cfg.TopN]
	}

	maxScore := candidates[0].score
	out := make([]domain.ScoredResult, 0, len(candidates))
	for _, c := range candidates {
		res := c.result
		if maxScore > 0 {
			res.Score = c.score / maxScore
		}
		out = append(out, res)
	}
	return out
}

// resultKey identifies a record across branch lists: the record id when
// present, a content hash otherwise.
func resultKey(res domain.ScoredResult) string {
	if res.Record.ID != "" {
		return res.Record.ID
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(res.Record.SourceDoc))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(res.Record.Text))
	return fmt.Sprintf("h:%x", h.Sum64())
}
