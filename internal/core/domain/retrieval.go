package domain

// MatchProvenance records which search branch produced a result.
type MatchProvenance string

const (
	MatchedBySemantic MatchProvenance = "semantic"
	MatchedByLexical  MatchProvenance = "lexical"
	MatchedByBoth     MatchProvenance = "both"
)

// ScoredResult wraps a record with per-branch and fused scores. Instances
// live for one search invocation and are discarded after ranking.
type ScoredResult struct {
	Record        Record          `json:"record"`
	SemanticScore float64         `json:"semantic_score"`
	LexicalScore  float64         `json:"lexical_score"`
	Score         float64         `json:"score"`
	MatchedBy     MatchProvenance `json:"matched_by"`
	Variant       string          `json:"variant,omitempty"`
	Language      Language        `json:"language,omitempty"`
}

// RetrievalBatch is the orchestrator's output: deduplicated results plus the
// metadata synthesis and auditing need. It is never persisted.
type RetrievalBatch struct {
	Results           []ScoredResult `json:"results"`
	Confidence        float64        `json:"confidence"`
	QueryVariants     []string       `json:"query_variants"`
	Languages         []Language     `json:"languages"`
	SemanticHits      int            `json:"semantic_hits"`
	LexicalHits       int            `json:"lexical_hits"`
	FallbackTriggered bool           `json:"fallback_triggered"`
	Reranked          bool           `json:"reranked"`
}

// IsEmpty reports the soft "no documents found" condition. Callers must treat
// an empty batch as a valid outcome, not a failure.
func (b RetrievalBatch) IsEmpty() bool {
	return len(b.Results) == 0
}
