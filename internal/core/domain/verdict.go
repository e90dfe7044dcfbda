package domain

// Quality sub-score weights. The composite is always derived from the four
// sub-scores; a single model-reported total is never trusted.
const (
	QualityWeightCompleteness = 0.35
	QualityWeightRelevance    = 0.30
	QualityWeightClarity      = 0.20
	QualityWeightUsefulness   = 0.15
)

// GroundingVerdict is the outcome of checking an answer against its sources.
type GroundingVerdict struct {
	Valid              bool     `json:"valid"`
	HallucinationScore float64  `json:"hallucination_score"`
	SupportedClaims    []string `json:"supported_claims"`
	UnsupportedClaims  []string `json:"unsupported_claims"`
	NeedsRetry         bool     `json:"needs_retry"`
}

// QualityVerdict is the outcome of scoring an answer's usefulness to the user.
type QualityVerdict struct {
	Valid          bool     `json:"valid"`
	Completeness   float64  `json:"completeness"`
	Relevance      float64  `json:"relevance"`
	Clarity        float64  `json:"clarity"`
	Usefulness     float64  `json:"usefulness"`
	Composite      float64  `json:"composite"`
	MissingAspects []string `json:"missing_aspects"`
	Suggestions    []string `json:"suggestions"`
	NeedsRetry     bool     `json:"needs_retry"`
}

// CompositeQuality recomputes the weighted composite from sub-scores.
func CompositeQuality(completeness, relevance, clarity, usefulness float64) float64 {
	return QualityWeightCompleteness*completeness +
		QualityWeightRelevance*relevance +
		QualityWeightClarity*clarity +
		QualityWeightUsefulness*usefulness
}

// SynthesisMode selects how the synthesizer regenerates an answer on retry.
type SynthesisMode string

const (
	// SynthesisInitial is the first generation attempt for a query.
	SynthesisInitial SynthesisMode = "initial"
	// SynthesisConservative regenerates from supported claims only, saying
	// "not available in documents" for anything uncertain. Used after a
	// grounding failure.
	SynthesisConservative SynthesisMode = "conservative"
	// SynthesisImprovement regenerates addressing missing aspects and
	// suggestions. Used after a quality failure.
	SynthesisImprovement SynthesisMode = "improvement"
)

// RetryState tracks corrective regeneration within one top-level query. It
// must be zeroed on every new query; a stale count leaks "retry N of M"
// reporting and exhausts retries prematurely.
type RetryState struct {
	RetryCount int
	MaxRetries int

	LastGrounding *GroundingVerdict
	LastQuality   *QualityVerdict
}

// Reset zeroes the per-query state, keeping the configured bound.
func (s *RetryState) Reset() {
	s.RetryCount = 0
	s.LastGrounding = nil
	s.LastQuality = nil
}

// Exhausted reports whether another corrective retry is allowed.
func (s *RetryState) Exhausted() bool {
	return s.RetryCount >= s.MaxRetries
}

// Answer is the user-facing synthesis result.
type Answer struct {
	Text       string         `json:"text"`
	References []Reference    `json:"references,omitempty"`
	Sources    []ScoredResult `json:"sources"`
	Caveat     string         `json:"caveat,omitempty"`
	RetryCount int            `json:"retry_count"`
}

// Reference is one row of the citations table attached to an answer.
type Reference struct {
	SourceDoc string `json:"source_doc"`
	Page      *int   `json:"page,omitempty"`
	Quote     string `json:"quote,omitempty"`
}
