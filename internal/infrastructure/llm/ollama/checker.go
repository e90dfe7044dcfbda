package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// checkTemperature keeps verification deterministic-ish.
const checkTemperature = 0.1

// GroundingChecker verifies answer claims against retrieved sources.
type GroundingChecker struct {
	client *Client
}

func NewGroundingChecker(client *Client) *GroundingChecker {
	return &GroundingChecker{client: client}
}

func (c *GroundingChecker) CheckGrounding(
	ctx context.Context,
	question, answer string,
	sources []domain.ScoredResult,
) (domain.GroundingVerdict, error) {
	raw, err := c.client.generateJSON(ctx, buildGroundingPrompt(question, answer, sources), checkTemperature)
	if err != nil {
		return domain.GroundingVerdict{}, err
	}

	var parsed struct {
		Valid              *bool    `json:"valid"`
		HallucinationScore float64  `json:"hallucination_score"`
		SupportedClaims    []string `json:"supported_claims"`
		UnsupportedClaims  []string `json:"unsupported_claims"`
		NeedsRetry         bool     `json:"needs_retry"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return domain.GroundingVerdict{}, fmt.Errorf("parse grounding json: %w", err)
	}

	verdict := domain.GroundingVerdict{
		HallucinationScore: parsed.HallucinationScore,
		SupportedClaims:    parsed.SupportedClaims,
		UnsupportedClaims:  parsed.UnsupportedClaims,
		NeedsRetry:         parsed.NeedsRetry,
	}
	if parsed.Valid != nil {
		verdict.Valid = *parsed.Valid
	} else {
		// Models drift on boolean keys; the claim accounting carries the
		// same verdict.
		verdict.Valid = len(parsed.UnsupportedClaims) == 0
	}
	clampScore(&verdict.HallucinationScore)
	return verdict, nil
}

// QualityChecker scores answer usefulness on four axes. The composite is
// derived by the caller from the sub-scores; a model-reported total is
// ignored.
type QualityChecker struct {
	client *Client
}

func NewQualityChecker(client *Client) *QualityChecker {
	return &QualityChecker{client: client}
}

func (c *QualityChecker) CheckQuality(ctx context.Context, question, answer string) (domain.QualityVerdict, error) {
	raw, err := c.client.generateJSON(ctx, buildQualityPrompt(question, answer), checkTemperature)
	if err != nil {
		return domain.QualityVerdict{}, err
	}

	var verdict domain.QualityVerdict
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &verdict); err != nil {
		return domain.QualityVerdict{}, fmt.Errorf("parse quality json: %w", err)
	}
	clampScore(&verdict.Completeness)
	clampScore(&verdict.Relevance)
	clampScore(&verdict.Clarity)
	clampScore(&verdict.Usefulness)
	verdict.Composite = 0
	return verdict, nil
}

func clampScore(v *float64) {
	if *v < 0 {
		*v = 0
	}
	if *v > 1 {
		*v = 1
	}
}
