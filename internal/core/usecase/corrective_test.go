package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

type synthFake struct {
	requests []ports.SynthesisRequest
}

func (f *synthFake) Synthesize(_ context.Context, req ports.SynthesisRequest) (*domain.Answer, error) {
	f.requests = append(f.requests, req)
	return &domain.Answer{Text: "answer attempt"}, nil
}

type groundingFake struct {
	verdicts []domain.GroundingVerdict
	calls    int
}

func (f *groundingFake) CheckGrounding(context.Context, string, string, []domain.ScoredResult) (domain.GroundingVerdict, error) {
	v := f.verdicts[f.calls]
	if f.calls < len(f.verdicts)-1 {
		f.calls++
	}
	return v, nil
}

type qualityFake struct {
	verdicts []domain.QualityVerdict
	calls    int
}

func (f *qualityFake) CheckQuality(context.Context, string, string) (domain.QualityVerdict, error) {
	v := f.verdicts[f.calls]
	if f.calls < len(f.verdicts)-1 {
		f.calls++
	}
	return v, nil
}

func goodGrounding() domain.GroundingVerdict {
	return domain.GroundingVerdict{Valid: true, HallucinationScore: 0.1}
}

func goodQuality() domain.QualityVerdict {
	return domain.QualityVerdict{Valid: true, Completeness: 0.9, Relevance: 0.9, Clarity: 0.9, Usefulness: 0.9}
}

func TestControllerAcceptsFirstAttempt(t *testing.T) {
	synth := &synthFake{}
	c := NewCorrectiveController(
		synth,
		&groundingFake{verdicts: []domain.GroundingVerdict{goodGrounding()}},
		&qualityFake{verdicts: []domain.QualityVerdict{goodQuality()}},
		ControllerConfig{},
	)

	answer, report, err := c.Run(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Accepted || report.RetryCount != 0 {
		t.Fatalf("expected accepted on first attempt, got %+v", report)
	}
	if answer.Caveat != "" {
		t.Fatalf("accepted answer must carry no caveat, got %q", answer.Caveat)
	}
	if len(synth.requests) != 1 || synth.requests[0].Mode != domain.SynthesisInitial {
		t.Fatalf("expected a single initial synthesis, got %+v", synth.requests)
	}
}

func TestControllerGroundingFailureTriggersConservativeRetry(t *testing.T) {
	synth := &synthFake{}
	c := NewCorrectiveController(
		synth,
		&groundingFake{verdicts: []domain.GroundingVerdict{
			{Valid: true, HallucinationScore: 0.9, SupportedClaims: []string{"claim-1"}},
			goodGrounding(),
		}},
		&qualityFake{verdicts: []domain.QualityVerdict{goodQuality()}},
		ControllerConfig{},
	)

	_, report, err := c.Run(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Accepted || report.RetryCount != 1 {
		t.Fatalf("expected accepted after one retry, got %+v", report)
	}
	if len(synth.requests) != 2 {
		t.Fatalf("expected 2 synthesis attempts, got %d", len(synth.requests))
	}
	retry := synth.requests[1]
	if retry.Mode != domain.SynthesisConservative {
		t.Fatalf("expected conservative regeneration, got %q", retry.Mode)
	}
	if len(retry.SupportedClaims) != 1 || retry.SupportedClaims[0] != "claim-1" {
		t.Fatalf("expected supported claims passed to retry, got %v", retry.SupportedClaims)
	}
}

func TestControllerQualityFailureTriggersImprovementRetry(t *testing.T) {
	synth := &synthFake{}
	c := NewCorrectiveController(
		synth,
		&groundingFake{verdicts: []domain.GroundingVerdict{goodGrounding()}},
		&qualityFake{verdicts: []domain.QualityVerdict{
			{Valid: true, Completeness: 0.2, Relevance: 0.3, Clarity: 0.3, Usefulness: 0.2,
				MissingAspects: []string{"price"}, Suggestions: []string{"mention the fee table"}},
			goodQuality(),
		}},
		ControllerConfig{},
	)

	_, report, err := c.Run(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Accepted || report.RetryCount != 1 {
		t.Fatalf("expected accepted after one retry, got %+v", report)
	}
	retry := synth.requests[1]
	if retry.Mode != domain.SynthesisImprovement {
		t.Fatalf("expected improvement regeneration, got %q", retry.Mode)
	}
	if len(retry.MissingAspects) != 1 || len(retry.Suggestions) != 1 {
		t.Fatalf("expected gaps passed to retry, got %+v", retry)
	}
}

func TestControllerRecomputesCompositeFromSubScores(t *testing.T) {
	synth := &synthFake{}
	// The model reports a perfect composite over terrible sub-scores; the
	// recomputed composite must govern.
	c := NewCorrectiveController(
		synth,
		&groundingFake{verdicts: []domain.GroundingVerdict{goodGrounding()}},
		&qualityFake{verdicts: []domain.QualityVerdict{
			{Valid: true, Composite: 0.99, Completeness: 0.1, Relevance: 0.1, Clarity: 0.1, Usefulness: 0.1},
			goodQuality(),
		}},
		ControllerConfig{},
	)

	_, report, err := c.Run(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.RetryCount != 1 {
		t.Fatalf("expected a retry despite model-reported composite, got %+v", report)
	}
}

func TestControllerExhaustionReturnsBestWithCaveat(t *testing.T) {
	synth := &synthFake{}
	c := NewCorrectiveController(
		synth,
		&groundingFake{verdicts: []domain.GroundingVerdict{
			{Valid: true, HallucinationScore: 0.95},
		}},
		&qualityFake{verdicts: []domain.QualityVerdict{goodQuality()}},
		ControllerConfig{MaxRetries: 2},
	)

	answer, report, err := c.Run(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("exhaustion must not error: %v", err)
	}
	if report.Accepted {
		t.Fatal("exhausted run must not report accepted")
	}
	if report.RetryCount != 2 {
		t.Fatalf("expected exactly max retries, got %d", report.RetryCount)
	}
	// Initial attempt plus one regeneration per retry.
	if len(synth.requests) != 3 {
		t.Fatalf("expected 3 synthesis attempts, got %d", len(synth.requests))
	}
	if answer == nil || answer.Caveat == "" {
		t.Fatal("exhausted answer must carry a caveat")
	}
}

func TestControllerStateResetsBetweenRuns(t *testing.T) {
	synth := &synthFake{}
	grounding := &groundingFake{verdicts: []domain.GroundingVerdict{goodGrounding()}}
	quality := &qualityFake{verdicts: []domain.QualityVerdict{goodQuality()}}
	c := NewCorrectiveController(synth, grounding, quality, ControllerConfig{})

	for i := 0; i < 3; i++ {
		answer, report, err := c.Run(context.Background(), "q", nil)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if report.RetryCount != 0 || answer.RetryCount != 0 {
			t.Fatalf("run %d: retry state leaked across queries: %+v", i, report)
		}
	}
}
