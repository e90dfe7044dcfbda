package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// controllerState names the corrective loop's position for logging.
type controllerState string

const (
	stateSynthesizing   controllerState = "synthesizing"
	stateGroundingCheck controllerState = "grounding_check"
	stateQualityCheck   controllerState = "quality_check"
	stateAccepted       controllerState = "accepted"
	stateRetrying       controllerState = "retrying"
	stateExhausted      controllerState = "exhausted"
)

const exhaustedCaveat = "This answer did not pass all automated verification checks within the retry budget; verify critical details against the cited documents."

// ControllerConfig carries the acceptance thresholds and the retry bound.
type ControllerConfig struct {
	// HallucinationThreshold accepts a grounding verdict when the reported
	// hallucination score is at or below it.
	HallucinationThreshold float64
	// QualityThreshold accepts a quality verdict when the recomputed
	// composite is at or above it.
	QualityThreshold float64
	MaxRetries       int
}

func (c ControllerConfig) normalize() ControllerConfig {
	out := c
	if out.HallucinationThreshold <= 0 {
		out.HallucinationThreshold = 0.7
	}
	if out.QualityThreshold <= 0 {
		out.QualityThreshold = 0.6
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 3
	}
	return out
}

// CorrectiveController drives the bounded synthesize-check-regenerate loop.
// A grounding failure regenerates conservatively from supported claims; a
// quality failure regenerates addressing the reported gaps. Exhaustion
// returns the best attempt with a caveat instead of an error.
type CorrectiveController struct {
	synthesizer ports.AnswerSynthesizer
	grounding   ports.GroundingChecker
	quality     ports.QualityChecker
	cfg         ControllerConfig
}

func NewCorrectiveController(
	synthesizer ports.AnswerSynthesizer,
	grounding ports.GroundingChecker,
	quality ports.QualityChecker,
	cfg ControllerConfig,
) *CorrectiveController {
	return &CorrectiveController{
		synthesizer: synthesizer,
		grounding:   grounding,
		quality:     quality,
		cfg:         cfg.normalize(),
	}
}

type attempt struct {
	answer    *domain.Answer
	grounding domain.GroundingVerdict
	quality   domain.QualityVerdict
	scored    bool
}

// RunReport summarizes one controller run for auditing.
type RunReport struct {
	RetryCount     int
	GroundingScore float64
	QualityScore   float64
	Accepted       bool
}

// Run executes the loop for one top-level query. Retry state is created and
// zeroed here, never carried between calls: a stale count would misreport
// "retry N of M" and exhaust the budget early.
func (c *CorrectiveController) Run(
	ctx context.Context,
	question string,
	sources []domain.ScoredResult,
) (*domain.Answer, RunReport, error) {
	state := domain.RetryState{MaxRetries: c.cfg.MaxRetries}
	state.Reset()

	req := ports.SynthesisRequest{
		Question: question,
		Sources:  sources,
		Mode:     domain.SynthesisInitial,
	}

	var best attempt
	for {
		slog.Debug("controller transition", "state", stateSynthesizing, "mode", req.Mode, "retry", state.RetryCount)
		answer, err := c.synthesizer.Synthesize(ctx, req)
		if err != nil {
			return nil, RunReport{RetryCount: state.RetryCount}, fmt.Errorf("synthesize answer: %w", err)
		}
		answer.RetryCount = state.RetryCount

		slog.Debug("controller transition", "state", stateGroundingCheck)
		grounding, err := c.grounding.CheckGrounding(ctx, question, answer.Text, sources)
		if err != nil {
			return nil, RunReport{RetryCount: state.RetryCount}, fmt.Errorf("grounding check: %w", err)
		}
		state.LastGrounding = &grounding

		current := attempt{answer: answer, grounding: grounding}

		if !groundingPasses(grounding, c.cfg.HallucinationThreshold) {
			best = betterAttempt(best, current)
			if state.Exhausted() {
				return exhausted(best, state)
			}
			state.RetryCount++
			slog.Info("controller transition",
				"state", stateRetrying,
				"reason", "grounding",
				"hallucination_score", grounding.HallucinationScore,
				"retry", state.RetryCount,
				"max_retries", state.MaxRetries,
			)
			req.Mode = domain.SynthesisConservative
			req.SupportedClaims = grounding.SupportedClaims
			req.MissingAspects = nil
			req.Suggestions = nil
			continue
		}

		slog.Debug("controller transition", "state", stateQualityCheck)
		quality, err := c.quality.CheckQuality(ctx, question, answer.Text)
		if err != nil {
			return nil, RunReport{RetryCount: state.RetryCount}, fmt.Errorf("quality check: %w", err)
		}
		// Sub-scores are the source of truth; never trust a model-reported
		// composite.
		quality.Composite = domain.CompositeQuality(
			quality.Completeness, quality.Relevance, quality.Clarity, quality.Usefulness,
		)
		state.LastQuality = &quality
		current.quality = quality
		current.scored = true

		if quality.Composite < c.cfg.QualityThreshold {
			best = betterAttempt(best, current)
			if state.Exhausted() {
				return exhausted(best, state)
			}
			state.RetryCount++
			slog.Info("controller transition",
				"state", stateRetrying,
				"reason", "quality",
				"composite", quality.Composite,
				"retry", state.RetryCount,
				"max_retries", state.MaxRetries,
			)
			req.Mode = domain.SynthesisImprovement
			req.SupportedClaims = nil
			req.MissingAspects = quality.MissingAspects
			req.Suggestions = quality.Suggestions
			continue
		}

		slog.Info("controller transition", "state", stateAccepted, "retry", state.RetryCount)
		return answer, RunReport{
			RetryCount:     state.RetryCount,
			GroundingScore: grounding.HallucinationScore,
			QualityScore:   quality.Composite,
			Accepted:       true,
		}, nil
	}
}

func groundingPasses(v domain.GroundingVerdict, threshold float64) bool {
	return v.Valid && v.HallucinationScore <= threshold
}

// betterAttempt keeps the attempt with the higher quality composite; an
// attempt that never reached quality scoring loses to one that did.
func betterAttempt(current, candidate attempt) attempt {
	if current.answer == nil {
		return candidate
	}
	if candidate.scored && !current.scored {
		return candidate
	}
	if candidate.scored && current.scored && candidate.quality.Composite > current.quality.Composite {
		return candidate
	}
	return current
}

func exhausted(best attempt, state domain.RetryState) (*domain.Answer, RunReport, error) {
	slog.Warn("controller transition", "state", stateExhausted, "retries", state.RetryCount)
	answer := best.answer
	answer.Caveat = exhaustedCaveat
	answer.RetryCount = state.RetryCount
	return answer, RunReport{
		RetryCount:     state.RetryCount,
		GroundingScore: best.grounding.HallucinationScore,
		QualityScore:   best.quality.Composite,
	}, nil
}
