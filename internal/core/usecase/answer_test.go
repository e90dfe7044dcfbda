package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

type plannerFake struct {
	variants []string
	err      error
}

func (f plannerFake) PlanVariants(context.Context, string) ([]string, error) {
	return f.variants, f.err
}

type batchRetrieverFake struct {
	batch       *domain.RetrievalBatch
	err         error
	gotVariants []string
}

func (f *batchRetrieverFake) Retrieve(_ context.Context, variants []string, _ domain.SearchFilter, _ int) (*domain.RetrievalBatch, error) {
	f.gotVariants = variants
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

type auditPublisherFake struct {
	published []ports.QueryAudit
	err       error
}

func (f *auditPublisherFake) PublishQueryAudit(_ context.Context, audit ports.QueryAudit) error {
	f.published = append(f.published, audit)
	return f.err
}

func passingController() *CorrectiveController {
	return NewCorrectiveController(
		&synthFake{},
		&groundingFake{verdicts: []domain.GroundingVerdict{goodGrounding()}},
		&qualityFake{verdicts: []domain.QualityVerdict{goodQuality()}},
		ControllerConfig{},
	)
}

func TestAnswerRejectsBlankQuestion(t *testing.T) {
	uc := NewAnswerUseCase(nil, &batchRetrieverFake{}, passingController(), nil, nil, 5)

	_, err := uc.Answer(context.Background(), "   ", domain.SearchFilter{}, 5)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnswerEmptyBatchSkipsSynthesis(t *testing.T) {
	synth := &synthFake{}
	controller := NewCorrectiveController(
		synth,
		&groundingFake{verdicts: []domain.GroundingVerdict{goodGrounding()}},
		&qualityFake{verdicts: []domain.QualityVerdict{goodQuality()}},
		ControllerConfig{},
	)
	audit := &auditPublisherFake{}
	uc := NewAnswerUseCase(nil, &batchRetrieverFake{batch: &domain.RetrievalBatch{}}, controller, audit, nil, 5)

	answer, err := uc.Answer(context.Background(), "엔진 오일 교체 주기는?", domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(synth.requests) != 0 {
		t.Fatal("empty batch must not reach synthesis")
	}
	if answer.Caveat == "" {
		t.Fatal("expected no-documents caveat")
	}
	if !strings.Contains(answer.Text, "문서를 찾지 못했습니다") {
		t.Fatalf("expected Korean no-documents message, got %q", answer.Text)
	}
	if len(audit.published) != 1 {
		t.Fatalf("expected one published audit event, got %d", len(audit.published))
	}
}

func TestAnswerUsesEnglishMessageForEnglishQuestion(t *testing.T) {
	uc := NewAnswerUseCase(nil, &batchRetrieverFake{batch: &domain.RetrievalBatch{}}, passingController(), nil, nil, 5)

	answer, err := uc.Answer(context.Background(), "What is the oil change interval?", domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !strings.Contains(answer.Text, "No documents relevant") {
		t.Fatalf("expected English no-documents message, got %q", answer.Text)
	}
}

func TestAnswerDegradesWhenPlannerFails(t *testing.T) {
	retriever := &batchRetrieverFake{batch: &domain.RetrievalBatch{
		Results: []domain.ScoredResult{resultWithScore("a", 0.9)},
	}}
	uc := NewAnswerUseCase(plannerFake{err: errors.New("model down")}, retriever, passingController(), nil, nil, 5)

	_, err := uc.Answer(context.Background(), "question", domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(retriever.gotVariants) != 1 || retriever.gotVariants[0] != "question" {
		t.Fatalf("expected search with bare question, got %v", retriever.gotVariants)
	}
}

func TestAnswerCapsAndDeduplicatesVariants(t *testing.T) {
	retriever := &batchRetrieverFake{batch: &domain.RetrievalBatch{
		Results: []domain.ScoredResult{resultWithScore("a", 0.9)},
	}}
	planner := plannerFake{variants: []string{"question", "v2", "v2", "v3", "v4", "v5", "v6"}}
	uc := NewAnswerUseCase(planner, retriever, passingController(), nil, nil, 5)

	_, err := uc.Answer(context.Background(), "question", domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(retriever.gotVariants) != maxQueryVariants {
		t.Fatalf("expected %d variants, got %v", maxQueryVariants, retriever.gotVariants)
	}
	seen := map[string]int{}
	for _, v := range retriever.gotVariants {
		seen[v]++
		if seen[v] > 1 {
			t.Fatalf("duplicate variant %q", v)
		}
	}
}

func TestAnswerAuditFailureDoesNotFailAnswer(t *testing.T) {
	retriever := &batchRetrieverFake{batch: &domain.RetrievalBatch{
		Results: []domain.ScoredResult{resultWithScore("a", 0.9)},
	}}
	audit := &auditPublisherFake{err: errors.New("nats down")}
	uc := NewAnswerUseCase(nil, retriever, passingController(), audit, nil, 5)

	answer, err := uc.Answer(context.Background(), "question", domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("audit failure must not fail the answer: %v", err)
	}
	if answer == nil || answer.Text == "" {
		t.Fatal("expected a synthesized answer")
	}
}

type answerMetricsFake struct {
	answers    int
	accepted   bool
	retryCount int
	noContext  int
}

func (f *answerMetricsFake) RecordAnswer(accepted bool, retryCount int, _, _ float64, _ time.Duration) {
	f.answers++
	f.accepted = accepted
	f.retryCount = retryCount
}

func (f *answerMetricsFake) RecordNoContext() {
	f.noContext++
}

func TestAnswerReportsMetrics(t *testing.T) {
	retriever := &batchRetrieverFake{batch: &domain.RetrievalBatch{
		Results: []domain.ScoredResult{resultWithScore("a", 0.9)},
	}}
	metrics := &answerMetricsFake{}
	uc := NewAnswerUseCase(nil, retriever, passingController(), nil, metrics, 5)

	if _, err := uc.Answer(context.Background(), "question", domain.SearchFilter{}, 5); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if metrics.answers != 1 || !metrics.accepted {
		t.Fatalf("expected one accepted answer observation, got %+v", metrics)
	}
	if metrics.noContext != 0 {
		t.Fatalf("no-context counter must stay untouched, got %+v", metrics)
	}
}

func TestAnswerReportsNoContext(t *testing.T) {
	metrics := &answerMetricsFake{}
	uc := NewAnswerUseCase(nil, &batchRetrieverFake{batch: &domain.RetrievalBatch{}}, passingController(), nil, metrics, 5)

	if _, err := uc.Answer(context.Background(), "question", domain.SearchFilter{}, 5); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if metrics.noContext != 1 || metrics.answers != 0 {
		t.Fatalf("empty batch must report no-context only, got %+v", metrics)
	}
}

func TestAnswerAttachesSourcesAndPublishesScores(t *testing.T) {
	retriever := &batchRetrieverFake{batch: &domain.RetrievalBatch{
		Results:    []domain.ScoredResult{resultWithScore("a", 0.9), resultWithScore("b", 0.8)},
		Confidence: 0.85,
	}}
	audit := &auditPublisherFake{}
	uc := NewAnswerUseCase(nil, retriever, passingController(), audit, nil, 5)

	answer, err := uc.Answer(context.Background(), "question", domain.SearchFilter{}, 5)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("expected sources attached, got %d", len(answer.Sources))
	}
	if len(audit.published) != 1 {
		t.Fatalf("expected one audit event, got %d", len(audit.published))
	}
	event := audit.published[0]
	if event.ID == "" || event.ResultCount != 2 || event.Confidence != 0.85 {
		t.Fatalf("unexpected audit event %+v", event)
	}
	if event.AnsweredAt.IsZero() {
		t.Fatal("expected answered_at stamped")
	}
}
