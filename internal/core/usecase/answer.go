package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

const maxQueryVariants = 5

// AnswerMetrics receives answer pipeline observations. Implemented by the
// metrics package; a nil sink disables reporting.
type AnswerMetrics interface {
	RecordAnswer(accepted bool, retryCount int, hallucination, quality float64, duration time.Duration)
	RecordNoContext()
}

type noopAnswerMetrics struct{}

func (noopAnswerMetrics) RecordAnswer(bool, int, float64, float64, time.Duration) {}
func (noopAnswerMetrics) RecordNoContext()                                        {}

// AnswerUseCase is the full pipeline: plan reformulations, retrieve, then run
// the corrective synthesis loop. Audit publishing is best-effort and never
// fails the answer.
type AnswerUseCase struct {
	planner    ports.QueryPlanner
	retriever  ports.DocumentRetriever
	controller *CorrectiveController
	audit      ports.AuditPublisher
	metrics    AnswerMetrics
	topK       int
}

func NewAnswerUseCase(
	planner ports.QueryPlanner,
	retriever ports.DocumentRetriever,
	controller *CorrectiveController,
	audit ports.AuditPublisher,
	metrics AnswerMetrics,
	topK int,
) *AnswerUseCase {
	if topK <= 0 {
		topK = 10
	}
	if metrics == nil {
		metrics = noopAnswerMetrics{}
	}
	return &AnswerUseCase{
		planner:    planner,
		retriever:  retriever,
		controller: controller,
		audit:      audit,
		metrics:    metrics,
		topK:       topK,
	}
}

func (uc *AnswerUseCase) Answer(
	ctx context.Context,
	question string,
	filter domain.SearchFilter,
	topK int,
) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("question is required"))
	}
	if topK <= 0 {
		topK = uc.topK
	}
	started := time.Now()

	variants := uc.planVariants(ctx, question)

	batch, err := uc.retriever.Retrieve(ctx, variants, filter, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve documents: %w", err)
	}

	if batch.IsEmpty() {
		answer := &domain.Answer{
			Text:   noDocumentsMessage(domain.DetectLanguage(question)),
			Caveat: "No matching documents were found in the corpus.",
		}
		uc.metrics.RecordNoContext()
		uc.publishAudit(ctx, question, batch, RunReport{}, time.Since(started))
		return answer, nil
	}

	answer, report, err := uc.controller.Run(ctx, question, batch.Results)
	if err != nil {
		return nil, err
	}
	answer.Sources = batch.Results

	elapsed := time.Since(started)
	uc.metrics.RecordAnswer(report.Accepted, report.RetryCount, report.GroundingScore, report.QualityScore, elapsed)
	uc.publishAudit(ctx, question, batch, report, elapsed)
	return answer, nil
}

// planVariants asks the external planner for reformulations and degrades to
// the bare question when planning fails or returns nothing usable. The
// original question always searches too.
func (uc *AnswerUseCase) planVariants(ctx context.Context, question string) []string {
	variants := []string{question}
	if uc.planner == nil {
		return variants
	}

	planned, err := uc.planner.PlanVariants(ctx, question)
	if err != nil {
		slog.Warn("query planning failed, searching with original question only", "error", err)
		return variants
	}

	seen := map[string]struct{}{question: {}}
	for _, v := range planned {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
		if len(variants) == maxQueryVariants {
			break
		}
	}
	return variants
}

func (uc *AnswerUseCase) publishAudit(
	ctx context.Context,
	question string,
	batch *domain.RetrievalBatch,
	report RunReport,
	elapsed time.Duration,
) {
	if uc.audit == nil {
		return
	}
	audit := ports.QueryAudit{
		ID:                uuid.NewString(),
		Question:          question,
		VariantCount:      len(batch.QueryVariants),
		Languages:         batch.Languages,
		ResultCount:       len(batch.Results),
		Confidence:        batch.Confidence,
		FallbackTriggered: batch.FallbackTriggered,
		Reranked:          batch.Reranked,
		RetryCount:        report.RetryCount,
		GroundingScore:    report.GroundingScore,
		QualityScore:      report.QualityScore,
		DurationMS:        elapsed.Milliseconds(),
		AnsweredAt:        time.Now().UTC(),
	}
	if err := uc.audit.PublishQueryAudit(ctx, audit); err != nil {
		slog.Warn("audit publish failed", "audit_id", audit.ID, "error", err)
	}
}

func noDocumentsMessage(lang domain.Language) string {
	if lang == domain.LanguageKorean {
		return "질문과 관련된 문서를 찾지 못했습니다. 질문을 바꾸거나 필터를 넓혀서 다시 시도해 주세요."
	}
	return "No documents relevant to this question were found. Try rephrasing the question or widening the filter."
}
