package ports

import (
	"context"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// DocumentRetriever is the inbound contract for retrieval without synthesis.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, variants []string, filter domain.SearchFilter, topK int) (*domain.RetrievalBatch, error)
}

// QuestionAnswerer is the inbound contract for the full answer pipeline,
// including the corrective retry loop.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string, filter domain.SearchFilter, topK int) (*domain.Answer, error)
}
