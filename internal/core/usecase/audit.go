package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// RecordAuditUseCase is the worker-side consumer: it persists query audit
// events delivered over the queue.
type RecordAuditUseCase struct {
	store ports.AuditStore
}

func NewRecordAuditUseCase(store ports.AuditStore) *RecordAuditUseCase {
	return &RecordAuditUseCase{store: store}
}

func (uc *RecordAuditUseCase) Record(ctx context.Context, audit ports.QueryAudit) error {
	if audit.ID == "" {
		return fmt.Errorf("audit id is required")
	}
	if err := uc.store.SaveQueryAudit(ctx, audit); err != nil {
		return fmt.Errorf("save query audit: %w", err)
	}
	return nil
}
