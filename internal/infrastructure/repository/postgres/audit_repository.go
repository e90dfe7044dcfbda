package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// AuditRepository persists consumed query audit events. This is the only
// table this service owns; the records table belongs to ingestion.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS query_audit (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	variant_count INT NOT NULL,
	languages JSONB NOT NULL DEFAULT '[]'::jsonb,
	result_count INT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	fallback_triggered BOOLEAN NOT NULL,
	reranked BOOLEAN NOT NULL,
	retry_count INT NOT NULL,
	grounding_score DOUBLE PRECISION NOT NULL,
	quality_score DOUBLE PRECISION NOT NULL,
	duration_ms BIGINT NOT NULL,
	answered_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_audit_created_at ON query_audit(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AuditRepository) SaveQueryAudit(ctx context.Context, audit ports.QueryAudit) error {
	languagesJSON, err := json.Marshal(audit.Languages)
	if err != nil {
		return fmt.Errorf("marshal languages: %w", err)
	}

	answeredAt := audit.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO query_audit (
	id, question, variant_count, languages, result_count, confidence,
	fallback_triggered, reranked, retry_count, grounding_score, quality_score,
	duration_ms, answered_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO NOTHING
`,
		audit.ID, audit.Question, audit.VariantCount, languagesJSON,
		audit.ResultCount, audit.Confidence, audit.FallbackTriggered,
		audit.Reranked, audit.RetryCount, audit.GroundingScore,
		audit.QualityScore, audit.DurationMS, answeredAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert query audit: %w", err)
	}
	return nil
}
