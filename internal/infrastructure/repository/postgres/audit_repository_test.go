package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

func newAuditRepo(t *testing.T) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAuditRepository(db), mock
}

func TestEnsureSchema(t *testing.T) {
	repo, mock := newAuditRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(int64(2026083101)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS query_audit").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveQueryAudit(t *testing.T) {
	repo, mock := newAuditRepo(t)

	answeredAt := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	audit := ports.QueryAudit{
		ID:                "q-1",
		Question:          "엔진 오일 교체 주기는?",
		VariantCount:      3,
		Languages:         []domain.Language{domain.LanguageKorean},
		ResultCount:       5,
		Confidence:        0.82,
		FallbackTriggered: true,
		Reranked:          true,
		RetryCount:        1,
		GroundingScore:    0.4,
		QualityScore:      0.73,
		DurationMS:        1840,
		AnsweredAt:        answeredAt,
	}

	mock.ExpectExec("INSERT INTO query_audit").
		WithArgs(
			"q-1", audit.Question, 3, []byte(`["ko"]`), 5, 0.82,
			true, true, 1, 0.4, 0.73,
			int64(1840), answeredAt, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveQueryAudit(context.Background(), audit); err != nil {
		t.Fatalf("SaveQueryAudit() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveQueryAuditDuplicateIsNoop(t *testing.T) {
	repo, mock := newAuditRepo(t)

	// ON CONFLICT DO NOTHING: zero rows affected is still success.
	mock.ExpectExec("INSERT INTO query_audit").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SaveQueryAudit(context.Background(), ports.QueryAudit{ID: "q-1"}); err != nil {
		t.Fatalf("duplicate insert should be silent, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveQueryAuditPropagatesExecError(t *testing.T) {
	repo, mock := newAuditRepo(t)

	mock.ExpectExec("INSERT INTO query_audit").
		WillReturnError(errors.New("relation query_audit does not exist"))

	if err := repo.SaveQueryAudit(context.Background(), ports.QueryAudit{ID: "q-1"}); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
