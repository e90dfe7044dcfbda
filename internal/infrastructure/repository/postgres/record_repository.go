package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// PoolConfig sizes the shared connection pool. MaxConns must exceed the
// orchestrator's worker concurrency or branch queries deadlock by
// starvation.
type PoolConfig struct {
	MinConns         int
	MaxConns         int
	StatementTimeout time.Duration
}

func (c PoolConfig) normalize() PoolConfig {
	out := c
	if out.MaxConns <= 0 {
		out.MaxConns = 10
	}
	if out.MinConns <= 0 || out.MinConns > out.MaxConns {
		out.MinConns = out.MaxConns / 2
		if out.MinConns < 1 {
			out.MinConns = 1
		}
	}
	if out.StatementTimeout <= 0 {
		out.StatementTimeout = 15 * time.Second
	}
	return out
}

// RecordRepository reads the ingested corpus. The records table is owned by
// the ingestion pipeline; this repository never writes to it.
type RecordRepository struct {
	db   *sql.DB
	pool PoolConfig
}

func OpenDB(dsn string, pool PoolConfig) (*sql.DB, error) {
	pool = pool.normalize()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxConns)
	db.SetMaxIdleConns(pool.MinConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func NewRecordRepository(db *sql.DB, pool PoolConfig) *RecordRepository {
	return &RecordRepository{db: db, pool: pool.normalize()}
}

func (r *RecordRepository) MaxPoolSize() int {
	return r.pool.MaxConns
}

// Health probes the pool with a trivial round trip.
func (r *RecordRepository) Health(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("pool health probe: %w", err)
	}
	return nil
}

const recordColumns = `id, source_doc, page, category, content, translated_content, context_content, caption, entity, correction`

func (r *RecordRepository) FindBySimilarity(
	ctx context.Context,
	lang domain.Language,
	vector []float32,
	filter domain.SearchFilter,
	limit int,
) ([]domain.ScoredResult, error) {
	embeddingColumn := "embedding_en"
	if lang == domain.LanguageKorean {
		embeddingColumn = "embedding_ko"
	}

	compiled := compileFilter(filter, 3)
	query := fmt.Sprintf(`
SELECT %s, 1 - (%s <=> $1::vector) AS similarity
FROM records
WHERE %s IS NOT NULL%s
ORDER BY %s <=> $1::vector
LIMIT $2
`, recordColumns, embeddingColumn, embeddingColumn, compiled.clause, embeddingColumn)

	args := append([]any{encodeVector(vector), limit}, compiled.args...)

	var results []domain.ScoredResult
	err := r.withRetry(ctx, "semantic search", func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		results, err = scanResults(rows, domain.MatchedBySemantic)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *RecordRepository) FindByText(
	ctx context.Context,
	lang domain.Language,
	tsquery string,
	filter domain.SearchFilter,
	limit int,
) ([]domain.ScoredResult, error) {
	tsvColumn, tsConfig := "tsv_en", "english"
	if lang == domain.LanguageKorean {
		// Korean has no stemmer in stock Postgres; the indexed column is
		// built with the simple config over pre-tokenized text.
		tsvColumn, tsConfig = "tsv_ko", "simple"
	}

	compiled := compileFilter(filter, 3)
	query := fmt.Sprintf(`
SELECT %s, ts_rank(%s, to_tsquery('%s', $1)) AS rank
FROM records
WHERE %s @@ to_tsquery('%s', $1)%s
ORDER BY rank DESC
LIMIT $2
`, recordColumns, tsvColumn, tsConfig, tsvColumn, tsConfig, compiled.clause)

	args := append([]any{tsquery, limit}, compiled.args...)

	var results []domain.ScoredResult
	err := r.withRetry(ctx, "lexical search", func(ctx context.Context) error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		results, err = scanResults(rows, domain.MatchedByLexical)
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func scanResults(rows *sql.Rows, branch domain.MatchProvenance) ([]domain.ScoredResult, error) {
	var out []domain.ScoredResult
	for rows.Next() {
		var (
			rec        domain.Record
			page       sql.NullInt64
			translated sql.NullString
			contextTxt sql.NullString
			caption    sql.NullString
			entityRaw  []byte
			correction sql.NullString
			score      float64
		)
		err := rows.Scan(
			&rec.ID, &rec.SourceDoc, &page, &rec.Category, &rec.Text,
			&translated, &contextTxt, &caption, &entityRaw, &correction,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		if page.Valid {
			p := int(page.Int64)
			rec.Page = &p
		}
		rec.TranslatedText = translated.String
		rec.ContextText = contextTxt.String
		rec.Caption = caption.String
		rec.Correction = correction.String
		if len(entityRaw) > 0 {
			var entity domain.EntityPayload
			if err := json.Unmarshal(entityRaw, &entity); err != nil {
				return nil, fmt.Errorf("unmarshal entity payload: %w", err)
			}
			rec.Entity = &entity
		}

		res := domain.ScoredResult{Record: rec, MatchedBy: branch}
		if branch == domain.MatchedBySemantic {
			res.SemanticScore = score
		} else {
			res.LexicalScore = score
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// encodeVector renders the pgvector text literal, bound as a parameter and
// cast server-side.
func encodeVector(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", v)
	}
	b.WriteByte(']')
	return b.String()
}
