package postgres

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// compiledFilter is a WHERE fragment with its bound arguments. The fragment
// is built only from fixed SQL and numbered placeholders; every value rides
// as a parameter.
type compiledFilter struct {
	clause string
	args   []any
}

// compileFilter translates a SearchFilter into SQL predicates, numbering
// placeholders from startIdx. An empty filter compiles to an empty clause
// (always true). A malformed entity sub-predicate drops that sub-predicate
// only, with a log line naming it, instead of failing the filter.
func compileFilter(f domain.SearchFilter, startIdx int) compiledFilter {
	var (
		clauses []string
		args    []any
	)
	next := func() int { return startIdx + len(args) }

	if len(f.Categories) > 0 {
		placeholders := make([]string, 0, len(f.Categories))
		for _, c := range f.Categories {
			placeholders = append(placeholders, fmt.Sprintf("$%d", next()))
			args = append(args, string(c))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(f.Pages) > 0 {
		placeholders := make([]string, 0, len(f.Pages))
		for _, p := range f.Pages {
			placeholders = append(placeholders, fmt.Sprintf("$%d", next()))
			args = append(args, p)
		}
		clauses = append(clauses, fmt.Sprintf("page IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(f.SourceDocs) > 0 {
		placeholders := make([]string, 0, len(f.SourceDocs))
		for _, s := range f.SourceDocs {
			placeholders = append(placeholders, fmt.Sprintf("$%d", next()))
			args = append(args, s)
		}
		clauses = append(clauses, fmt.Sprintf("source_doc IN (%s)", strings.Join(placeholders, ", ")))
	}

	if f.CaptionContains != "" {
		clauses = append(clauses, fmt.Sprintf("caption ILIKE $%d", next()))
		args = append(args, "%"+f.CaptionContains+"%")
	}

	if f.HasEntity() {
		entityClauses, entityArgs := compileEntityFilter(*f.Entity, next())
		clauses = append(clauses, entityClauses...)
		args = append(args, entityArgs...)
	}

	if len(clauses) == 0 {
		return compiledFilter{}
	}
	return compiledFilter{
		clause: " AND " + strings.Join(clauses, " AND "),
		args:   args,
	}
}

// compileEntityFilter compiles predicates over the JSONB entity payload.
// Sub-predicates degrade independently: a bad one is dropped and logged, the
// rest still apply.
func compileEntityFilter(e domain.EntityFilter, startIdx int) ([]string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func() int { return startIdx + len(args) }

	if kind := strings.TrimSpace(e.Kind); kind != "" {
		clauses = append(clauses, fmt.Sprintf("entity->>'kind' = $%d", next()))
		args = append(args, kind)
	} else if e.Kind != "" {
		slog.Warn("dropping malformed entity sub-predicate", "predicate", "kind")
	}

	if title := strings.TrimSpace(e.TitleContains); title != "" {
		clauses = append(clauses, fmt.Sprintf("entity->>'title' ILIKE $%d", next()))
		args = append(args, "%"+title+"%")
	} else if e.TitleContains != "" {
		slog.Warn("dropping malformed entity sub-predicate", "predicate", "title_contains")
	}

	if keywords := cleanKeywords(e.KeywordsAny); len(keywords) > 0 {
		placeholders := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			placeholders = append(placeholders, fmt.Sprintf("$%d", next()))
			args = append(args, kw)
		}
		clauses = append(clauses, fmt.Sprintf("entity->'keywords' ?| ARRAY[%s]", strings.Join(placeholders, ", ")))
	} else if len(e.KeywordsAny) > 0 {
		slog.Warn("dropping malformed entity sub-predicate", "predicate", "keywords_any")
	}

	if details := strings.TrimSpace(e.DetailsContains); details != "" {
		clauses = append(clauses, fmt.Sprintf("entity->>'details' ILIKE $%d", next()))
		args = append(args, "%"+details+"%")
	} else if e.DetailsContains != "" {
		slog.Warn("dropping malformed entity sub-predicate", "predicate", "details_contains")
	}

	return clauses, args
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
