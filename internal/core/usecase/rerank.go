package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// rerankBatch hands truncated previews of every candidate to the reranking
// model and reorders by the identifier list it returns. Identifier format
// mismatches are repaired where possible and dropped with a warning
// otherwise; a fully unusable response keeps the original order.
func (o *RetrievalOrchestrator) rerankBatch(
	ctx context.Context,
	query string,
	results []domain.ScoredResult,
	topK int,
) ([]domain.ScoredResult, bool) {
	candidates := make([]ports.RerankCandidate, 0, len(results))
	byID := make(map[string]domain.ScoredResult, len(results))
	for _, res := range results {
		id := resultKey(res)
		byID[id] = res
		candidates = append(candidates, ports.RerankCandidate{
			ID:      id,
			Preview: truncatePreview(res.Record.DisplayText(), o.cfg.RerankPreview),
		})
	}

	ordered, err := o.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		slog.Warn("rerank call failed, keeping fused order", "error", err)
		return results, false
	}

	out := make([]domain.ScoredResult, 0, topK)
	taken := make(map[string]struct{}, len(ordered))
	for _, raw := range ordered {
		id, ok := matchIdentifier(raw, byID)
		if !ok {
			slog.Warn("rerank returned unknown identifier", "identifier", raw)
			continue
		}
		if _, dup := taken[id]; dup {
			continue
		}
		taken[id] = struct{}{}
		out = append(out, byID[id])
		if len(out) == topK {
			break
		}
	}

	if len(out) == 0 {
		slog.Warn("rerank produced no usable identifiers, keeping fused order")
		return results, false
	}
	return out, true
}

// matchIdentifier maps a model-returned identifier onto a candidate id,
// applying a small set of normalization repairs for the usual format drift:
// wrapping brackets or quotes, "id:"-style prefixes, and numeric ids echoed
// with different zero padding.
func matchIdentifier(raw string, byID map[string]domain.ScoredResult) (string, bool) {
	if _, ok := byID[raw]; ok {
		return raw, true
	}

	cleaned := normalizeIdentifier(raw)
	if cleaned == "" {
		return "", false
	}
	if _, ok := byID[cleaned]; ok {
		return cleaned, true
	}

	// Numeric coercion: "007" and 7 are the same identifier.
	if n, err := strconv.Atoi(cleaned); err == nil {
		for id := range byID {
			if m, err := strconv.Atoi(normalizeIdentifier(id)); err == nil && m == n {
				return id, true
			}
		}
	}
	return "", false
}

func normalizeIdentifier(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "[](){}\"'` ")
	for _, prefix := range []string{"id:", "id ", "doc:", "record:", "#"} {
		if rest, ok := strings.CutPrefix(strings.ToLower(s), prefix); ok {
			// Cut from the original string to preserve the id's own casing.
			s = strings.TrimSpace(s[len(s)-len(rest):])
			break
		}
	}
	return strings.TrimSpace(s)
}

func truncatePreview(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	// Cut on a rune boundary.
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
