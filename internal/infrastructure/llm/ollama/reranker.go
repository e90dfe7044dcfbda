package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// Reranker asks the model to order candidate previews by relevance. The
// identifier list it returns is treated as untrusted: the orchestrator
// repairs or drops anything that does not map back onto a candidate.
type Reranker struct {
	client *Client
}

func NewReranker(client *Client) *Reranker {
	return &Reranker{client: client}
}

func (r *Reranker) Rerank(ctx context.Context, query string, candidates []ports.RerankCandidate) ([]string, error) {
	raw, err := r.client.generateJSON(ctx, buildRerankPrompt(query, candidates), checkTemperature)
	if err != nil {
		return nil, err
	}

	// Models echo ids back as strings or bare numbers depending on mood;
	// accept both.
	var parsed struct {
		RankedIDs []json.RawMessage `json:"ranked_ids"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse rerank json: %w", err)
	}

	ids := make([]string, 0, len(parsed.RankedIDs))
	for _, rawID := range parsed.RankedIDs {
		var s string
		if err := json.Unmarshal(rawID, &s); err == nil {
			ids = append(ids, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(rawID, &n); err == nil {
			ids = append(ids, n.String())
			continue
		}
		ids = append(ids, string(rawID))
	}
	return ids, nil
}
