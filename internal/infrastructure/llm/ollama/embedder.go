package ollama

import (
	"context"
	"fmt"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// Embedder computes query vectors with the per-language embedding model.
// Each corpus language has its own model and vector space; mixing them
// produces garbage similarities.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string, lang domain.Language) ([]float32, error) {
	model, ok := e.client.embedModelKE[string(lang)]
	if !ok || model == "" {
		return nil, fmt.Errorf("no embedding model configured for language %q", lang)
	}

	request := map[string]any{
		"model": model,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result for language %q", lang)
	}
	return response.Embeddings[0], nil
}
