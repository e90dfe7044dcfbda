package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/manual-qa/internal/infrastructure/resilience"
)

// Client is the shared transport for every Ollama-backed capability:
// embeddings, synthesis, the verification checkers, reranking, and query
// planning. A single rate limiter covers all of them so concurrent variant
// searches cannot stampede the provider.
type Client struct {
	baseURL      string
	genModel     string
	embedModelKE map[string]string
	httpClient   *http.Client
	limiter      *rate.Limiter
	executor     *resilience.Executor
}

type Config struct {
	BaseURL        string
	GenModel       string
	EmbedModelKo   string
	EmbedModelEn   string
	RequestTimeout time.Duration
	RequestsPerSec float64
	Burst          int
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		genModel: cfg.GenModel,
		embedModelKE: map[string]string{
			"ko": cfg.EmbedModelKo,
			"en": cfg.EmbedModelEn,
		},
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		executor:   executor,
	}
}

func (c *Client) generateText(ctx context.Context, prompt string, temperature float64) (string, error) {
	return c.generate(ctx, map[string]any{
		"model":   c.genModel,
		"prompt":  prompt,
		"stream":  false,
		"options": map[string]any{"temperature": temperature},
	})
}

func (c *Client) generateJSON(ctx context.Context, prompt string, temperature float64) (string, error) {
	return c.generate(ctx, map[string]any{
		"model":   c.genModel,
		"prompt":  prompt,
		"stream":  false,
		"format":  "json",
		"options": map[string]any{"temperature": temperature},
	})
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	call := func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("ollama %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return statusError(operation, resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

// extractJSONObject trims any prose the model wraps around its JSON object.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
