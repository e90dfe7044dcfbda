package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// planTemperature allows some paraphrase variety without drifting off-topic.
const planTemperature = 0.3

// Planner reformulates a question into search query variants.
type Planner struct {
	client *Client
}

func NewPlanner(client *Client) *Planner {
	return &Planner{client: client}
}

func (p *Planner) PlanVariants(ctx context.Context, question string) ([]string, error) {
	raw, err := p.client.generateJSON(ctx, buildPlanPrompt(question), planTemperature)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Variants []string `json:"variants"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse plan json: %w", err)
	}

	variants := make([]string, 0, len(parsed.Variants))
	for _, v := range parsed.Variants {
		v = strings.TrimSpace(v)
		if v != "" {
			variants = append(variants, v)
		}
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("planner returned no variants")
	}
	return variants, nil
}
