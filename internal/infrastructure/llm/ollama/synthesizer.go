package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// Generation temperatures per synthesis mode. Conservative regeneration runs
// cold so the model sticks to the supported claims it is given.
const (
	temperatureInitial      = 0.7
	temperatureConservative = 0.2
	temperatureImprovement  = 0.5
)

// Synthesizer produces structured answers from retrieved sources.
type Synthesizer struct {
	client *Client
}

func NewSynthesizer(client *Client) *Synthesizer {
	return &Synthesizer{client: client}
}

func (s *Synthesizer) Synthesize(ctx context.Context, req ports.SynthesisRequest) (*domain.Answer, error) {
	temperature := temperatureInitial
	switch req.Mode {
	case domain.SynthesisConservative:
		temperature = temperatureConservative
	case domain.SynthesisImprovement:
		temperature = temperatureImprovement
	}

	raw, err := s.client.generateJSON(ctx, buildSynthesisPrompt(req), temperature)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Answer     string `json:"answer"`
		References []struct {
			SourceDoc string `json:"source_doc"`
			Page      *int   `json:"page"`
			Quote     string `json:"quote"`
		} `json:"references"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse synthesis json: %w", err)
	}
	if parsed.Answer == "" {
		return nil, fmt.Errorf("synthesis returned empty answer")
	}

	answer := &domain.Answer{Text: parsed.Answer}
	for _, ref := range parsed.References {
		answer.References = append(answer.References, domain.Reference{
			SourceDoc: ref.SourceDoc,
			Page:      ref.Page,
			Quote:     ref.Quote,
		})
	}
	return answer, nil
}
