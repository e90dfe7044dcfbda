package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// maxSourceSnippet bounds the text of one source inside a prompt so a long
// table record cannot crowd out the rest of the context.
const maxSourceSnippet = 2000

func formatSources(sources []domain.ScoredResult) string {
	var b strings.Builder
	for idx, src := range sources {
		page := "-"
		if src.Record.Page != nil {
			page = fmt.Sprintf("%d", *src.Record.Page)
		}
		text := src.Record.DisplayText()
		if len(text) > maxSourceSnippet {
			text = text[:maxSourceSnippet]
		}
		b.WriteString(fmt.Sprintf(
			"[%d] id=%s doc=%s page=%s category=%s score=%.3f\n%s\n\n",
			idx+1,
			src.Record.ID,
			src.Record.SourceDoc,
			page,
			src.Record.Category,
			src.Score,
			text,
		))
	}
	return b.String()
}

func buildSynthesisPrompt(req ports.SynthesisRequest) string {
	var instructions strings.Builder
	instructions.WriteString(`You answer user questions about product manuals using only the sources below.
Answer in the language of the question.
Return strict JSON object with keys:
answer (string), references (array of objects with keys source_doc (string), page (number or null), quote (string)).
Every reference quote must appear verbatim in a source.
No markdown, no extra keys.
`)

	switch req.Mode {
	case domain.SynthesisConservative:
		instructions.WriteString("\nA previous answer contained unsupported claims. Rewrite the answer using ONLY the supported claims listed below. Do not add any claim that is not in the list.\n")
		if len(req.SupportedClaims) > 0 {
			instructions.WriteString("\nSupported claims:\n")
			for _, claim := range req.SupportedClaims {
				instructions.WriteString("- " + claim + "\n")
			}
		}
	case domain.SynthesisImprovement:
		instructions.WriteString("\nA previous answer was judged incomplete. Address the missing aspects and apply the suggestions below.\n")
		if len(req.MissingAspects) > 0 {
			instructions.WriteString("\nMissing aspects:\n")
			for _, aspect := range req.MissingAspects {
				instructions.WriteString("- " + aspect + "\n")
			}
		}
		if len(req.Suggestions) > 0 {
			instructions.WriteString("\nSuggestions:\n")
			for _, suggestion := range req.Suggestions {
				instructions.WriteString("- " + suggestion + "\n")
			}
		}
	}

	return fmt.Sprintf(`%s
Question:
%s

Sources:
%s`, instructions.String(), req.Question, formatSources(req.Sources))
}

func buildGroundingPrompt(question, answer string, sources []domain.ScoredResult) string {
	return fmt.Sprintf(`You are a fact checker. Verify every claim in the answer against the sources.
Return strict JSON object with keys:
valid (boolean, true when every claim is supported by the sources),
hallucination_score (number from 0 to 1, fraction of claims NOT supported by the sources),
supported_claims (array of strings, the claims that ARE supported, quoted from the answer),
unsupported_claims (array of strings).
No markdown, no extra keys.

Question:
%s

Answer:
%s

Sources:
%s`, question, answer, formatSources(sources))
}

func buildQualityPrompt(question, answer string) string {
	return fmt.Sprintf(`You are an answer quality judge. Score how well the answer serves the question.
Return strict JSON object with keys:
completeness (number from 0 to 1), relevance (number from 0 to 1),
clarity (number from 0 to 1), usefulness (number from 0 to 1),
missing_aspects (array of strings), suggestions (array of strings).
No markdown, no extra keys.

Question:
%s

Answer:
%s`, question, answer)
}

func buildRerankPrompt(query string, candidates []ports.RerankCandidate) string {
	var b strings.Builder
	for _, cand := range candidates {
		b.WriteString(fmt.Sprintf("id=%s\n%s\n\n", cand.ID, cand.Preview))
	}

	return fmt.Sprintf(`Order the documents below from most to least relevant to the query.
Return strict JSON object with a single key:
ranked_ids (array of document id strings, most relevant first, every input id exactly once).
No markdown, no extra keys.

Query:
%s

Documents:
%s`, query, b.String())
}

func buildPlanPrompt(question string) string {
	return fmt.Sprintf(`You reformulate a user question into search queries over product manual content.
Produce 2 to 4 short variants: the original wording, a keyword-only form, and
paraphrases using likely manual terminology. If the question names a model
code or part number, keep it verbatim in every variant.
Return strict JSON object with a single key:
variants (array of strings).
No markdown, no extra keys.

Question:
%s`, question)
}
