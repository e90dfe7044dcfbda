package keyword

import (
	"log/slog"
	"strings"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// weightedTerm is an extraction candidate before the count budget is applied.
type weightedTerm struct {
	term   string
	weight float64
}

// Extractor selects a language strategy at call time: rule-based
// morphological tokenization for Korean, POS tagging for English, and a
// shared naive fallback when tagging fails or under-delivers.
type Extractor struct {
	korean   *koreanStrategy
	english  *englishStrategy
	fallback *fallbackStrategy
}

func NewExtractor(lex Lexicon) *Extractor {
	return &Extractor{
		korean:   newKoreanStrategy(lex),
		english:  newEnglishStrategy(),
		fallback: newFallbackStrategy(lex),
	}
}

// Extract returns at most termBudget(text) terms, best first. An empty
// result means no lexical search is possible for this query.
func (e *Extractor) Extract(text string, lang domain.Language) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	budget := termBudget(text)

	var terms []weightedTerm
	var err error
	switch lang {
	case domain.LanguageKorean:
		terms = e.korean.extract(text)
	default:
		terms, err = e.english.extract(text)
		if err != nil {
			slog.Warn("pos tagging failed, using naive extraction", "error", err)
			terms = nil
		}
	}

	// Under two tagged terms the tagger output is too thin to search with.
	if len(terms) < 2 {
		terms = e.fallback.extract(text, lang)
	}

	out := make([]string, 0, budget)
	for _, t := range terms {
		if len(out) == budget {
			break
		}
		out = append(out, t.term)
	}
	return out
}

// termBudget scales the term count with query breadth: 2 terms up to 3
// words, 3 up to 6, 4 beyond.
func termBudget(text string) int {
	words := len(strings.Fields(text))
	switch {
	case words <= 3:
		return 2
	case words <= 6:
		return 3
	default:
		return 4
	}
}

// dedupeFirstSeen keeps the first occurrence of each surface form,
// preserving order.
func dedupeFirstSeen(terms []weightedTerm) []weightedTerm {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t.term]; ok {
			continue
		}
		seen[t.term] = struct{}{}
		out = append(out, t)
	}
	return out
}

// dedupeMaxWeight keeps the maximum weight per lowercased surface form,
// preserving first-seen order for equal weights.
func dedupeMaxWeight(terms []weightedTerm) []weightedTerm {
	best := make(map[string]int, len(terms))
	out := make([]weightedTerm, 0, len(terms))
	for _, t := range terms {
		key := strings.ToLower(t.term)
		if idx, ok := best[key]; ok {
			if t.weight > out[idx].weight {
				out[idx].weight = t.weight
			}
			continue
		}
		best[key] = len(out)
		out = append(out, t)
	}
	return out
}
