package keyword

import (
	"strings"
	"unicode"
)

// koreanStrategy approximates morphological analysis with rule-based
// tokenization: split into script runs, strip trailing particles (josa) from
// Hangul tokens, and classify what remains. Nouns and foreign-script tokens
// weigh 1.0, predicate stems (verbs/adjectives) 0.7.
type koreanStrategy struct {
	particles       []string
	predicateSuffix []string
	stopwords       map[string]struct{}
}

func newKoreanStrategy(lex Lexicon) *koreanStrategy {
	// Longest particle first so "에서의" wins over "의".
	particles := append([]string(nil), lex.Particles...)
	for i := 1; i < len(particles); i++ {
		for j := i; j > 0 && len(particles[j]) > len(particles[j-1]); j-- {
			particles[j], particles[j-1] = particles[j-1], particles[j]
		}
	}
	return &koreanStrategy{
		particles:       particles,
		predicateSuffix: lex.PredicateSuffix,
		stopwords:       toSet(lex.StopwordsKorean),
	}
}

func (s *koreanStrategy) extract(text string) []weightedTerm {
	tokens := splitScriptRuns(text)

	terms := make([]weightedTerm, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.class {
		case scriptLatin, scriptDigit:
			// Foreign-script tokens and numerals are as meaningful as nouns
			// in a technical manual corpus (model names, capacities, units).
			if len(tok.text) >= 2 || tok.class == scriptDigit {
				terms = append(terms, weightedTerm{term: tok.text, weight: 1.0})
			}
		case scriptHangul:
			term, weight, ok := s.classifyHangul(tok.text)
			if !ok {
				continue
			}
			if _, stop := s.stopwords[term]; stop {
				continue
			}
			terms = append(terms, weightedTerm{term: term, weight: weight})
		}
	}

	return dedupeFirstSeen(terms)
}

// classifyHangul strips particles, detects predicate stems, and drops tokens
// too short to carry meaning on their own.
func (s *koreanStrategy) classifyHangul(token string) (string, float64, bool) {
	if _, stop := s.stopwords[token]; stop {
		return "", 0, false
	}

	for _, suffix := range s.predicateSuffix {
		if stem, ok := strings.CutSuffix(token, suffix); ok {
			if runeLen(stem) >= 2 {
				return stem, 0.7, true
			}
			return "", 0, false
		}
	}

	stripped := token
	for _, particle := range s.particles {
		if stem, ok := strings.CutSuffix(stripped, particle); ok && runeLen(stem) >= 2 {
			stripped = stem
			break
		}
	}

	if runeLen(stripped) < 2 {
		return "", 0, false
	}
	return stripped, 1.0, true
}

type scriptClass int

const (
	scriptOther scriptClass = iota
	scriptHangul
	scriptLatin
	scriptDigit
)

type scriptToken struct {
	text  string
	class scriptClass
}

// splitScriptRuns cuts text into maximal runs of one script class. Korean
// text has no reliable whitespace morpheme boundary, so script transitions
// are the usable seam ("엔진오일5W30" -> 엔진오일, 5, W30 handled as runs).
func splitScriptRuns(text string) []scriptToken {
	out := make([]scriptToken, 0, 16)
	var b strings.Builder
	current := scriptOther

	flush := func() {
		if b.Len() > 0 && current != scriptOther {
			out = append(out, scriptToken{text: b.String(), class: current})
		}
		b.Reset()
	}

	for _, r := range text {
		class := classifyRune(r)
		if class != current {
			flush()
			current = class
		}
		if class != scriptOther {
			if class == scriptLatin {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

func classifyRune(r rune) scriptClass {
	switch {
	case unicode.Is(unicode.Hangul, r):
		return scriptHangul
	case unicode.IsLetter(r):
		return scriptLatin
	case unicode.IsDigit(r):
		return scriptDigit
	default:
		return scriptOther
	}
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
