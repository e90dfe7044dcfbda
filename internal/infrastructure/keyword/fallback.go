package keyword

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

// fallbackStrategy is the naive path: whitespace split, punctuation strip,
// stopword drop, length >= 2. English tokens keep their capitalization
// signal as a small score bonus.
type fallbackStrategy struct {
	stopwordsKorean  map[string]struct{}
	stopwordsEnglish map[string]struct{}
}

func newFallbackStrategy(lex Lexicon) *fallbackStrategy {
	return &fallbackStrategy{
		stopwordsKorean:  toSet(lex.StopwordsKorean),
		stopwordsEnglish: toSet(lex.StopwordsEnglish),
	}
}

func (s *fallbackStrategy) extract(text string, lang domain.Language) []weightedTerm {
	stopwords := s.stopwordsEnglish
	if lang == domain.LanguageKorean {
		stopwords = s.stopwordsKorean
	}

	fields := strings.Fields(text)
	terms := make([]weightedTerm, 0, len(fields))
	for _, field := range fields {
		token := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if runeLen(token) < 2 {
			continue
		}
		if _, stop := stopwords[strings.ToLower(token)]; stop {
			continue
		}

		weight := 1.0
		if lang == domain.LanguageEnglish && startsUpper(token) {
			weight = 1.2
		}
		terms = append(terms, weightedTerm{term: token, weight: weight})
	}

	terms = dedupeFirstSeen(terms)
	// Best first, so the term budget never cuts a boosted token.
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].weight > terms[j].weight })
	return terms
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
