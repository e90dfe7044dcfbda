package keyword

import (
	"sort"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// POS weights for the English strategy.
const (
	weightProperNoun = 1.5
	weightCommonNoun = 1.0
	weightPredicate  = 0.7
	phraseBoost      = 1.2
)

// englishStrategy runs a POS tagger and extracts weighted terms plus 2-3
// word noun phrases whose constituents get boosted.
type englishStrategy struct{}

func newEnglishStrategy() *englishStrategy {
	return &englishStrategy{}
}

func (s *englishStrategy) extract(text string) ([]weightedTerm, error) {
	doc, err := prose.NewDocument(text, prose.WithExtraction(false), prose.WithSegmentation(false))
	if err != nil {
		return nil, err
	}

	tokens := doc.Tokens()
	terms := make([]weightedTerm, 0, len(tokens))
	boosted := phraseConstituents(tokens)

	for _, tok := range tokens {
		weight, ok := tagWeight(tok.Tag, tok.Text)
		if !ok {
			continue
		}
		if _, inPhrase := boosted[strings.ToLower(tok.Text)]; inPhrase {
			weight *= phraseBoost
		}
		terms = append(terms, weightedTerm{term: tok.Text, weight: weight})
	}

	terms = dedupeMaxWeight(terms)
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].weight > terms[j].weight })
	return terms, nil
}

func tagWeight(tag, text string) (float64, bool) {
	switch {
	case strings.HasPrefix(tag, "NNP"):
		return weightProperNoun, true
	case strings.HasPrefix(tag, "NN"):
		return weightCommonNoun, true
	case strings.HasPrefix(tag, "JJ"), strings.HasPrefix(tag, "VB"):
		if len(text) >= 3 {
			return weightPredicate, true
		}
	}
	return 0, false
}

// phraseConstituents finds 2-3 word noun phrases (adjective/noun runs ending
// in a noun) and returns their constituent surface forms.
func phraseConstituents(tokens []prose.Token) map[string]struct{} {
	out := make(map[string]struct{})

	run := make([]prose.Token, 0, 4)
	flush := func() {
		// Trim trailing non-nouns so the run ends in its head noun.
		end := len(run)
		for end > 0 && !strings.HasPrefix(run[end-1].Tag, "NN") {
			end--
		}
		if end >= 2 && end <= 3 {
			for _, tok := range run[:end] {
				out[strings.ToLower(tok.Text)] = struct{}{}
			}
		}
		run = run[:0]
	}

	for _, tok := range tokens {
		if strings.HasPrefix(tok.Tag, "NN") || strings.HasPrefix(tok.Tag, "JJ") {
			run = append(run, tok)
			continue
		}
		flush()
	}
	flush()
	return out
}
