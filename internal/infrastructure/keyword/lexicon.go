package keyword

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the tunable language resources for keyword extraction. The
// defaults cover both corpus languages; deployments override them with a YAML
// file when the corpus vocabulary needs it.
type Lexicon struct {
	StopwordsKorean  []string `yaml:"stopwords_korean"`
	StopwordsEnglish []string `yaml:"stopwords_english"`
	Particles        []string `yaml:"particles"`
	PredicateSuffix  []string `yaml:"predicate_suffixes"`
}

func DefaultLexicon() Lexicon {
	return Lexicon{
		StopwordsKorean: []string{
			"그리고", "그런데", "하지만", "그래서", "또한", "또는", "즉", "및",
			"등", "때문", "경우", "대해", "대한", "관련", "어떤", "어떻게",
			"무엇", "언제", "어디", "누가", "왜", "있는", "없는", "하는",
			"있다", "없다", "한다", "된다", "이것", "저것", "그것",
		},
		StopwordsEnglish: []string{
			"a", "an", "the", "and", "or", "but", "if", "then", "than",
			"is", "are", "was", "were", "be", "been", "being",
			"do", "does", "did", "have", "has", "had",
			"what", "which", "when", "where", "who", "whom", "why", "how",
			"this", "that", "these", "those", "it", "its",
			"i", "you", "he", "she", "we", "they", "my", "your",
			"in", "on", "at", "to", "of", "for", "with", "about",
			"from", "by", "as", "can", "could", "should", "would",
			"will", "shall", "may", "might", "must", "not", "no",
			"there", "here", "please", "tell", "me", "show",
		},
		Particles: []string{
			"에서의", "으로는", "으로의", "이라는", "에게서", "으로써", "으로서",
			"께서", "에서", "에게", "한테", "부터", "까지", "으로", "이나",
			"라도", "든지", "처럼", "보다", "마다", "조차", "밖에", "이란",
			"은", "는", "이", "가", "을", "를", "에", "로", "와", "과",
			"의", "도", "만", "나", "요",
		},
		PredicateSuffix: []string{
			"합니다", "됩니다", "입니다", "하세요", "하는", "되는",
			"하다", "되다", "이다", "하기", "되기", "해야", "했다", "됐다",
		},
	}
}

// LoadLexicon reads a YAML lexicon file. Missing keys fall back to defaults
// so a partial override file stays valid.
func LoadLexicon(path string) (Lexicon, error) {
	out := DefaultLexicon()
	if path == "" {
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read lexicon file: %w", err)
	}

	var loaded Lexicon
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return out, fmt.Errorf("parse lexicon yaml: %w", err)
	}

	if len(loaded.StopwordsKorean) > 0 {
		out.StopwordsKorean = loaded.StopwordsKorean
	}
	if len(loaded.StopwordsEnglish) > 0 {
		out.StopwordsEnglish = loaded.StopwordsEnglish
	}
	if len(loaded.Particles) > 0 {
		out.Particles = loaded.Particles
	}
	if len(loaded.PredicateSuffix) > 0 {
		out.PredicateSuffix = loaded.PredicateSuffix
	}
	return out, nil
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
