package domain

import "unicode"

// Language tags the two corpus languages. Each record carries one embedding
// and one full-text index per language.
type Language string

const (
	LanguageKorean  Language = "ko"
	LanguageEnglish Language = "en"
)

// hangulRatioThreshold is the share of Hangul letters at which a query is
// treated as Korean. Mixed queries with the odd Korean term ("오일 filter
// spec") still carry enough Hangul to cross it.
const hangulRatioThreshold = 0.15

// DetectLanguage classifies text by Hangul script ratio. Detection runs per
// query reformulation, never once per top-level query: paraphrases of a
// bilingual corpus routinely switch language mid-plan.
func DetectLanguage(text string) Language {
	var letters, hangul int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Hangul, r) {
			hangul++
		}
	}
	if letters == 0 {
		return LanguageEnglish
	}
	if float64(hangul)/float64(letters) >= hangulRatioThreshold {
		return LanguageKorean
	}
	return LanguageEnglish
}
