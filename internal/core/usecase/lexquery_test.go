package usecase

import "testing"

func TestBuildLexicalQuery(t *testing.T) {
	cases := []struct {
		name  string
		terms []string
		want  string
	}{
		{"empty", nil, ""},
		{"single", []string{"오일"}, "오일"},
		{"pair", []string{"엔진", "오일"}, "엔진 & 오일"},
		{"three", []string{"엔진", "오일", "교체"}, "(엔진 & 오일) | 교체"},
		{"four", []string{"engine", "oil", "change", "interval"}, "(engine & oil) | change | interval"},
		{"operators stripped", []string{"a&b", "c|d", "e:f"}, "(ab & cd) | ef"},
		{"blank terms dropped", []string{"", "  ", "oil"}, "oil"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildLexicalQuery(tc.terms); got != tc.want {
				t.Fatalf("BuildLexicalQuery(%v) = %q, want %q", tc.terms, got, tc.want)
			}
		})
	}
}

func TestSanitizeLexemeDropsInjectionCharacters(t *testing.T) {
	if got := sanitizeLexeme("oil!) | (dangerous:*"); got != "oil  dangerous" {
		t.Fatalf("unexpected sanitized lexeme %q", got)
	}
}
