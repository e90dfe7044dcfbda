package keyword

import (
	"testing"

	"github.com/kirillkom/manual-qa/internal/core/domain"
)

func TestTermBudget(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"엔진 오일", 2},
		{"엔진 오일 교체", 2},
		{"엔진 오일 교체 주기 확인", 3},
		{"엔진 오일 교체 주기 확인 방법", 3},
		{"how do i check the engine oil level", 4},
	}
	for _, tc := range cases {
		if got := termBudget(tc.text); got != tc.want {
			t.Errorf("termBudget(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestExtractKorean(t *testing.T) {
	e := NewExtractor(DefaultLexicon())

	got := e.Extract("엔진 오일을 교체하는 방법", domain.LanguageKorean)
	want := []string{"엔진", "오일", "교체"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestExtractBudgetCapsOutput(t *testing.T) {
	e := NewExtractor(DefaultLexicon())

	got := e.Extract("엔진 오일", domain.LanguageKorean)
	if len(got) > 2 {
		t.Fatalf("two-word query should yield at most 2 terms, got %v", got)
	}
}

func TestExtractEmptyText(t *testing.T) {
	e := NewExtractor(DefaultLexicon())

	if got := e.Extract("   ", domain.LanguageKorean); got != nil {
		t.Fatalf("blank text should yield nil, got %v", got)
	}
}

func TestExtractFallsBackWhenThin(t *testing.T) {
	e := NewExtractor(DefaultLexicon())

	// Every Korean token is a stopword, so the strategy yields under two
	// terms and the naive path takes over. It drops the same stopwords,
	// leaving only the product code with its original casing.
	got := e.Extract("그리고 SUV 때문", domain.LanguageKorean)
	if len(got) != 1 || got[0] != "SUV" {
		t.Fatalf("got %v, want [SUV]", got)
	}
}

func TestDedupeFirstSeen(t *testing.T) {
	in := []weightedTerm{
		{term: "엔진", weight: 1.0},
		{term: "오일", weight: 1.0},
		{term: "엔진", weight: 0.7},
	}
	out := dedupeFirstSeen(in)
	if len(out) != 2 {
		t.Fatalf("got %d terms, want 2", len(out))
	}
	if out[0].term != "엔진" || out[0].weight != 1.0 {
		t.Fatalf("first occurrence should win: %+v", out[0])
	}
}

func TestDedupeMaxWeight(t *testing.T) {
	in := []weightedTerm{
		{term: "Oil", weight: 1.0},
		{term: "filter", weight: 1.0},
		{term: "oil", weight: 1.5},
	}
	out := dedupeMaxWeight(in)
	if len(out) != 2 {
		t.Fatalf("got %d terms, want 2", len(out))
	}
	if out[0].term != "Oil" || out[0].weight != 1.5 {
		t.Fatalf("case-insensitive dedupe should keep max weight on first form: %+v", out[0])
	}
}
