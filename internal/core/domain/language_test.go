package domain

import "testing"

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Language
	}{
		{"pure korean", "엔진 오일 교체 주기는 어떻게 되나요", LanguageKorean},
		{"pure english", "What is the oil change interval", LanguageEnglish},
		{"mixed with enough korean", "엔진 오일 filter spec", LanguageKorean},
		{"single korean word among many english", "replacement interval and viscosity grade for 오일", LanguageEnglish},
		{"digits and punctuation only", "10,000 - 15,000", LanguageEnglish},
		{"empty", "", LanguageEnglish},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectLanguage(tc.text); got != tc.want {
				t.Fatalf("DetectLanguage(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}
