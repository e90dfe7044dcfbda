package keyword

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLexiconPopulated(t *testing.T) {
	lex := DefaultLexicon()
	if len(lex.StopwordsKorean) == 0 || len(lex.StopwordsEnglish) == 0 {
		t.Fatal("default stopword lists must not be empty")
	}
	if len(lex.Particles) == 0 || len(lex.PredicateSuffix) == 0 {
		t.Fatal("default particle and suffix lists must not be empty")
	}
}

func TestLoadLexiconEmptyPath(t *testing.T) {
	lex, err := LoadLexicon("")
	if err != nil {
		t.Fatalf("empty path should use defaults: %v", err)
	}
	if len(lex.Particles) != len(DefaultLexicon().Particles) {
		t.Fatal("empty path should return defaults unchanged")
	}
}

func TestLoadLexiconPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	content := "particles:\n  - \"은\"\n  - \"는\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	if len(lex.Particles) != 2 {
		t.Fatalf("particles = %v, want the two overridden entries", lex.Particles)
	}
	if len(lex.StopwordsKorean) != len(DefaultLexicon().StopwordsKorean) {
		t.Fatal("unspecified keys should keep defaults")
	}
}

func TestLoadLexiconMissingFile(t *testing.T) {
	lex, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("missing file should error")
	}
	if len(lex.StopwordsKorean) == 0 {
		t.Fatal("error path should still hand back usable defaults")
	}
}
