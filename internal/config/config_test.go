package config

import "testing"

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("FUSION_RRF_K", "")
	t.Setenv("FUSION_SEMANTIC_WEIGHT", "")
	t.Setenv("FUSION_LEXICAL_WEIGHT", "")
	t.Setenv("RERANK_THRESHOLD", "")
	t.Setenv("MAX_RETRIES", "")

	cfg := Load()
	if cfg.SearchTopK != 10 {
		t.Fatalf("expected default top k 10, got %d", cfg.SearchTopK)
	}
	if cfg.FusionRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.FusionRRFK)
	}
	if cfg.SemanticWeight != 0.5 || cfg.LexicalWeight != 0.5 {
		t.Fatalf("expected default fusion weights 0.5/0.5, got %v/%v", cfg.SemanticWeight, cfg.LexicalWeight)
	}
	if cfg.RerankThreshold != 10 {
		t.Fatalf("expected default rerank threshold 10, got %d", cfg.RerankThreshold)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", cfg.MaxRetries)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "8")
	t.Setenv("FUSION_SEMANTIC_WEIGHT", "0.7")
	t.Setenv("HALLUCINATION_THRESHOLD", "0.5")
	t.Setenv("RETRIEVAL_WORKERS", "4")
	t.Setenv("OLLAMA_EMBED_MODEL_KO", "custom-ko")

	cfg := Load()
	if cfg.SearchTopK != 8 {
		t.Fatalf("expected top k 8, got %d", cfg.SearchTopK)
	}
	if cfg.SemanticWeight != 0.7 {
		t.Fatalf("expected semantic weight 0.7, got %v", cfg.SemanticWeight)
	}
	if cfg.HallucinationThreshold != 0.5 {
		t.Fatalf("expected hallucination threshold 0.5, got %v", cfg.HallucinationThreshold)
	}
	if cfg.RetrievalWorkers != 4 {
		t.Fatalf("expected retrieval workers 4, got %d", cfg.RetrievalWorkers)
	}
	if cfg.OllamaEmbedKo != "custom-ko" {
		t.Fatalf("expected embed model override, got %q", cfg.OllamaEmbedKo)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("FUSION_RRF_K", "not-a-number")
	t.Setenv("QUALITY_THRESHOLD", "also-not")

	cfg := Load()
	if cfg.FusionRRFK != 60 {
		t.Fatalf("expected fallback rrf k 60, got %d", cfg.FusionRRFK)
	}
	if cfg.QualityThreshold != 0.6 {
		t.Fatalf("expected fallback quality threshold 0.6, got %v", cfg.QualityThreshold)
	}
}
