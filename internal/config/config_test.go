package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("RETRIEVAL_ENTITY_CAP", "")
	t.Setenv("RETRIEVAL_VECTOR_LIMIT", "")
	t.Setenv("CATALOG_PAGE_SIZE", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg := Load()
	if cfg.RetrievalEntityCap != 8 {
		t.Fatalf("expected default entity cap 8, got %d", cfg.RetrievalEntityCap)
	}
	if cfg.RetrievalVectorLimit != 10 {
		t.Fatalf("expected default vector limit 10, got %d", cfg.RetrievalVectorLimit)
	}
	if cfg.CatalogPageSize != 20 {
		t.Fatalf("expected default catalog page size 20, got %d", cfg.CatalogPageSize)
	}
	if cfg.NATSSubject != "chat.classified" {
		t.Fatalf("expected default analytics subject, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CATALOG_PAGE_SIZE", "50")
	t.Setenv("RETRIEVAL_MIN_NON_VECTOR", "5")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.CatalogPageSize != 50 {
		t.Fatalf("expected page size override, got %d", cfg.CatalogPageSize)
	}
	if cfg.RetrievalMinNonVector != 5 {
		t.Fatalf("expected min non-vector override, got %d", cfg.RetrievalMinNonVector)
	}
	if cfg.RateLimitRequestsPerSec != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRequestsPerSec)
	}
}

func TestLoadTopicVocabularyDefaults(t *testing.T) {
	topics, err := LoadTopicVocabulary("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(topics) == 0 {
		t.Fatalf("expected built-in topics")
	}
	found := false
	for _, topic := range topics {
		if topic == "leadership" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected leadership in the default vocabulary")
	}
}

func TestLoadTopicVocabularyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	content := "topics:\n  - Chess\n  - endgames\n  - chess\n  - \"  \"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write vocabulary file: %v", err)
	}

	topics, err := LoadTopicVocabulary(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(topics) != 2 || topics[0] != "chess" || topics[1] != "endgames" {
		t.Fatalf("expected lowercased deduplicated topics, got %v", topics)
	}
}

func TestLoadTopicVocabularyRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	if err := os.WriteFile(path, []byte("topics: []\n"), 0o644); err != nil {
		t.Fatalf("write vocabulary file: %v", err)
	}

	if _, err := LoadTopicVocabulary(path); err == nil {
		t.Fatalf("expected error for empty vocabulary")
	}
}

func TestLoadTopicVocabularyMissingFile(t *testing.T) {
	if _, err := LoadTopicVocabulary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
