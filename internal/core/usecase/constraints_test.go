package usecase

import (
	"testing"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

func TestExtractRestrictPhrases(t *testing.T) {
	extractor := NewConstraintExtractor(testTopics)

	restricted := []string{
		"use only my uploaded books to answer",
		"please answer only from my library",
		"answer without outside knowledge",
		"do not use outside knowledge here",
	}
	for _, message := range restricted {
		if !extractor.Extract(message).RestrictToCorpusOnly {
			t.Fatalf("expected restrict for %q", message)
		}
	}

	if extractor.Extract("recommend anything you like").RestrictToCorpusOnly {
		t.Fatalf("expected no restriction for open request")
	}
}

func TestExtractResultCount(t *testing.T) {
	extractor := NewConstraintExtractor(testTopics)

	if got := extractor.Extract("give me 5 books on banking").ResultCount; got != 5 {
		t.Fatalf("expected count 5, got %d", got)
	}
	if got := extractor.Extract("give me 3 recommendations").ResultCount; got != 3 {
		t.Fatalf("expected count 3, got %d", got)
	}
	if got := extractor.Extract("give me 0 books").ResultCount; got != 0 {
		t.Fatalf("expected non-positive count ignored, got %d", got)
	}
	if got := extractor.Extract("suggest some books").ResultCount; got != 0 {
		t.Fatalf("expected no count, got %d", got)
	}
}

func TestExtractTopicVocabularyWinsOverPreposition(t *testing.T) {
	extractor := NewConstraintExtractor(testTopics)

	if got := extractor.Extract("books about banking regulation").TopicFilter; got != "banking" {
		t.Fatalf("expected vocabulary topic banking, got %q", got)
	}
}

func TestExtractTopicPrepositionFallback(t *testing.T) {
	extractor := NewConstraintExtractor(testTopics)

	got := extractor.Extract("books about remote team rituals").TopicFilter
	if got != "remote team rituals" {
		t.Fatalf("expected preposition-derived topic, got %q", got)
	}
}

func TestExtractTopicStopsAtClauseBoundary(t *testing.T) {
	extractor := NewConstraintExtractor(testTopics)

	got := extractor.Extract("anything about negotiation, ideally short").TopicFilter
	if got != "negotiation" {
		t.Fatalf("expected topic to stop at comma, got %q", got)
	}
}

func TestExtractDifficulty(t *testing.T) {
	extractor := NewConstraintExtractor(testTopics)

	cases := map[string]domain.Difficulty{
		"a beginner friendly read":       domain.DifficultyBeginner,
		"an advanced treatment":          domain.DifficultyAdvanced,
		"something intermediate":         domain.DifficultyIntermediate,
		"from beginner to advanced":      domain.DifficultyBeginner,
		"whatever you think is suitable": "",
	}
	for message, want := range cases {
		if got := extractor.Extract(message).DifficultyFilter; got != want {
			t.Fatalf("message %q: expected difficulty %q, got %q", message, want, got)
		}
	}
}
