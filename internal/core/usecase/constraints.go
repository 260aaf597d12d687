package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

// restrictPhrases express "use only my uploaded material". Matched by
// substring against the lowercased message.
var restrictPhrases = []string{
	"only my uploaded",
	"only use my",
	"use only my",
	"just my uploaded",
	"just use my",
	"exclusively my",
	"exclusively from my",
	"only from my",
	"only the uploaded",
	"don't use outside knowledge",
	"do not use outside knowledge",
	"without outside knowledge",
	"no outside knowledge",
}

var resultCountPattern = regexp.MustCompile(`(?i)\b(\d+)\s+(?:books?|recommendations?|suggestions?)\b`)

var topicPrepositionPattern = regexp.MustCompile(`(?i)\b(?:about|on|regarding|for)\s+([^,.;:!?\n]+)`)

var (
	beginnerMarkers     = []string{"beginner", "basic", "intro", "introductory"}
	advancedMarkers     = []string{"advanced", "expert", "complex"}
	intermediateMarkers = []string{"intermediate", "moderate"}
)

// ConstraintExtractor pulls structured filters out of free text. Pure; all
// rules are order-independent except topic, where the first successful
// pattern wins for reproducibility.
type ConstraintExtractor struct {
	topics []string
}

func NewConstraintExtractor(topics []string) *ConstraintExtractor {
	return &ConstraintExtractor{topics: topics}
}

func (x *ConstraintExtractor) Extract(message string) domain.Constraints {
	lower := strings.ToLower(message)
	tokens := toTokenSet(message)

	return domain.Constraints{
		RestrictToCorpusOnly: extractRestrict(lower),
		ResultCount:          extractResultCount(message),
		TopicFilter:          x.extractTopic(lower, tokens),
		DifficultyFilter:     extractDifficulty(lower, tokens),
	}
}

func extractRestrict(lower string) bool {
	for _, phrase := range restrictPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// extractResultCount takes the first integer adjacent to books/
// recommendations/suggestions. Non-positive values are ignored rather than
// rejected; counts are soft heuristics.
func extractResultCount(message string) int {
	match := resultCountPattern.FindStringSubmatch(message)
	if len(match) < 2 {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// extractTopic checks the configured vocabulary first, then text following a
// topical preposition up to the next clause boundary. First pattern wins.
func (x *ConstraintExtractor) extractTopic(lower string, tokens map[string]struct{}) string {
	for _, topic := range x.topics {
		if hasToken(tokens, strings.ToLower(topic)) {
			return topic
		}
	}

	match := topicPrepositionPattern.FindStringSubmatch(lower)
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func extractDifficulty(lower string, tokens map[string]struct{}) domain.Difficulty {
	switch {
	case containsAnyMarker(lower, tokens, beginnerMarkers):
		return domain.DifficultyBeginner
	case containsAnyMarker(lower, tokens, advancedMarkers):
		return domain.DifficultyAdvanced
	case containsAnyMarker(lower, tokens, intermediateMarkers):
		return domain.DifficultyIntermediate
	default:
		return ""
	}
}
