package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

// backReferenceMarkers are scanned against the raw message to detect
// follow-up phrasing. Multi-word markers match as substrings, single words
// on token boundaries.
var backReferenceMarkers = []string{
	"another one",
	"give me another",
	"like that",
	"another",
	"more",
	"next",
	"continue",
	"similar",
}

var bookVocabulary = []string{"book", "books", "recommend", "recommendation", "title", "author", "read"}

var demonstrativePronouns = []string{"that", "this", "it"}

var aboutPhrasePattern = regexp.MustCompile(`(?i)\b(?:about|regarding|on)\s+([^,.;:!?\n]+)`)

// ContextEnhancer rewrites an ambiguous follow-up message into a
// self-contained query using prior turns. Pure over (message, history).
type ContextEnhancer struct {
	topics []string
}

func NewContextEnhancer(topics []string) *ContextEnhancer {
	return &ContextEnhancer{topics: topics}
}

// Enhance returns the message unchanged when no back-reference is detected.
func (e *ContextEnhancer) Enhance(message string, history []domain.ChatTurn) string {
	lower := strings.ToLower(message)
	tokens := toTokenSet(message)
	enhanced := message

	if containsAnyMarker(lower, tokens, backReferenceMarkers) {
		if clause := e.backReferenceClause(history); clause != "" {
			enhanced = enhanced + " " + clause
		}
	}

	if len(history) > 0 && containsAnyMarker(lower, tokens, demonstrativePronouns) {
		if phrase := lastAssistantAboutPhrase(history); phrase != "" {
			enhanced = enhanced + fmt.Sprintf(" (context: %s)", phrase)
		}
	}

	return enhanced
}

// DeriveContextual extracts follow-up metadata once from the last assistant
// turn. The result is immutable downstream.
func (e *ContextEnhancer) DeriveContextual(message string, history []domain.ChatTurn) domain.ContextualInfo {
	lower := strings.ToLower(message)
	tokens := toTokenSet(message)

	info := domain.ContextualInfo{}
	if !containsAnyMarker(lower, tokens, backReferenceMarkers) {
		return info
	}
	info.IsFollowUp = true
	info.ReferenceType = referenceTypeOf(lower, tokens)

	if assistant, ok := lastAssistantTurn(history); ok {
		info.PreviousTopic = e.firstTopicIn(assistant.Content)
	}
	return info
}

func (e *ContextEnhancer) backReferenceClause(history []domain.ChatTurn) string {
	assistant, ok := lastAssistantTurn(history)
	if !ok {
		return "(contextual request based on earlier conversation)"
	}

	prevLower := strings.ToLower(assistant.Content)
	prevTokens := toTokenSet(assistant.Content)
	if containsAnyMarker(prevLower, prevTokens, bookVocabulary) {
		return "(referring to: recommend another book similar to the previous recommendation)"
	}
	if topic := e.firstTopicIn(assistant.Content); topic != "" {
		return fmt.Sprintf("(referring to the earlier topic: %s)", topic)
	}
	return "(contextual request based on earlier conversation)"
}

func (e *ContextEnhancer) firstTopicIn(text string) string {
	tokens := toTokenSet(text)
	for _, topic := range e.topics {
		if hasToken(tokens, strings.ToLower(topic)) {
			return topic
		}
	}
	return ""
}

func referenceTypeOf(lower string, tokens map[string]struct{}) domain.ReferenceType {
	switch {
	case containsMarker(lower, tokens, "another one"),
		containsMarker(lower, tokens, "give me another"),
		containsMarker(lower, tokens, "another"):
		return domain.ReferenceAnother
	case containsMarker(lower, tokens, "similar"), containsMarker(lower, tokens, "like that"):
		return domain.ReferenceSimilar
	case containsMarker(lower, tokens, "continue"), containsMarker(lower, tokens, "next"):
		return domain.ReferenceContinue
	default:
		return domain.ReferenceMore
	}
}

func lastAssistantTurn(history []domain.ChatTurn) (domain.ChatTurn, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant && strings.TrimSpace(history[i].Content) != "" {
			return history[i], true
		}
	}
	return domain.ChatTurn{}, false
}

func lastAssistantAboutPhrase(history []domain.ChatTurn) string {
	assistant, ok := lastAssistantTurn(history)
	if !ok {
		return ""
	}
	match := aboutPhrasePattern.FindStringSubmatch(assistant.Content)
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(match[1])
}
