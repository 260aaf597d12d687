package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

// buildContextBlock renders the ranked items into the grounding text handed
// to the completion model.
func buildContextBlock(candidates []domain.ScoredCandidate) string {
	if len(candidates) == 0 {
		return "(no relevant material found in the library)"
	}

	var b strings.Builder
	b.WriteString("Relevant material from the user's library:\n")
	for i, candidate := range candidates {
		item := candidate.Item
		b.WriteString(fmt.Sprintf("%d. %q by %s", i+1, item.Title, item.Author))
		if item.DocType != "" {
			b.WriteString(fmt.Sprintf(" [%s]", item.DocType))
		}
		if item.Topic != "" {
			b.WriteString(fmt.Sprintf(", topic: %s", item.Topic))
		}
		if item.Difficulty != "" {
			b.WriteString(fmt.Sprintf(", level: %s", item.Difficulty))
		}
		b.WriteString(fmt.Sprintf(" (match: %s)", candidate.MatchReason))
		if excerpt := firstExcerpt(item, 400); excerpt != "" {
			b.WriteString("\n   excerpt: " + excerpt)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstExcerpt(item domain.CorpusItem, maxLen int) string {
	for _, chunk := range item.Chunks {
		text := strings.TrimSpace(chunk.Content)
		if text == "" {
			continue
		}
		if len(text) > maxLen {
			text = text[:maxLen] + "…"
		}
		return text
	}
	if summary := strings.TrimSpace(item.Summary); summary != "" {
		if len(summary) > maxLen {
			summary = summary[:maxLen] + "…"
		}
		return summary
	}
	return ""
}

// buildCompletionMessages assembles the ordered message list for the model.
// The system prompt forbids the model from emitting citations; the assembler
// attaches the sources block exactly once afterwards.
func buildCompletionMessages(
	cls domain.QueryClassification,
	contextBlock string,
	history []domain.ChatTurn,
	userMessage string,
	historyTail int,
) []domain.ChatTurn {
	var system strings.Builder
	system.WriteString("You are a knowledgeable librarian assistant answering from the user's personal library.\n")
	if cls.Constraints.RestrictToCorpusOnly {
		system.WriteString("Answer ONLY from the provided library material. If it is insufficient, say so; do not use outside knowledge.\n")
	} else {
		system.WriteString("Prefer the provided library material; you may add general knowledge when the material is insufficient.\n")
	}
	system.WriteString("Do not add citations, footnotes, or a sources list; sources are attached separately.\n\n")
	system.WriteString(contextBlock)

	messages := make([]domain.ChatTurn, 0, historyTail+2)
	messages = append(messages, domain.ChatTurn{Role: domain.RoleSystem, Content: system.String()})

	if historyTail > 0 && len(history) > 0 {
		start := len(history) - historyTail
		if start < 0 {
			start = 0
		}
		for _, turn := range history[start:] {
			if strings.TrimSpace(turn.Content) == "" {
				continue
			}
			if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
				continue
			}
			messages = append(messages, turn)
		}
	}

	messages = append(messages, domain.ChatTurn{Role: domain.RoleUser, Content: userMessage})
	return messages
}
