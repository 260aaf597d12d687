package usecase

import (
	"strings"
	"unicode"
)

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func hasToken(set map[string]struct{}, token string) bool {
	_, ok := set[token]
	return ok
}

// containsMarker matches multi-word markers by substring and single-word
// markers on token boundaries, so "more" does not fire inside "memory".
func containsMarker(lower string, tokens map[string]struct{}, marker string) bool {
	if strings.ContainsRune(marker, ' ') {
		return strings.Contains(lower, marker)
	}
	return hasToken(tokens, marker)
}

func containsAnyMarker(lower string, tokens map[string]struct{}, markers []string) bool {
	for _, marker := range markers {
		if containsMarker(lower, tokens, marker) {
			return true
		}
	}
	return false
}

var queryStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "about": {}, "what": {},
	"have": {}, "you": {}, "your": {}, "can": {}, "please": {}, "give": {},
	"show": {}, "list": {}, "all": {}, "any": {}, "some": {}, "how": {},
	"are": {}, "was": {}, "that": {}, "this": {}, "from": {}, "books": {},
	"book": {}, "recommend": {}, "recommendation": {}, "recommendations": {},
	"suggest": {}, "suggestion": {}, "suggestions": {}, "find": {},
	"search": {}, "looking": {}, "referring": {},
}

// queryTokens keeps tokens longer than two characters minus stopwords, the
// input for the keyword and entity strategies.
func queryTokens(s string) []string {
	raw := splitAlphaNumLower(s)
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, token := range raw {
		if len(token) <= 2 {
			continue
		}
		if _, stop := queryStopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}
