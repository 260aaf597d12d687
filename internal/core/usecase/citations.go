package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

// pagePatterns are tried in order; the first match whose parsed integer lies
// in (0, 10000) wins.
var pagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpage\s+#?(\d+)\b`),
	regexp.MustCompile(`(?i)\bp\.\s*(\d+)\b`),
	regexp.MustCompile(`(?i)\[page\s+(\d+)\]`),
	regexp.MustCompile(`(?i)\(p\.\s*(\d+)\)`),
}

const maxPlausiblePage = 10000

// sourcesBlockHeader marks an attached citation block; its presence makes a
// second attachment a no-op.
const sourcesBlockHeader = "Sources:"

// extractPageNumber derives a page locator from chunk content. Deterministic
// and idempotent: identical content always yields the identical result.
func extractPageNumber(content string) (int, bool) {
	for _, pattern := range pagePatterns {
		match := pattern.FindStringSubmatch(content)
		if len(match) < 2 {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if n > 0 && n < maxPlausiblePage {
			return n, true
		}
	}
	return 0, false
}

// collectPages gathers the distinct extractable page numbers of an item's
// chunks, ascending.
func collectPages(item domain.CorpusItem) []int {
	seen := make(map[int]struct{})
	pages := make([]int, 0, len(item.Chunks))
	for _, chunk := range item.Chunks {
		n, ok := extractPageNumber(chunk.Content)
		if !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages
}

func formatPageClause(pages []int) string {
	switch len(pages) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("p. %d", pages[0])
	default:
		return fmt.Sprintf("pp. %d-%d", pages[0], pages[len(pages)-1])
	}
}

// renderInlineCitation renders the parenthetical citation for a ranked list:
// single source as (Title, Author, p. N), multiple sources joined by "; ".
func renderInlineCitation(candidates []domain.ScoredCandidate) string {
	if len(candidates) == 0 {
		return ""
	}

	parts := make([]string, 0, len(candidates))
	for _, candidate := range uniqueByIdentity(candidates) {
		item := candidate.Item
		citation := fmt.Sprintf("%s, %s", item.Title, item.Author)
		if clause := formatPageClause(collectPages(item)); clause != "" {
			citation += ", " + clause
		}
		parts = append(parts, citation)
	}
	return "(" + strings.Join(parts, "; ") + ")"
}

// renderSourcesBlock enumerates each unique source as "Author (Title), p. N".
func renderSourcesBlock(candidates []domain.ScoredCandidate) string {
	unique := uniqueByIdentity(candidates)
	if len(unique) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(sourcesBlockHeader)
	for _, candidate := range unique {
		item := candidate.Item
		b.WriteString(fmt.Sprintf("\n- %s (%s)", item.Author, item.Title))
		if clause := formatPageClause(collectPages(item)); clause != "" {
			b.WriteString(", " + clause)
		}
	}
	return b.String()
}

// appendSourcesOnce attaches the sources block exactly once. The assembler
// owns citation attachment; the generation step never formats citations, so
// an existing header means the block is already present.
func appendSourcesOnce(answer, block string) string {
	if block == "" {
		return answer
	}
	if strings.Contains(answer, sourcesBlockHeader) {
		return answer
	}
	return strings.TrimRight(answer, "\n") + "\n\n" + block
}

func uniqueByIdentity(candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		key := candidate.Item.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// previousSourceLine matches one sources-block line rendered by
// renderSourcesBlock: "- Author (Title)" with an optional page clause.
var previousSourceLine = regexp.MustCompile(`(?m)^-\s+(.+?)\s+\((.+)\)(?:,\s*pp?\.\s*[\d-]+)?\s*$`)

// parsePreviousSources rebuilds the previously-recommended identity set from
// the sources blocks of prior assistant turns.
func parsePreviousSources(history []domain.ChatTurn) map[string]struct{} {
	out := make(map[string]struct{})
	for _, turn := range history {
		if turn.Role != domain.RoleAssistant {
			continue
		}
		if !strings.Contains(turn.Content, sourcesBlockHeader) {
			continue
		}
		for _, match := range previousSourceLine.FindAllStringSubmatch(turn.Content, -1) {
			author := strings.TrimSpace(match[1])
			title := strings.TrimSpace(match[2])
			if title == "" {
				continue
			}
			out[domain.ItemKey(title, author)] = struct{}{}
		}
	}
	return out
}
