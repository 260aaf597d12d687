package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

func TestExtractPageNumberPatterns(t *testing.T) {
	cases := []struct {
		content string
		want    int
		ok      bool
	}{
		{"as discussed on page 42 of the text", 42, true},
		{"see p. 17 for the table", 17, true},
		{"chunk header [page 3]", 3, true},
		{"the framework (p. 211) applies here", 211, true},
		{"page #8 covers delegation", 8, true},
		{"no locator in this chunk", 0, false},
		{"printed in page 0 of the appendix", 0, false},
		{"catalog number page 99999 is not a page", 0, false},
	}
	for _, tc := range cases {
		got, ok := extractPageNumber(tc.content)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("content %q: expected (%d,%v), got (%d,%v)", tc.content, tc.want, tc.ok, got, ok)
		}
	}
}

func TestExtractPageNumberIsDeterministic(t *testing.T) {
	content := "see p. 12 and later page 30"
	first, ok := extractPageNumber(content)
	if !ok {
		t.Fatalf("expected a page")
	}
	for i := 0; i < 5; i++ {
		again, _ := extractPageNumber(content)
		if again != first {
			t.Fatalf("extraction changed across runs: %d vs %d", first, again)
		}
	}
}

func TestCollectPagesUniqueAscending(t *testing.T) {
	item := domain.CorpusItem{Chunks: []domain.ContentChunk{
		{Index: 0, Content: "see page 30"},
		{Index: 1, Content: "see page 12"},
		{Index: 2, Content: "see page 30 again"},
		{Index: 3, Content: "no locator"},
	}}

	pages := collectPages(item)
	if len(pages) != 2 || pages[0] != 12 || pages[1] != 30 {
		t.Fatalf("expected [12 30], got %v", pages)
	}
}

func TestFormatPageClause(t *testing.T) {
	if got := formatPageClause(nil); got != "" {
		t.Fatalf("expected empty clause, got %q", got)
	}
	if got := formatPageClause([]int{7}); got != "p. 7" {
		t.Fatalf("expected p. 7, got %q", got)
	}
	if got := formatPageClause([]int{7, 12, 31}); got != "pp. 7-31" {
		t.Fatalf("expected pp. 7-31, got %q", got)
	}
}

func TestRenderInlineCitation(t *testing.T) {
	candidates := []domain.ScoredCandidate{
		{Item: domain.CorpusItem{
			Title:  "Good to Great",
			Author: "Jim Collins",
			Chunks: []domain.ContentChunk{{Content: "see page 41"}},
		}},
		{Item: domain.CorpusItem{Title: "Drive", Author: "Daniel Pink"}},
	}

	got := renderInlineCitation(candidates)
	want := "(Good to Great, Jim Collins, p. 41; Drive, Daniel Pink)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderSourcesBlock(t *testing.T) {
	candidates := []domain.ScoredCandidate{
		{Item: domain.CorpusItem{
			Title:  "Good to Great",
			Author: "Jim Collins",
			Chunks: []domain.ContentChunk{{Content: "see page 41"}, {Content: "see page 60"}},
		}},
		{Item: domain.CorpusItem{Title: "Good to Great", Author: "jim collins"}},
		{Item: domain.CorpusItem{Title: "Drive", Author: "Daniel Pink"}},
	}

	got := renderSourcesBlock(candidates)
	want := "Sources:\n- Jim Collins (Good to Great), pp. 41-60\n- Daniel Pink (Drive)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAppendSourcesOnceIsIdempotent(t *testing.T) {
	block := "Sources:\n- Jim Collins (Good to Great)"

	once := appendSourcesOnce("Here is my answer.", block)
	if !strings.HasSuffix(once, block) {
		t.Fatalf("expected block appended, got %q", once)
	}

	twice := appendSourcesOnce(once, block)
	if twice != once {
		t.Fatalf("second attachment must be a no-op, got %q", twice)
	}
	if strings.Count(twice, sourcesBlockHeader) != 1 {
		t.Fatalf("expected exactly one sources header, got %d", strings.Count(twice, sourcesBlockHeader))
	}
}

func TestAppendSourcesOnceEmptyBlock(t *testing.T) {
	if got := appendSourcesOnce("answer", ""); got != "answer" {
		t.Fatalf("expected answer unchanged, got %q", got)
	}
}

func TestParsePreviousSourcesRoundTrip(t *testing.T) {
	candidates := []domain.ScoredCandidate{
		{Item: domain.CorpusItem{
			Title:  "Good to Great",
			Author: "Jim Collins",
			Chunks: []domain.ContentChunk{{Content: "see page 41"}},
		}},
		{Item: domain.CorpusItem{Title: "Drive", Author: "Daniel Pink"}},
	}
	answer := appendSourcesOnce("Try this one.", renderSourcesBlock(candidates))
	history := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "recommend a book"},
		{Role: domain.RoleAssistant, Content: answer},
	}

	previous := parsePreviousSources(history)
	if len(previous) != 2 {
		t.Fatalf("expected 2 previous identities, got %d", len(previous))
	}
	if _, ok := previous[domain.ItemKey("Good to Great", "Jim Collins")]; !ok {
		t.Fatalf("expected Good to Great in the previous set")
	}
	if _, ok := previous[domain.ItemKey("Drive", "Daniel Pink")]; !ok {
		t.Fatalf("expected Drive in the previous set")
	}
}

func TestParsePreviousSourcesIgnoresUserTurns(t *testing.T) {
	history := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "Sources:\n- Someone (Something)"},
	}
	if got := parsePreviousSources(history); len(got) != 0 {
		t.Fatalf("expected user turns ignored, got %v", got)
	}
}
