package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

func newChatFixture(store *fakeStore, vector *fakeVector, model *fakeModel, analytics *fakeAnalytics) *ChatUseCase {
	enhancer := NewContextEnhancer(testTopics)
	extractor := NewConstraintExtractor(testTopics)
	classifier := NewQueryClassifier(testTopics, extractor)
	coordinator := NewRetrievalCoordinator(store, vector, &fakeEmbedder{}, RetrievalConfig{})
	return NewChatUseCase(enhancer, classifier, coordinator, store, model, analytics, ChatConfig{})
}

func TestHandleRejectsEmptyMessage(t *testing.T) {
	uc := newChatFixture(&fakeStore{}, &fakeVector{}, &fakeModel{}, &fakeAnalytics{})

	_, err := uc.Handle(context.Background(), "   ", nil)
	if err == nil {
		t.Fatalf("expected error for empty message")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
}

func TestHandleCatalogBrowseEmptyCorpus(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{answer: "should not be called"}
	analytics := &fakeAnalytics{}
	uc := newChatFixture(store, &fakeVector{}, model, analytics)

	result, err := uc.Handle(context.Background(), "list all books", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Classification.Type != domain.IntentCatalogBrowse {
		t.Fatalf("expected catalog_browse, got %s", result.Classification.Type)
	}
	if result.Classification.Confidence < 0.9 {
		t.Fatalf("expected confidence >= 0.9, got %.2f", result.Classification.Confidence)
	}
	if result.AnswerText != emptyCorpusAnswer {
		t.Fatalf("expected empty-corpus answer, got %q", result.AnswerText)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("expected zero sources, got %d", len(result.Sources))
	}
	if model.calls != 0 {
		t.Fatalf("empty catalog must not call the model")
	}
	if got := result.Metadata["total_items"]; got != 0 {
		t.Fatalf("expected total_items 0, got %v", got)
	}
	if len(analytics.events) != 1 || analytics.events[0].Intent != domain.IntentCatalogBrowse {
		t.Fatalf("expected one catalog_browse analytics event, got %+v", analytics.events)
	}
}

func TestHandleCatalogBrowsePaginatesFirstPage(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 45; i++ {
		store.items = append(store.items, domain.CorpusItem{
			Title:  fmt.Sprintf("Book %02d", i),
			Author: "Author",
		})
	}
	model := &fakeModel{answer: "Here is your catalog."}
	uc := newChatFixture(store, &fakeVector{}, model, &fakeAnalytics{})

	result, err := uc.Handle(context.Background(), "what books do you have", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Sources) != 20 {
		t.Fatalf("expected first page of 20 sources, got %d", len(result.Sources))
	}
	if got := result.Metadata["has_more"]; got != true {
		t.Fatalf("expected has_more true, got %v", got)
	}
	if got := result.Metadata["remaining"]; got != 25 {
		t.Fatalf("expected remaining 25, got %v", got)
	}
	if !strings.Contains(result.AnswerText, sourcesBlockHeader) {
		t.Fatalf("expected sources block attached, got %q", result.AnswerText)
	}
}

func TestHandleRecommendationAttachesSources(t *testing.T) {
	store := &fakeStore{items: []domain.CorpusItem{
		{
			Title:   "Good to Great",
			Author:  "Jim Collins",
			DocType: domain.DocTypeBook,
			Topic:   "leadership",
			Tags:    []string{"leadership"},
			Summary: "leadership lessons from enduring companies",
		},
	}}
	model := &fakeModel{answer: "Try Good to Great by Jim Collins."}
	analytics := &fakeAnalytics{}
	uc := newChatFixture(store, &fakeVector{}, model, analytics)

	result, err := uc.Handle(context.Background(), "recommend a book on leadership", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Classification.Type != domain.IntentBookRecommendation {
		t.Fatalf("expected book_recommendation, got %s", result.Classification.Type)
	}
	if len(result.Sources) != 1 || result.Sources[0].Title != "Good to Great" {
		t.Fatalf("expected Good to Great as the source, got %+v", result.Sources)
	}
	if !strings.Contains(result.AnswerText, "Sources:") || !strings.Contains(result.AnswerText, "Jim Collins (Good to Great)") {
		t.Fatalf("expected attached citation, got %q", result.AnswerText)
	}
	if strings.Count(result.AnswerText, sourcesBlockHeader) != 1 {
		t.Fatalf("sources block must be attached exactly once")
	}
	if len(analytics.events) != 1 || analytics.events[0].SourceCount != 1 {
		t.Fatalf("expected analytics with one source, got %+v", analytics.events)
	}
}

func TestHandleFollowUpExcludesPreviousRecommendation(t *testing.T) {
	vector := &fakeVector{hits: []domain.VectorHit{
		{Title: "Good to Great", Author: "Jim Collins", DocType: "Book", Topic: "leadership", Similarity: 0.9},
		{Title: "Drive", Author: "Daniel Pink", DocType: "Book", Topic: "motivation", Similarity: 0.8},
	}}
	model := &fakeModel{answer: "How about Drive by Daniel Pink?"}
	uc := newChatFixture(&fakeStore{}, vector, model, &fakeAnalytics{})

	history := []domain.ChatTurn{
		{Role: domain.RoleUser, Content: "recommend a leadership book"},
		{Role: domain.RoleAssistant, Content: "Good to Great is a classic leadership book.\n\nSources:\n- Jim Collins (Good to Great)"},
	}

	result, err := uc.Handle(context.Background(), "give me another one", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Classification.Type != domain.IntentBookRecommendation {
		t.Fatalf("expected follow-up recommendation, got %s", result.Classification.Type)
	}
	for _, source := range result.Sources {
		if strings.EqualFold(source.Title, "Good to Great") {
			t.Fatalf("previously recommended title must be excluded, got %+v", result.Sources)
		}
	}
	if len(result.Sources) != 1 || result.Sources[0].Title != "Drive" {
		t.Fatalf("expected Drive as the fresh recommendation, got %+v", result.Sources)
	}
	if got := result.Metadata["excluded_count"]; got != 1 {
		t.Fatalf("expected excluded_count 1, got %v", got)
	}
	enhanced, _ := result.Metadata["enhanced_message"].(string)
	if !strings.Contains(enhanced, "recommend another book") {
		t.Fatalf("expected enhanced follow-up message, got %q", enhanced)
	}
}

func TestHandleRestrictedAdviceDeclinesWithoutCandidates(t *testing.T) {
	model := &fakeModel{answer: "should not be called"}
	uc := newChatFixture(&fakeStore{}, &fakeVector{}, model, &fakeAnalytics{})

	result, err := uc.Handle(context.Background(), "use only my uploaded material to explain conflict resolution", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Classification.Type != domain.IntentAdviceRestricted {
		t.Fatalf("expected advice_restricted, got %s", result.Classification.Type)
	}
	if result.AnswerText != restrictedDeclineAnswer {
		t.Fatalf("expected restricted decline, got %q", result.AnswerText)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("expected zero sources, got %d", len(result.Sources))
	}
	if model.calls != 0 {
		t.Fatalf("restricted decline must not call the model")
	}
}

func TestHandleNothingFoundWithoutRestriction(t *testing.T) {
	uc := newChatFixture(&fakeStore{}, &fakeVector{}, &fakeModel{answer: "unused"}, &fakeAnalytics{})

	result, err := uc.Handle(context.Background(), "find anything on deep sea welding", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AnswerText != nothingFoundAnswer {
		t.Fatalf("expected nothing-found answer, got %q", result.AnswerText)
	}
}

func TestHandleCompletionFailureIsTemporary(t *testing.T) {
	store := &fakeStore{items: []domain.CorpusItem{
		{Title: "Good to Great", Author: "Jim Collins", Topic: "leadership", Tags: []string{"leadership"}},
	}}
	model := &fakeModel{err: errors.New("upstream timeout")}
	uc := newChatFixture(store, &fakeVector{}, model, &fakeAnalytics{})

	_, err := uc.Handle(context.Background(), "recommend a book on leadership", nil)
	if err == nil {
		t.Fatalf("expected completion failure to propagate")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
}

func TestHandleSurvivesAnalyticsFailure(t *testing.T) {
	store := &fakeStore{items: []domain.CorpusItem{
		{Title: "Good to Great", Author: "Jim Collins", Topic: "leadership", Tags: []string{"leadership"}},
	}}
	analytics := &fakeAnalytics{err: errors.New("broker unavailable")}
	uc := newChatFixture(store, &fakeVector{}, &fakeModel{answer: "Try it."}, analytics)

	result, err := uc.Handle(context.Background(), "recommend a book on leadership", nil)
	if err != nil {
		t.Fatalf("analytics failure must not fail the request: %v", err)
	}
	if len(result.Sources) == 0 {
		t.Fatalf("expected sources despite analytics failure")
	}
}

func TestBrowseCatalogSecondPage(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 45; i++ {
		store.items = append(store.items, domain.CorpusItem{
			Title:  fmt.Sprintf("Book %02d", i),
			Author: "Author",
		})
	}
	uc := newChatFixture(store, &fakeVector{}, &fakeModel{}, &fakeAnalytics{})

	page, err := uc.BrowseCatalog(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Page != 2 || len(page.Items) != 20 || !page.HasMore || page.Remaining != 5 {
		t.Fatalf("page 2: got %d items, hasMore=%v, remaining=%d", len(page.Items), page.HasMore, page.Remaining)
	}
	if page.Items[0].Title != "Book 20" {
		t.Fatalf("expected page 2 to start at Book 20, got %q", page.Items[0].Title)
	}
}
