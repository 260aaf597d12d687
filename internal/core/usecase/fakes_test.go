package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

// fakeStore serves a fixed item slice and answers SearchItems with a naive
// per-field substring scan, enough to drive the substring strategies.
type fakeStore struct {
	mu        sync.Mutex
	items     []domain.CorpusItem
	listErr   error
	searchErr error
	searches  []string
}

func (s *fakeStore) ListItems(context.Context) ([]domain.CorpusItem, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.items, nil
}

func (s *fakeStore) SearchItems(_ context.Context, token string, fields []domain.SearchField, limit int) ([]domain.CorpusItem, error) {
	s.mu.Lock()
	s.searches = append(s.searches, token)
	s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}

	out := make([]domain.CorpusItem, 0, limit)
	for _, item := range s.items {
		if len(out) >= limit {
			break
		}
		if itemMatchesToken(item, token, fields) {
			out = append(out, item)
		}
	}
	return out, nil
}

func itemMatchesToken(item domain.CorpusItem, token string, fields []domain.SearchField) bool {
	needle := strings.ToLower(token)
	for _, field := range fields {
		var haystacks []string
		switch field {
		case domain.FieldTitle:
			haystacks = []string{item.Title}
		case domain.FieldAuthor:
			haystacks = []string{item.Author}
		case domain.FieldTopic:
			haystacks = []string{item.Topic}
		case domain.FieldGenre:
			haystacks = []string{item.Genre}
		case domain.FieldDocType:
			haystacks = []string{string(item.DocType)}
		case domain.FieldSummary:
			haystacks = []string{item.Summary}
		case domain.FieldTags:
			haystacks = item.Tags
		case domain.FieldContent:
			for _, chunk := range item.Chunks {
				haystacks = append(haystacks, chunk.Content)
			}
		}
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				return true
			}
		}
	}
	return false
}

type fakeVector struct {
	mu         sync.Mutex
	hits       []domain.VectorHit
	err        error
	thresholds []float64
}

func (v *fakeVector) SearchSimilar(_ context.Context, _ []float32, threshold float64, _ int) ([]domain.VectorHit, error) {
	v.mu.Lock()
	v.thresholds = append(v.thresholds, threshold)
	v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	return v.hits, nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (e *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.vec == nil {
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return e.vec, nil
}

type fakeModel struct {
	answer   string
	err      error
	calls    int
	lastMsgs []domain.ChatTurn
}

func (m *fakeModel) Complete(_ context.Context, messages []domain.ChatTurn) (string, error) {
	m.calls++
	m.lastMsgs = messages
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

type fakeAnalytics struct {
	mu     sync.Mutex
	events []domain.ClassificationEvent
	err    error
}

func (a *fakeAnalytics) PublishClassification(_ context.Context, event domain.ClassificationEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.events = append(a.events, event)
	return nil
}
