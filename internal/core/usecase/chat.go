package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/book-assistant/internal/core/domain"
	"github.com/kirillkom/book-assistant/internal/core/ports"
)

const (
	emptyCorpusAnswer = "Your library is currently empty — there are no books or videos in the corpus yet. Upload some material and ask again."

	nothingFoundAnswer = "I couldn't find anything relevant in your library for that request."

	restrictedDeclineAnswer = "I couldn't find anything relevant in your uploaded material, and you asked me to use only your own library, so I won't answer from outside knowledge. Try rephrasing, or upload material on this topic."
)

// ChatConfig bounds the assembler. Zero values fall back to defaults.
type ChatConfig struct {
	CatalogPageSize int
	HistoryTail     int
}

func (c ChatConfig) normalize() ChatConfig {
	out := c
	if out.CatalogPageSize <= 0 {
		out.CatalogPageSize = 20
	}
	if out.HistoryTail <= 0 {
		out.HistoryTail = 6
	}
	return out
}

// ChatUseCase runs the full pipeline for one message: enhance, extract,
// classify, retrieve, merge/rank, cite, and assemble the response. Stateless
// across requests; chat history arrives as a parameter.
type ChatUseCase struct {
	enhancer    *ContextEnhancer
	classifier  *QueryClassifier
	coordinator *RetrievalCoordinator
	store       ports.CorpusStore
	model       ports.CompletionModel
	analytics   ports.AnalyticsPublisher
	cfg         ChatConfig
}

func NewChatUseCase(
	enhancer *ContextEnhancer,
	classifier *QueryClassifier,
	coordinator *RetrievalCoordinator,
	store ports.CorpusStore,
	model ports.CompletionModel,
	analytics ports.AnalyticsPublisher,
	cfg ChatConfig,
) *ChatUseCase {
	return &ChatUseCase{
		enhancer:    enhancer,
		classifier:  classifier,
		coordinator: coordinator,
		store:       store,
		model:       model,
		analytics:   analytics,
		cfg:         cfg.normalize(),
	}
}

func (uc *ChatUseCase) Handle(ctx context.Context, message string, history []domain.ChatTurn) (*domain.ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "handle chat", fmt.Errorf("message is required"))
	}

	contextual := uc.enhancer.DeriveContextual(message, history)
	enhanced := uc.enhancer.Enhance(message, history)
	cls := uc.classifier.Classify(enhanced, contextual)

	var result *domain.ChatResult
	var err error
	if cls.Type == domain.IntentCatalogBrowse {
		result, err = uc.handleCatalogBrowse(ctx, cls, history, enhanced)
	} else {
		result, err = uc.handleRetrieval(ctx, cls, history, enhanced)
	}
	if err != nil {
		return nil, err
	}

	result.Metadata["enhanced_message"] = enhanced
	uc.publishAnalytics(ctx, cls, result)
	return result, nil
}

// BrowseCatalog exposes the paginated listing directly, outside the chat
// flow.
func (uc *ChatUseCase) BrowseCatalog(ctx context.Context, page int) (*domain.CatalogPage, error) {
	items, err := uc.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpus items: %w", err)
	}
	catalog := paginateCatalog(items, page, uc.cfg.CatalogPageSize)
	return &catalog, nil
}

func (uc *ChatUseCase) handleCatalogBrowse(
	ctx context.Context,
	cls domain.QueryClassification,
	history []domain.ChatTurn,
	enhanced string,
) (*domain.ChatResult, error) {
	items, err := uc.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpus items: %w", err)
	}

	catalog := paginateCatalog(items, 1, uc.cfg.CatalogPageSize)
	metadata := map[string]any{
		"page":        catalog.Page,
		"page_size":   catalog.PageSize,
		"total_items": catalog.TotalItems,
		"has_more":    catalog.HasMore,
		"remaining":   catalog.Remaining,
	}

	if catalog.TotalItems == 0 {
		return &domain.ChatResult{
			AnswerText:     emptyCorpusAnswer,
			Sources:        []domain.SourceRef{},
			Classification: cls,
			Metadata:       metadata,
		}, nil
	}

	candidates := make([]domain.ScoredCandidate, 0, len(catalog.Items))
	for _, item := range catalog.Items {
		candidates = append(candidates, domain.ScoredCandidate{
			Item:        item.Normalize(),
			Score:       1.0,
			MatchReason: "catalog listing",
			Strategy:    domain.StrategyEntity,
		})
	}

	answer, err := uc.complete(ctx, cls, candidates, history, enhanced)
	if err != nil {
		return nil, err
	}

	return &domain.ChatResult{
		AnswerText:     appendSourcesOnce(answer, renderSourcesBlock(candidates)),
		Sources:        toSourceRefs(candidates),
		Classification: cls,
		Metadata:       metadata,
	}, nil
}

func (uc *ChatUseCase) handleRetrieval(
	ctx context.Context,
	cls domain.QueryClassification,
	history []domain.ChatTurn,
	enhanced string,
) (*domain.ChatResult, error) {
	raw, err := uc.coordinator.Retrieve(ctx, enhanced, cls)
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}

	strategyCounts := countByStrategy(raw)
	merged := mergeCandidates(raw)

	excludedCount := 0
	if cls.Type == domain.IntentBookRecommendation && cls.Contextual.IsFollowUp {
		previous := parsePreviousSources(history)
		before := len(merged)
		merged = excludePrevious(merged, previous)
		excludedCount = before - len(merged)
	}

	ranked := trimCandidates(rankCandidates(merged), effectiveResultCount(cls))

	metadata := map[string]any{
		"strategy_counts": strategyCounts,
		"excluded_count":  excludedCount,
		"candidate_count": len(ranked),
	}

	if len(ranked) == 0 {
		return &domain.ChatResult{
			AnswerText:     uc.noCandidatesAnswer(cls),
			Sources:        []domain.SourceRef{},
			Classification: cls,
			Metadata:       metadata,
		}, nil
	}

	answer, err := uc.complete(ctx, cls, ranked, history, enhanced)
	if err != nil {
		return nil, err
	}

	return &domain.ChatResult{
		AnswerText:     appendSourcesOnce(answer, renderSourcesBlock(ranked)),
		Sources:        toSourceRefs(ranked),
		Classification: cls,
		Metadata:       metadata,
	}, nil
}

// noCandidatesAnswer is the explicit terminal response for an empty ranked
// list. With restrict-to-corpus-only set the answer declines outside
// knowledge instead of silently falling back to it.
func (uc *ChatUseCase) noCandidatesAnswer(cls domain.QueryClassification) string {
	if cls.Constraints.RestrictToCorpusOnly {
		return restrictedDeclineAnswer
	}
	return nothingFoundAnswer
}

func (uc *ChatUseCase) complete(
	ctx context.Context,
	cls domain.QueryClassification,
	candidates []domain.ScoredCandidate,
	history []domain.ChatTurn,
	enhanced string,
) (string, error) {
	messages := buildCompletionMessages(cls, buildContextBlock(candidates), history, enhanced, uc.cfg.HistoryTail)
	answer, err := uc.model.Complete(ctx, messages)
	if err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "completion", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", domain.WrapError(domain.ErrTemporary, "completion", fmt.Errorf("empty completion response"))
	}
	return answer, nil
}

func (uc *ChatUseCase) publishAnalytics(ctx context.Context, cls domain.QueryClassification, result *domain.ChatResult) {
	if uc.analytics == nil {
		return
	}
	event := domain.ClassificationEvent{
		RequestID:   uuid.NewString(),
		Intent:      cls.Type,
		Confidence:  cls.Confidence,
		SourceCount: len(result.Sources),
		CreatedAt:   time.Now().UTC(),
	}
	if counts, ok := result.Metadata["strategy_counts"].(map[string]int); ok {
		event.StrategyCounts = counts
	}
	if err := uc.analytics.PublishClassification(ctx, event); err != nil {
		slog.Warn("analytics_publish_failed", "intent", string(cls.Type), "error", err)
	}
}

func countByStrategy(candidates []domain.ScoredCandidate) map[string]int {
	out := make(map[string]int, 6)
	for _, candidate := range candidates {
		out[string(candidate.Strategy)]++
	}
	return out
}

func toSourceRefs(candidates []domain.ScoredCandidate) []domain.SourceRef {
	out := make([]domain.SourceRef, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, domain.SourceRef{
			Title:       candidate.Item.Title,
			Author:      candidate.Item.Author,
			DocType:     string(candidate.Item.DocType),
			Score:       candidate.Score,
			MatchReason: candidate.MatchReason,
		})
	}
	return out
}
