package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/book-assistant/internal/core/domain"
	"github.com/kirillkom/book-assistant/internal/core/ports"
)

// RetrievalConfig bounds each strategy. Zero values fall back to defaults in
// normalize.
type RetrievalConfig struct {
	EntityCapPerToken  int
	TopicCapPerToken   int
	DocTypeCap         int
	KeywordCapPerToken int
	VectorLimit        int

	// MinNonVectorCandidates is the unique-candidate floor below which the
	// vector threshold is relaxed to broaden recall.
	MinNonVectorCandidates int

	// VectorThresholds maps intent to a similarity floor; browse-flavored
	// intents use a lower floor to maximize recall.
	VectorThresholds map[domain.IntentType]float64
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	out := c
	if out.EntityCapPerToken <= 0 {
		out.EntityCapPerToken = 8
	}
	if out.TopicCapPerToken <= 0 {
		out.TopicCapPerToken = 6
	}
	if out.DocTypeCap <= 0 {
		out.DocTypeCap = 3
	}
	if out.KeywordCapPerToken <= 0 {
		out.KeywordCapPerToken = 5
	}
	if out.VectorLimit <= 0 {
		out.VectorLimit = 10
	}
	if out.MinNonVectorCandidates <= 0 {
		out.MinNonVectorCandidates = 3
	}
	if out.VectorThresholds == nil {
		out.VectorThresholds = DefaultVectorThresholds()
	}
	return out
}

func DefaultVectorThresholds() map[domain.IntentType]float64 {
	return map[domain.IntentType]float64{
		domain.IntentCatalogBrowse:      0.10,
		domain.IntentBookRecommendation: 0.20,
		domain.IntentTopicBookList:      0.20,
		domain.IntentSpecificSearch:     0.25,
		domain.IntentHRScenario:         0.20,
		domain.IntentAdviceRestricted:   0.20,
		domain.IntentAdviceGeneral:      0.25,
		domain.IntentDirectQuestion:     0.30,
		domain.IntentHybrid:             0.20,
	}
}

// substringSpec parametrizes one substring strategy: the strategies are
// structurally identical and differ only by field set, cap, and scoring.
type substringSpec struct {
	strategy    domain.Strategy
	fields      []domain.SearchField
	capPerToken int
	baseScore   float64
}

// RetrievalCoordinator fans the configured strategies out against the same
// read-only store snapshot and collects strategy-tagged candidates. A
// failing strategy degrades to zero candidates with a logged warning and
// never aborts the request.
type RetrievalCoordinator struct {
	store    ports.CorpusStore
	vector   ports.VectorIndex
	embedder ports.Embedder
	cfg      RetrievalConfig
}

func NewRetrievalCoordinator(
	store ports.CorpusStore,
	vector ports.VectorIndex,
	embedder ports.Embedder,
	cfg RetrievalConfig,
) *RetrievalCoordinator {
	return &RetrievalCoordinator{
		store:    store,
		vector:   vector,
		embedder: embedder,
		cfg:      cfg.normalize(),
	}
}

// Retrieve dispatches the strategy subset for the classified intent. The
// returned candidates are unmerged; ranking dedupes them.
func (rc *RetrievalCoordinator) Retrieve(
	ctx context.Context,
	query string,
	cls domain.QueryClassification,
) ([]domain.ScoredCandidate, error) {
	tokens := rc.searchTokens(query, cls)

	var (
		mu         sync.Mutex
		candidates []domain.ScoredCandidate
		nonVector  int
		vectorHits []domain.ScoredCandidate
	)

	threshold := rc.vectorThreshold(cls.Type)

	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range rc.substringSpecs(cls) {
		spec := spec
		g.Go(func() error {
			found, err := rc.runSubstring(gctx, spec, tokens, cls)
			if err != nil {
				slog.Warn("retrieval_strategy_degraded",
					"strategy", string(spec.strategy),
					"error", err,
				)
				return nil
			}
			mu.Lock()
			candidates = append(candidates, found...)
			nonVector += len(found)
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		found, err := rc.runVector(gctx, query, threshold)
		if err != nil {
			slog.Warn("retrieval_strategy_degraded",
				"strategy", string(domain.StrategyVector),
				"error", err,
			)
			return nil
		}
		mu.Lock()
		vectorHits = found
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The one sanctioned coordination point between strategies: when the
	// non-vector strategies came up short, re-query the index with a
	// relaxed similarity floor to broaden recall.
	if nonVector < rc.cfg.MinNonVectorCandidates {
		relaxed, err := rc.runVector(ctx, query, relaxThreshold(threshold))
		if err != nil {
			slog.Warn("retrieval_strategy_degraded",
				"strategy", string(domain.StrategyVector),
				"relaxed", true,
				"error", err,
			)
		} else {
			vectorHits = relaxed
		}
	}

	return append(candidates, vectorHits...), nil
}

func relaxThreshold(threshold float64) float64 {
	relaxed := threshold / 2
	if relaxed < 0.05 {
		relaxed = 0.05
	}
	return relaxed
}

func (rc *RetrievalCoordinator) vectorThreshold(intent domain.IntentType) float64 {
	if t, ok := rc.cfg.VectorThresholds[intent]; ok {
		return t
	}
	return 0.20
}

// searchTokens merges the topic filter and the query's significant tokens.
func (rc *RetrievalCoordinator) searchTokens(query string, cls domain.QueryClassification) []string {
	tokens := queryTokens(query)
	topic := strings.TrimSpace(cls.Constraints.TopicFilter)
	if topic == "" {
		return tokens
	}

	lowerTopic := strings.ToLower(topic)
	out := make([]string, 0, len(tokens)+1)
	out = append(out, lowerTopic)
	for _, token := range tokens {
		if token != lowerTopic {
			out = append(out, token)
		}
	}
	return out
}

func (rc *RetrievalCoordinator) substringSpecs(cls domain.QueryClassification) []substringSpec {
	return []substringSpec{
		{
			strategy:    domain.StrategyEntity,
			fields:      []domain.SearchField{domain.FieldTitle, domain.FieldAuthor, domain.FieldContent, domain.FieldTags},
			capPerToken: rc.cfg.EntityCapPerToken,
			baseScore:   0.9,
		},
		{
			strategy:    domain.StrategyTopic,
			fields:      []domain.SearchField{domain.FieldTopic, domain.FieldGenre, domain.FieldTags, domain.FieldTitle},
			capPerToken: rc.cfg.TopicCapPerToken,
			baseScore:   0.8,
		},
		{
			strategy:    domain.StrategyDocType,
			fields:      []domain.SearchField{domain.FieldDocType},
			capPerToken: rc.cfg.DocTypeCap,
			baseScore:   0.7,
		},
		{
			strategy:    domain.StrategyKeyword,
			fields:      []domain.SearchField{domain.FieldTitle, domain.FieldAuthor, domain.FieldSummary},
			capPerToken: rc.cfg.KeywordCapPerToken,
			baseScore:   0.6,
		},
	}
}

func (rc *RetrievalCoordinator) runSubstring(
	ctx context.Context,
	spec substringSpec,
	tokens []string,
	cls domain.QueryClassification,
) ([]domain.ScoredCandidate, error) {
	out := make([]domain.ScoredCandidate, 0, len(tokens)*spec.capPerToken)
	for _, token := range tokens {
		items, err := rc.store.SearchItems(ctx, token, spec.fields, spec.capPerToken)
		if err != nil {
			return nil, fmt.Errorf("%s search for %q: %w", spec.strategy, token, err)
		}
		for _, item := range items {
			out = append(out, rc.scoreSubstringMatch(spec, item, token, cls))
		}
	}
	return out, nil
}

func (rc *RetrievalCoordinator) scoreSubstringMatch(
	spec substringSpec,
	item domain.CorpusItem,
	token string,
	cls domain.QueryClassification,
) domain.ScoredCandidate {
	score := spec.baseScore
	reason := fmt.Sprintf("%s match: %s", spec.strategy, token)

	// Topic matches earn a boost when the requested difficulty also fits.
	if spec.strategy == domain.StrategyTopic &&
		cls.Constraints.DifficultyFilter != "" &&
		item.Difficulty == cls.Constraints.DifficultyFilter {
		score = capScore(score * 1.1)
		reason = fmt.Sprintf("%s; difficulty matches %s", reason, item.Difficulty)
	}

	return domain.ScoredCandidate{
		Item:        item.Normalize(),
		Score:       capScore(score),
		MatchReason: reason,
		Strategy:    spec.strategy,
	}
}

// runVector embeds the full query and searches the chunk index. Embedding
// and index failures degrade this strategy like any other.
func (rc *RetrievalCoordinator) runVector(
	ctx context.Context,
	query string,
	threshold float64,
) ([]domain.ScoredCandidate, error) {
	queryVector, err := rc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := rc.vector.SearchSimilar(ctx, queryVector, threshold, rc.cfg.VectorLimit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]domain.ScoredCandidate, 0, len(hits))
	for _, hit := range hits {
		item := domain.CorpusItem{
			Title:   hit.Title,
			Author:  hit.Author,
			DocType: domain.DocType(hit.DocType),
			Topic:   hit.Topic,
		}
		if hit.Text != "" {
			item.Chunks = []domain.ContentChunk{{Index: 0, Content: hit.Text}}
		}
		out = append(out, domain.ScoredCandidate{
			Item:        item.Normalize(),
			Score:       capScore(hit.Similarity),
			MatchReason: fmt.Sprintf("semantic similarity %.2f", hit.Similarity),
			Strategy:    domain.StrategyVector,
		})
	}
	return out, nil
}

func capScore(score float64) float64 {
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}
