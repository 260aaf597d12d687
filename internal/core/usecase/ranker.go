package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

// corroborationBoost is applied when the same identity surfaces from more
// than one strategy: min(1.0, max(s1, s2) * 1.2).
const corroborationBoost = 1.2

// closeScoreDelta is the score distance under which strategy priority
// decides ordering instead of the raw score.
const closeScoreDelta = 0.05

// mergeCandidates deduplicates by case-insensitive (title, author) identity.
// Corroborated candidates get the boost, concatenated reasons, and the
// multi_match tag.
func mergeCandidates(candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	merged := make(map[string]domain.ScoredCandidate, len(candidates))
	order := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		key := candidate.Item.Key()
		existing, ok := merged[key]
		if !ok {
			merged[key] = candidate
			order = append(order, key)
			continue
		}

		combined := existing
		combined.Score = math.Min(1.0, math.Max(existing.Score, candidate.Score)*corroborationBoost)
		combined.MatchReason = joinReasons(existing.MatchReason, candidate.MatchReason)
		if existing.Strategy != candidate.Strategy {
			combined.Strategy = domain.StrategyMultiMatch
		}
		combined.Item = preferRicherItem(existing.Item, candidate.Item)
		merged[key] = combined
	}

	out := make([]domain.ScoredCandidate, 0, len(merged))
	for _, key := range order {
		out = append(out, merged[key])
	}
	return out
}

func joinReasons(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" || strings.Contains(a, b) {
		return a
	}
	return a + "; " + b
}

// preferRicherItem keeps the variant carrying more metadata; vector hits
// often arrive with only title/author/topic.
func preferRicherItem(current, candidate domain.CorpusItem) domain.CorpusItem {
	if current.Topic == "" && candidate.Topic != "" {
		current.Topic = candidate.Topic
	}
	if current.Genre == "" && candidate.Genre != "" {
		current.Genre = candidate.Genre
	}
	if current.Summary == "" && candidate.Summary != "" {
		current.Summary = candidate.Summary
	}
	if current.Difficulty == "" && candidate.Difficulty != "" {
		current.Difficulty = candidate.Difficulty
	}
	if current.DocType == "" && candidate.DocType != "" {
		current.DocType = candidate.DocType
	}
	if len(current.Tags) == 0 && len(candidate.Tags) > 0 {
		current.Tags = candidate.Tags
	}
	if len(candidate.Chunks) > len(current.Chunks) {
		current.Chunks = candidate.Chunks
	}
	return current
}

// rankCandidates orders merged candidates: strategy priority decides when
// scores are close, otherwise score descending, with deterministic
// title/author tie-breaks.
func rankCandidates(candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Strategy.Rank(), out[j].Strategy.Rank()
		if math.Abs(out[i].Score-out[j].Score) < closeScoreDelta && ri != rj {
			return ri < rj
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if ri != rj {
			return ri < rj
		}
		if out[i].Item.Title != out[j].Item.Title {
			return out[i].Item.Title < out[j].Item.Title
		}
		return out[i].Item.Author < out[j].Item.Author
	})
	return out
}

// excludePrevious removes candidates whose identity appears in the
// previously-recommended set. Exclusion, not down-ranking.
func excludePrevious(candidates []domain.ScoredCandidate, excluded map[string]struct{}) []domain.ScoredCandidate {
	if len(excluded) == 0 {
		return candidates
	}
	out := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if _, skip := excluded[candidate.Item.Key()]; skip {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func trimCandidates(candidates []domain.ScoredCandidate, limit int) []domain.ScoredCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}

// effectiveResultCount resolves the explicit constraint, else the
// intent-specific default.
func effectiveResultCount(cls domain.QueryClassification) int {
	if cls.Constraints.ResultCount > 0 {
		return cls.Constraints.ResultCount
	}
	switch cls.Type {
	case domain.IntentBookRecommendation:
		return 8
	case domain.IntentTopicBookList:
		return 10
	case domain.IntentSpecificSearch:
		return 10
	case domain.IntentCatalogBrowse:
		return 20
	default:
		return 5
	}
}

// paginateCatalog slices the full listing into pageSize-bounded pages with
// hasMore/remaining metadata. Pages are 1-based; out-of-range pages yield an
// empty page, never an error.
func paginateCatalog(items []domain.CorpusItem, page, pageSize int) domain.CatalogPage {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return domain.CatalogPage{
		Items:      items[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		HasMore:    page*pageSize < total,
		Remaining:  total - end,
	}
}
