package domain

type Strategy string

const (
	StrategyEntity     Strategy = "entity"
	StrategyTopic      Strategy = "topic"
	StrategyDocType    Strategy = "doc_type"
	StrategyKeyword    Strategy = "keyword"
	StrategyVector     Strategy = "vector"
	StrategyMultiMatch Strategy = "multi_match"
)

// Rank orders strategies by trust for ranking ties: precise metadata hits
// sort before embedding similarity.
func (s Strategy) Rank() int {
	switch s {
	case StrategyEntity, StrategyMultiMatch:
		return 0
	case StrategyTopic:
		return 1
	case StrategyDocType:
		return 2
	case StrategyKeyword:
		return 3
	case StrategyVector:
		return 4
	default:
		return 5
	}
}

// SearchField names a corpus text column a substring strategy can match on.
type SearchField string

const (
	FieldTitle   SearchField = "title"
	FieldAuthor  SearchField = "author"
	FieldContent SearchField = "content"
	FieldTags    SearchField = "tags"
	FieldTopic   SearchField = "topic"
	FieldGenre   SearchField = "genre"
	FieldDocType SearchField = "doc_type"
	FieldSummary SearchField = "summary"
)

// ScoredCandidate wraps a corpus item with a strategy-local score in [0,1].
// It lives from retrieval to response assembly and is never persisted.
type ScoredCandidate struct {
	Item        CorpusItem `json:"item"`
	Score       float64    `json:"score"`
	MatchReason string     `json:"match_reason"`
	Strategy    Strategy   `json:"strategy"`
}

// VectorHit is one row returned by the vector index, annotated with the
// similarity score and enough payload to rebuild a candidate item.
type VectorHit struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	DocType    string  `json:"doc_type"`
	Topic      string  `json:"topic"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// CatalogPage is one pageSize-bounded slice of the full corpus listing.
type CatalogPage struct {
	Items      []CorpusItem `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalItems int          `json:"total_items"`
	HasMore    bool         `json:"has_more"`
	Remaining  int          `json:"remaining"`
}
