package domain

import "strings"

type DocType string

const (
	DocTypeBook    DocType = "Book"
	DocTypeVideo   DocType = "Video"
	DocTypeArticle DocType = "Article"
)

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
	DifficultyExpert       Difficulty = "Expert"
)

// Rank orders difficulties Beginner < Intermediate < Advanced < Expert.
// Unknown values rank below Beginner.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyBeginner:
		return 1
	case DifficultyIntermediate:
		return 2
	case DifficultyAdvanced:
		return 3
	case DifficultyExpert:
		return 4
	default:
		return 0
	}
}

func ParseDifficulty(raw string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "beginner":
		return DifficultyBeginner, true
	case "intermediate":
		return DifficultyIntermediate, true
	case "advanced":
		return DifficultyAdvanced, true
	case "expert":
		return DifficultyExpert, true
	default:
		return "", false
	}
}

// ContentChunk is one stored passage of a corpus item. Embeddings are owned
// by the vector index and never travel through this layer.
type ContentChunk struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// CorpusItem is a deduplicated logical document materialized per request from
// the backing store. Two raw rows with the same case-insensitive
// (title, author) pair belong to the same item.
type CorpusItem struct {
	Title      string         `json:"title"`
	Author     string         `json:"author"`
	DocType    DocType        `json:"doc_type"`
	Genre      string         `json:"genre,omitempty"`
	Topic      string         `json:"topic,omitempty"`
	Difficulty Difficulty     `json:"difficulty,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Chunks     []ContentChunk `json:"chunks,omitempty"`
}

const unknownAuthor = "Unknown Author"

// Normalize trims identity fields and applies the author fallback.
func (i CorpusItem) Normalize() CorpusItem {
	i.Title = strings.TrimSpace(i.Title)
	i.Author = strings.TrimSpace(i.Author)
	if i.Author == "" {
		i.Author = unknownAuthor
	}
	return i
}

// Key is the case-insensitive (title, author) identity of a corpus item.
func (i CorpusItem) Key() string {
	return ItemKey(i.Title, i.Author)
}

func ItemKey(title, author string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	author = strings.ToLower(strings.TrimSpace(author))
	if author == "" {
		author = strings.ToLower(unknownAuthor)
	}
	return title + "|" + author
}
