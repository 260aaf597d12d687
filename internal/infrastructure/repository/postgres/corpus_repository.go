package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

// CorpusRepository reads the denormalized corpus_entries table, where every
// row is one content chunk annotated with its item's metadata. Items are
// materialized per request by grouping rows on the case-insensitive
// (title, author) pair; the table itself is never mutated here.
type CorpusRepository struct {
	db *sql.DB
}

func NewCorpusRepository(db *sql.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CorpusRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS corpus_entries (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	doc_type TEXT NOT NULL DEFAULT '',
	genre TEXT NOT NULL DEFAULT '',
	topic TEXT NOT NULL DEFAULT '',
	difficulty TEXT NOT NULL DEFAULT '',
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	summary TEXT NOT NULL DEFAULT '',
	chunk_index INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corpus_entries_identity ON corpus_entries(lower(btrim(title)), lower(btrim(author)));
CREATE INDEX IF NOT EXISTS idx_corpus_entries_topic ON corpus_entries(lower(topic));
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const entryColumns = `title, author, doc_type, genre, topic, difficulty, tags, summary, chunk_index, content`

func (r *CorpusRepository) ListItems(ctx context.Context) ([]domain.CorpusItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+entryColumns+`
FROM corpus_entries
ORDER BY lower(btrim(title)), lower(btrim(author)), chunk_index
`)
	if err != nil {
		return nil, fmt.Errorf("list corpus entries: %w", err)
	}
	defer rows.Close()

	return groupEntries(rows)
}

// searchColumns maps search fields to SQL expressions matched with ILIKE.
var searchColumns = map[domain.SearchField]string{
	domain.FieldTitle:   "title",
	domain.FieldAuthor:  "author",
	domain.FieldContent: "content",
	domain.FieldTags:    "tags::text",
	domain.FieldTopic:   "topic",
	domain.FieldGenre:   "genre",
	domain.FieldDocType: "doc_type",
	domain.FieldSummary: "summary",
}

// SearchItems returns up to limit full items whose requested fields contain
// the token. The inner query selects matching identities so that every chunk
// of a matched item is materialized, not only the matching rows.
func (r *CorpusRepository) SearchItems(
	ctx context.Context,
	token string,
	fields []domain.SearchField,
	limit int,
) ([]domain.CorpusItem, error) {
	token = strings.TrimSpace(token)
	if token == "" || limit <= 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(fields))
	for _, field := range fields {
		column, ok := searchColumns[field]
		if !ok {
			return nil, fmt.Errorf("unknown search field %q", field)
		}
		clauses = append(clauses, column+" ILIKE $1")
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	query := `
SELECT ` + entryColumns + `
FROM corpus_entries
WHERE (lower(btrim(title)), lower(btrim(author))) IN (
	SELECT lower(btrim(title)), lower(btrim(author))
	FROM corpus_entries
	WHERE ` + strings.Join(clauses, " OR ") + `
	GROUP BY 1, 2
	LIMIT $2
)
ORDER BY lower(btrim(title)), lower(btrim(author)), chunk_index
`

	rows, err := r.db.QueryContext(ctx, query, likePattern(token), limit)
	if err != nil {
		return nil, fmt.Errorf("search corpus entries: %w", err)
	}
	defer rows.Close()

	return groupEntries(rows)
}

// likePattern escapes LIKE metacharacters so user tokens match literally.
func likePattern(token string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(token) + "%"
}

func groupEntries(rows *sql.Rows) ([]domain.CorpusItem, error) {
	byKey := make(map[string]*domain.CorpusItem)
	order := make([]string, 0, 16)

	for rows.Next() {
		var (
			title, author, docType, genre, topic, difficulty, summary, content string
			tagsRaw                                                            []byte
			chunkIndex                                                         int
		)
		if err := rows.Scan(&title, &author, &docType, &genre, &topic, &difficulty, &tagsRaw, &summary, &chunkIndex, &content); err != nil {
			return nil, fmt.Errorf("scan corpus entry: %w", err)
		}

		var tags []string
		if len(tagsRaw) > 0 {
			if err := json.Unmarshal(tagsRaw, &tags); err != nil {
				return nil, fmt.Errorf("unmarshal tags: %w", err)
			}
		}

		key := domain.ItemKey(title, author)
		item, ok := byKey[key]
		if !ok {
			materialized := domain.CorpusItem{
				Title:   strings.TrimSpace(title),
				Author:  strings.TrimSpace(author),
				DocType: domain.DocType(docType),
				Genre:   genre,
				Topic:   topic,
				Summary: summary,
				Tags:    tags,
			}
			if parsed, ok := domain.ParseDifficulty(difficulty); ok {
				materialized.Difficulty = parsed
			}
			materialized = materialized.Normalize()
			byKey[key] = &materialized
			order = append(order, key)
			item = &materialized
		} else {
			// Later rows of the same identity fill gaps left by sparse rows.
			fillItemMetadata(item, docType, genre, topic, difficulty, summary, tags)
		}

		if strings.TrimSpace(content) != "" {
			item.Chunks = append(item.Chunks, domain.ContentChunk{Index: chunkIndex, Content: content})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corpus entries: %w", err)
	}

	out := make([]domain.CorpusItem, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}

func fillItemMetadata(item *domain.CorpusItem, docType, genre, topic, difficulty, summary string, tags []string) {
	if item.DocType == "" && docType != "" {
		item.DocType = domain.DocType(docType)
	}
	if item.Genre == "" {
		item.Genre = genre
	}
	if item.Topic == "" {
		item.Topic = topic
	}
	if item.Difficulty == "" {
		if parsed, ok := domain.ParseDifficulty(difficulty); ok {
			item.Difficulty = parsed
		}
	}
	if item.Summary == "" {
		item.Summary = summary
	}
	if len(item.Tags) == 0 && len(tags) > 0 {
		item.Tags = tags
	}
}
