package ports

import (
	"context"

	"github.com/kirillkom/book-assistant/internal/core/domain"
)

// ChatService is the inbound contract for the conversational pipeline.
type ChatService interface {
	Handle(ctx context.Context, message string, history []domain.ChatTurn) (*domain.ChatResult, error)
	BrowseCatalog(ctx context.Context, page int) (*domain.CatalogPage, error)
}

// CorpusStore reads the backing corpus. The store is the sole long-lived
// owner of items; this layer never mutates it.
type CorpusStore interface {
	ListItems(ctx context.Context) ([]domain.CorpusItem, error)
	SearchItems(ctx context.Context, token string, fields []domain.SearchField, limit int) ([]domain.CorpusItem, error)
}

// VectorIndex performs similarity search over indexed chunk vectors.
type VectorIndex interface {
	SearchSimilar(ctx context.Context, queryVector []float32, threshold float64, limit int) ([]domain.VectorHit, error)
}

// Embedder builds a vector for query text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CompletionModel generates the final answer text from an ordered message
// list. It never formats citations; the assembler owns those.
type CompletionModel interface {
	Complete(ctx context.Context, messages []domain.ChatTurn) (string, error)
}

// AnalyticsPublisher emits classification outcomes for the observability
// pipeline. Publish failures never fail a request.
type AnalyticsPublisher interface {
	PublishClassification(ctx context.Context, event domain.ClassificationEvent) error
}
