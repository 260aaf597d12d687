package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/book-assistant/internal/core/domain"
	"github.com/kirillkom/book-assistant/internal/infrastructure/resilience"
)

// Client talks to a single Ollama instance over its REST API. The same
// connection serves chat completion and query embedding with different
// models.
type Client struct {
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, chatModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Completer implements the completion port on top of /api/chat.
type Completer struct {
	client *Client
}

func NewCompleter(client *Client) *Completer {
	return &Completer{client: client}
}

func (c *Completer) Complete(ctx context.Context, messages []domain.ChatTurn) (string, error) {
	type chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	payload := make([]chatMessage, 0, len(messages))
	for _, turn := range messages {
		payload = append(payload, chatMessage{Role: string(turn.Role), Content: turn.Content})
	}

	request := map[string]any{
		"model":    c.client.chatModel,
		"messages": payload,
		"stream":   false,
	}

	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := c.client.call(ctx, "/api/chat", request, &response, "chat"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Message.Content), nil
}

// Embedder implements the query-embedding port on top of /api/embed.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

// call runs one POST under the shared retry/breaker executor when one is
// configured, and maps retryable outcomes to the temporary error kind.
func (c *Client) call(ctx context.Context, path string, payload, out any, operation string) error {
	do := func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, do, classifyOllamaError)
	} else {
		err = do(ctx)
	}
	return wrapTemporaryIfNeeded("ollama "+operation, err)
}
