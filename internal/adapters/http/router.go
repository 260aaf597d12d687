package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/book-assistant/internal/core/domain"
	"github.com/kirillkom/book-assistant/internal/core/ports"
	"github.com/kirillkom/book-assistant/internal/observability/metrics"
)

const serviceName = "book-assistant"

type Router struct {
	chat    ports.ChatService
	metrics *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int
}

type RouterOptions struct {
	Metrics        *metrics.HTTPServerMetrics
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(chat ports.ChatService, options RouterOptions) *Router {
	return &Router{
		chat:           chat,
		metrics:        options.Metrics,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.handleChat)
	mux.HandleFunc("/v1/catalog", rt.handleCatalog)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatTurnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string            `json:"message"`
	History []chatTurnPayload `json:"history"`
}

type chatResponse struct {
	Answer         string             `json:"answer"`
	Sources        []domain.SourceRef `json:"sources"`
	Classification classificationView `json:"classification"`
	Metadata       map[string]any     `json:"metadata,omitempty"`
}

type classificationView struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

func (rt *Router) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	history := make([]domain.ChatTurn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, domain.ChatTurn{
			Role:    domain.ChatRole(strings.ToLower(strings.TrimSpace(turn.Role))),
			Content: turn.Content,
		})
	}

	start := time.Now()
	result, err := rt.chat.Handle(r.Context(), req.Message, history)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	rt.recordChatMetrics(result, time.Since(start))

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:  result.AnswerText,
		Sources: result.Sources,
		Classification: classificationView{
			Intent:     string(result.Classification.Type),
			Confidence: result.Classification.Confidence,
			Reasoning:  result.Classification.Reasoning,
		},
		Metadata: result.Metadata,
	})
}

func (rt *Router) recordChatMetrics(result *domain.ChatResult, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordChatOutcome(serviceName, string(result.Classification.Type), len(result.Sources), duration)
	if counts, ok := result.Metadata["strategy_counts"].(map[string]int); ok {
		rt.metrics.RecordStrategyCandidates(serviceName, counts)
	}
	if excluded, ok := result.Metadata["excluded_count"].(int); ok {
		rt.metrics.RecordExclusions(serviceName, excluded)
	}
}

func (rt *Router) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page must be a positive integer"})
			return
		}
		page = parsed
	}

	catalog, err := rt.chat.BrowseCatalog(r.Context(), page)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
