package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

type Router struct {
	answerer  ports.QuestionAnswerer
	retriever ports.DocumentRetriever
	store     ports.RecordStore
}

func NewRouter(
	answerer ports.QuestionAnswerer,
	retriever ports.DocumentRetriever,
	store ports.RecordStore,
) *Router {
	return &Router{
		answerer:  answerer,
		retriever: retriever,
		store:     store,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/answers", rt.answerQuestion)
	mux.HandleFunc("/v1/search", rt.searchDocuments)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if err := rt.store.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// searchFilterDTO decodes client filters leniently: unknown categories and a
// malformed entity object are dropped with a warning, the rest of the filter
// still applies.
type searchFilterDTO struct {
	Categories      []string        `json:"categories"`
	Pages           []int           `json:"pages"`
	SourceDocs      []string        `json:"source_docs"`
	CaptionContains string          `json:"caption_contains"`
	Entity          json.RawMessage `json:"entity"`
}

func (dto searchFilterDTO) toDomain(requestID string) domain.SearchFilter {
	filter := domain.SearchFilter{
		Pages:           dto.Pages,
		SourceDocs:      dto.SourceDocs,
		CaptionContains: strings.TrimSpace(dto.CaptionContains),
	}

	for _, raw := range dto.Categories {
		category, ok := domain.ParseCategory(strings.TrimSpace(raw))
		if !ok {
			slog.Warn("dropped unknown category from filter", "request_id", requestID, "category", raw)
			continue
		}
		filter.Categories = append(filter.Categories, category)
	}

	if len(dto.Entity) > 0 && string(dto.Entity) != "null" {
		var entity domain.EntityFilter
		if err := json.Unmarshal(dto.Entity, &entity); err != nil {
			slog.Warn("dropped malformed entity predicate from filter", "request_id", requestID, "error", err)
		} else if !entity.IsZero() {
			filter.Entity = &entity
		}
	}

	return filter
}

func (rt *Router) answerQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string          `json:"question"`
		TopK     int             `json:"top_k"`
		Filter   searchFilterDTO `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	filter := req.Filter.toDomain(requestIDFromContext(r.Context()))
	answer, err := rt.answerer.Answer(r.Context(), req.Question, filter, req.TopK)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query    string          `json:"query"`
		Variants []string        `json:"variants"`
		TopK     int             `json:"top_k"`
		Filter   searchFilterDTO `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	variants := make([]string, 0, len(req.Variants)+1)
	if q := strings.TrimSpace(req.Query); q != "" {
		variants = append(variants, q)
	}
	for _, v := range req.Variants {
		if v = strings.TrimSpace(v); v != "" {
			variants = append(variants, v)
		}
	}
	if len(variants) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	filter := req.Filter.toDomain(requestIDFromContext(r.Context()))
	batch, err := rt.retriever.Retrieve(r.Context(), variants, filter, req.TopK)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
