// Package api exposes the resolution service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/grantscope/orgsite/internal/agent"
	"github.com/grantscope/orgsite/internal/events"
	"github.com/grantscope/orgsite/internal/resolver"
	"github.com/grantscope/orgsite/internal/resolver/cache"
	"github.com/grantscope/orgsite/internal/resolver/normalize"
	apperrors "github.com/grantscope/orgsite/pkg/errors"
	"github.com/grantscope/orgsite/pkg/logger"
)

// ResolveRequest is the POST body for a resolution. All fields except the
// organization name are optional hints forwarded to the fallback agent.
type ResolveRequest struct {
	Name        string `json:"name"`
	EIN         string `json:"ein,omitempty"`
	Contact     string `json:"contact,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	WebsiteText string `json:"website_text,omitempty"`
}

// hints builds the fallback agent's known facts from the optional request
// fields. The name alone is not a hint; a request carrying nothing else
// yields nil so the agent prompt stays bare.
func (req ResolveRequest) hints() *agent.Hints {
	if req.EIN == "" && req.Contact == "" && req.Address == "" && req.City == "" && req.WebsiteText == "" {
		return nil
	}
	return &agent.Hints{
		Name:        req.Name,
		EIN:         req.EIN,
		Contact:     req.Contact,
		Address:     req.Address,
		City:        req.City,
		WebsiteText: req.WebsiteText,
	}
}

// ResolveResponse is the terminal outcome returned to the caller.
type ResolveResponse struct {
	Name       string `json:"name"`
	URL        string `json:"url,omitempty"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Source     string `json:"source,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	CacheHit   bool   `json:"cache_hit"`
	LatencyMs  int64  `json:"latency_ms"`
}

// Handler serves the resolution API.
type Handler struct {
	resolver   *resolver.Resolver
	cache      *cache.Cache
	aggregator *events.Aggregator // nil unless event consumption is enabled
	logger     *slog.Logger
}

// New creates a Handler. aggregator may be nil.
func New(res *resolver.Resolver, c *cache.Cache, aggregator *events.Aggregator) *Handler {
	return &Handler{
		resolver:   res,
		cache:      c,
		aggregator: aggregator,
		logger:     slog.Default().With("component", "api-handler"),
	}
}

// Resolve handles GET (?name=) and POST (JSON body) lookups.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ResolveRequest
	switch r.Method {
	case http.MethodGet:
		req.Name = r.URL.Query().Get("name")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "organization name is required")
		return
	}

	result, err := h.resolver.Resolve(ctx, req.Name, req.hints())
	if err != nil {
		if errors.Is(err, apperrors.ErrEmptyQuery) {
			h.writeError(w, http.StatusBadRequest, "organization name is empty after normalization")
			return
		}
		log.Error("resolution failed", "name", req.Name, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "resolution failed")
		return
	}

	resp := ResolveResponse{
		Name:      req.Name,
		URL:       result.URL,
		Success:   result.Resolved,
		CacheHit:  result.CacheHit,
		LatencyMs: result.Latency.Milliseconds(),
	}
	if result.Resolved {
		resp.Message = "resolved"
		resp.Source = string(result.Source)
		resp.Confidence = string(result.Confidence)
	} else {
		resp.Message = result.Reason
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CacheStats reports memo-tier hit counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses, evictions := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":      hits,
		"misses":    misses,
		"evictions": evictions,
		"total":     total,
		"hit_rate":  fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheEvict removes one entry by organization name.
func (h *Handler) CacheEvict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'name' is required")
		return
	}
	key := normalize.Key(name)
	h.cache.Evict(r.Context(), key)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "evicted", "key": key})
}

// Stats reports aggregated resolution statistics consumed from the events
// topic.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.aggregator == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
