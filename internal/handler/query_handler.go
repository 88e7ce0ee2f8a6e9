// Package handler provides HTTP handlers for the bridge server.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hpn/hpn-symai-bridge/internal/adapter"
	"github.com/hpn/hpn-symai-bridge/internal/domain"
)

// Context keys shared between the query handler and the middleware.
const (
	ContextKeyRequestID    = "request_id"
	ContextKeyEngineStatus = "engine_status"
	ContextKeyCacheable    = "cacheable"
	ContextKeyCacheHit     = "cache_hit"
)

// QueryRequest is the JSON body of POST /v1/query.
// Prompt fields accept a string, a list of messages or plain values, or any other JSON value.
type QueryRequest struct {
	PreprocessedInput json.RawMessage `json:"preprocessed_input"`
	ProcessedInput    json.RawMessage `json:"processed_input"`
	Instance          json.RawMessage `json:"instance"`
	Options           map[string]any  `json:"options"`
}

// QueryResponse mirrors the framework's (list of outputs, metadata) pair.
type QueryResponse struct {
	Output   []string        `json:"output"`
	Metadata domain.Metadata `json:"metadata"`
}

// QueryHandler exposes an Engine over HTTP.
type QueryHandler struct {
	engine adapter.Engine
	usage  *UsageTracker
	cache  *ResultCache
	logger *slog.Logger
}

// QueryHandlerOption is a functional option for configuring QueryHandler.
type QueryHandlerOption func(*QueryHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) QueryHandlerOption {
	return func(h *QueryHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithUsageTracker shares a usage tracker with the handler.
func WithUsageTracker(usage *UsageTracker) QueryHandlerOption {
	return func(h *QueryHandler) {
		if usage != nil {
			h.usage = usage
		}
	}
}

// WithResultCache reports the statistics of cache on GET /v1/engine.
func WithResultCache(cache *ResultCache) QueryHandlerOption {
	return func(h *QueryHandler) {
		h.cache = cache
	}
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(engine adapter.Engine, opts ...QueryHandlerOption) *QueryHandler {
	h := &QueryHandler{
		engine: engine,
		usage:  NewUsageTracker(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// HandleQuery handles POST /v1/query.
// Every engine outcome is answered with 200; failures are described by the metadata.
// Only a malformed body is rejected with 400.
func (h *QueryHandler) HandleQuery(c *gin.Context) {
	var body QueryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}

	req, err := body.toRequest()
	if err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	result := h.engine.Query(c.Request.Context(), req)
	h.usage.Record(result)

	c.Set(ContextKeyEngineStatus, string(result.Metadata.Status))
	c.Set(ContextKeyCacheable, !result.Failed())

	if result.Failed() {
		h.logger.Warn("query failed",
			slog.String("request_id", c.GetString(ContextKeyRequestID)),
			slog.String("status", string(result.Metadata.Status)),
			slog.String("message", result.Metadata.Message),
		)
	}

	c.JSON(http.StatusOK, QueryResponse{
		Output:   result.Outputs(),
		Metadata: result.Metadata,
	})
}

// HandleEngine handles GET /v1/engine.
// It describes the backend, the usage accumulated since startup and,
// when caching is enabled, the cache counters.
func (h *QueryHandler) HandleEngine(c *gin.Context) {
	resp := gin.H{
		"capability": h.engine.ID(),
		"engine":     h.engine.Info(),
		"usage":      h.usage.Snapshot(),
	}
	if h.cache != nil {
		hits, misses, size := h.cache.Stats()
		resp["cache"] = CacheStats{Hits: hits, Misses: misses, Size: size}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /health.
// It probes the engine endpoint; an unreachable backend reports "degraded".
func (h *QueryHandler) HandleHealth(c *gin.Context) {
	models, err := h.engine.Probe(c.Request.Context())
	if err != nil {
		h.logger.Warn("health probe failed", slog.String("error", err.Error()))
		c.JSON(http.StatusOK, gin.H{
			"status": "degraded",
			"engine": h.engine.Info().ID,
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"engine": h.engine.Info().ID,
		"models": len(models),
	})
}

// sendError sends an error response in OpenAI-compatible format.
func (h *QueryHandler) sendError(c *gin.Context, status int, errType, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"type":    errType,
		},
	})
}

// toRequest decodes the prompt fields into a domain request.
func (q QueryRequest) toRequest() (*domain.Request, error) {
	pre, err := domain.DecodePrompt(q.PreprocessedInput)
	if err != nil {
		return nil, fmt.Errorf("preprocessed_input: %w", err)
	}
	proc, err := domain.DecodePrompt(q.ProcessedInput)
	if err != nil {
		return nil, fmt.Errorf("processed_input: %w", err)
	}
	instance, err := domain.DecodeValue(q.Instance)
	if err != nil {
		return nil, fmt.Errorf("instance: %w", err)
	}

	return &domain.Request{
		PreprocessedInput: pre,
		ProcessedInput:    proc,
		Instance:          instance,
		Options:           domain.Options(q.Options),
	}, nil
}

// Register mounts the query, engine and health routes.
func (h *QueryHandler) Register(r gin.IRoutes) {
	r.POST("/v1/query", h.HandleQuery)
	r.GET("/v1/engine", h.HandleEngine)
	r.GET("/health", h.HandleHealth)
}
