package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hpn/hpn-symai-bridge/internal/ui"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESULT CACHE - In-Memory Query Result Caching
// ══════════════════════════════════════════════════════════════════════════════
//
// Data Structure: map guarded by RWMutex
// Key: SHA256 hash of the query body
// Value: serialized QueryResponse with TTL
// Only successful results are stored, so a transient provider error is retried.
//
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultCacheTTL is the default time-to-live for cache entries.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCleanupInterval is how often the cache cleaner runs.
	DefaultCleanupInterval = 1 * time.Minute

	// HeaderCache reports HIT or MISS on cached routes.
	HeaderCache = "X-Cache"
)

// CacheEntry represents a cached response with expiration time.
type CacheEntry struct {
	Response  []byte    // Serialized JSON response
	ExpireAt  time.Time // When this entry expires
	CreatedAt time.Time // When this entry was created
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.ExpireAt)
}

// ResultCache is a thread-safe in-memory cache for query results.
type ResultCache struct {
	mu       sync.RWMutex
	entries  map[string]*CacheEntry
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Stats
	hits   int64
	misses int64
}

// ResultCacheOption is a functional option for configuring ResultCache.
type ResultCacheOption func(*ResultCache)

// WithCacheTTL sets a custom TTL for cache entries.
func WithCacheTTL(ttl time.Duration) ResultCacheOption {
	return func(c *ResultCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired entries are purged.
func WithCleanupInterval(interval time.Duration) ResultCacheOption {
	return func(c *ResultCache) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithCacheLogger sets a custom logger.
func WithCacheLogger(logger *slog.Logger) ResultCacheOption {
	return func(c *ResultCache) {
		c.logger = logger
	}
}

// NewResultCache creates a new ResultCache instance.
// It starts a background goroutine for TTL cleanup; call Close to stop it.
func NewResultCache(opts ...ResultCacheOption) *ResultCache {
	c := &ResultCache{
		entries:  make(map[string]*CacheEntry),
		ttl:      DefaultCacheTTL,
		interval: DefaultCleanupInterval,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.runCleanup()

	return c
}

// HashRequest generates a SHA256 hash of the request body.
// This hash is used as the cache key.
func HashRequest(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// Get retrieves a cached response by key.
// Returns the response bytes and a boolean indicating if the entry was found and valid.
func (c *ResultCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if entry.IsExpired() {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.Response, true
}

// Set stores a response in the cache with the configured TTL.
func (c *ResultCache) Set(key string, response []byte) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &CacheEntry{
		Response:  response,
		ExpireAt:  now.Add(c.ttl),
		CreatedAt: now,
	}
}

// Close stops the cleanup goroutine and waits for it to exit. It is safe to call more than once.
func (c *ResultCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

// runCleanup periodically removes expired entries until Close is called.
func (c *ResultCache) runCleanup() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes all expired entries from the cache.
func (c *ResultCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0

	for key, entry := range c.entries {
		if now.After(entry.ExpireAt) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 && c.logger != nil {
		c.logger.Debug("cache cleanup",
			slog.Int("expired_entries", expired),
			slog.Int("remaining_entries", len(c.entries)),
		)
	}
}

// CacheStats is the JSON view of the cache counters.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// Stats returns cache hit/miss statistics.
func (c *ResultCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// CacheMiddleware returns a Gin middleware that caches query results.
// Flow:
//  1. Hash the request body (SHA256)
//  2. Check cache: HIT → return the stored response
//  3. MISS → continue to the handler and store the response if the handler marked it cacheable
func CacheMiddleware(cache *ResultCache, logger *slog.Logger, console bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.URL.Path != "/v1/query" {
			c.Next()
			return
		}

		// Read request body
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}

		// Restore body for downstream handlers
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		cacheKey := HashRequest(bodyBytes)
		start := time.Now()

		if cachedResponse, found := cache.Get(cacheKey); found {
			latency := time.Since(start)

			if logger != nil {
				logger.Info("cache hit",
					slog.String("cache_key", cacheKey[:12]+"..."),
					slog.String("request_id", c.GetString(ContextKeyRequestID)),
					slog.Duration("latency", latency),
				)
			}
			if console {
				ui.PrintCacheHit(cacheKey, latency)
			}

			c.Set(ContextKeyCacheHit, true)
			c.Header(HeaderCache, "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cachedResponse)
			c.Abort()
			return
		}

		c.Header(HeaderCache, "MISS")

		// Capture the handler's response
		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK && c.GetBool(ContextKeyCacheable) {
			cache.Set(cacheKey, writer.body.Bytes())

			if logger != nil {
				logger.Debug("result cached",
					slog.String("cache_key", cacheKey[:12]+"..."),
					slog.Int("size_bytes", writer.body.Len()),
				)
			}
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture the response body.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response body while writing to the original writer.
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
