package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/aquanex/aquachat/internal/cache"
	"github.com/aquanex/aquachat/internal/chat"
	"github.com/aquanex/aquachat/internal/models"
	"github.com/aquanex/aquachat/internal/topic"
	"github.com/aquanex/aquachat/internal/validator"
)

// ChatStreamer produces the chunk stream for one chat request.
// *chat.Streamer satisfies this.
type ChatStreamer interface {
	Stream(ctx context.Context, messages []models.Message, model string) (<-chan chat.Chunk, error)
}

// Handler handles HTTP requests for the gateway
type Handler struct {
	streamer     ChatStreamer
	fallback     *chat.FallbackSource
	cache        *cache.ResponseCache
	appName      string
	defaultModel string
}

// NewHandler creates a new Handler. respCache may be nil (caching disabled).
func NewHandler(streamer ChatStreamer, fallback *chat.FallbackSource, respCache *cache.ResponseCache, appName, defaultModel string) *Handler {
	return &Handler{
		streamer:     streamer,
		fallback:     fallback,
		cache:        respCache,
		appName:      appName,
		defaultModel: defaultModel,
	}
}

// Chat handles POST /chat
func (h *Handler) Chat(c *gin.Context) {
	requestID := c.GetString("request_id")
	start := time.Now()

	// Parse request body
	var req models.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"event":      "parse_error",
		}).Warn("Failed to parse request body")

		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"type":    "invalid_request",
				"message": "Failed to parse request body: " + err.Error(),
			},
		})
		return
	}

	// Validate request
	if err := validator.ValidateRequest(&req); err != nil {
		log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"event":      "validation_failed",
		}).Warn("Request validation failed")

		// Return detailed validation errors
		if validErrs, ok := err.(*validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"type":    "validation_error",
					"message": "Request validation failed",
					"details": validErrs.Errors,
				},
			})
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"type":    "validation_error",
				"message": err.Error(),
			},
		})
		return
	}

	ctx := c.Request.Context()
	latest := strings.ToLower(req.LastUserContent())

	model := req.SelectedModel
	if model == "" {
		model = h.defaultModel
	}
	cacheKey := cache.Key(latest, model)

	// Off-domain queries never reach the model: stream the fixed fallback.
	if !topic.IsGreeting(latest) && !topic.IsAllowed(latest) {
		log.WithFields(log.Fields{
			"request_id": requestID,
			"event":      "off_topic",
		}).Info("Query outside supported topics, streaming fallback")
		h.streamFallback(c, requestID, cacheKey)
		return
	}

	if cached, ok := h.cache.Get(ctx, cacheKey); ok {
		log.WithFields(log.Fields{
			"request_id": requestID,
			"event":      "cache_hit",
		}).Info("Serving cached response")
		h.writeText(c, cached)
		return
	}

	chunks, err := h.streamer.Stream(ctx, req.Messages, req.SelectedModel)
	if err != nil {
		var roleErr *chat.UnsupportedRoleError
		if errors.As(err, &roleErr) {
			log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      err.Error(),
				"event":      "unsupported_role",
			}).Warn("Rejected message with unsupported role")

			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"type":    "validation_error",
					"message": err.Error(),
				},
			})
			return
		}

		log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"event":      "stream_start_error",
		}).Error("Failed to start stream")

		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	h.streamChunks(c, requestID, cacheKey, chunks, start)
}

// streamChunks drains the orchestrator's output into the chunked response
// body, flushing after every chunk, and caches the concatenated text once the
// stream completes.
func (h *Handler) streamChunks(c *gin.Context, requestID, cacheKey string, chunks <-chan chat.Chunk, start time.Time) {
	setStreamingHeaders(c)

	var full strings.Builder
	var streamErr error
	wroteAny := false

	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
			continue
		}
		if _, err := c.Writer.WriteString(chunk.Text); err != nil {
			log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      err.Error(),
				"event":      "write_error",
			}).Warn("Failed writing chunk to client")
			continue
		}
		c.Writer.Flush()
		full.WriteString(chunk.Text)
		wroteAny = true
	}

	if streamErr != nil {
		if errors.Is(streamErr, chat.ErrPermissionDenied) && !wroteAny {
			log.WithFields(log.Fields{
				"request_id": requestID,
				"event":      "permission_denied",
			}).Error("Upstream credentials rejected")

			c.JSON(http.StatusForbidden, models.ErrorResponse{Error: streamErr.Error()})
			return
		}

		// Headers already sent: nothing left to do but log.
		log.WithFields(log.Fields{
			"request_id": requestID,
			"error":      streamErr.Error(),
			"event":      "stream_error",
		}).Error("Streaming failed")
		return
	}

	h.cache.Set(c.Request.Context(), cacheKey, full.String())

	log.WithFields(log.Fields{
		"request_id": requestID,
		"latency_ms": time.Since(start).Milliseconds(),
		"event":      "stream_complete",
	}).Info("Streaming complete")
}

func (h *Handler) streamFallback(c *gin.Context, requestID, cacheKey string) {
	setStreamingHeaders(c)

	var full strings.Builder
	for word := range h.fallback.Stream(c.Request.Context()) {
		if _, err := c.Writer.WriteString(word); err != nil {
			log.WithFields(log.Fields{
				"request_id": requestID,
				"error":      err.Error(),
				"event":      "write_error",
			}).Warn("Failed writing fallback word to client")
			return
		}
		c.Writer.Flush()
		full.WriteString(word)
	}

	h.cache.Set(c.Request.Context(), cacheKey, full.String())
}

func (h *Handler) writeText(c *gin.Context, text string) {
	setStreamingHeaders(c)
	c.Writer.WriteString(text) //nolint:errcheck
	c.Writer.Flush()
}

func setStreamingHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Root handles GET /
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.appName,
		"version": "1.0.0",
		"status":  "running",
		"endpoints": gin.H{
			"chat":   "/chat (POST)",
			"health": "/health (GET)",
		},
	})
}
