// Package triggers exposes the HTTP API that queues narration on demand.
package triggers

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/blog0/narrator/internal/health"
	"github.com/blog0/narrator/internal/worker"
	"github.com/gin-gonic/gin"
)

// AudioEnqueuer queues narration of a post.
type AudioEnqueuer interface {
	EnqueueGeneratePostAudio(ctx context.Context, postID string) error
}

type generatePostAudioRequest struct {
	PostID string `json:"postId" binding:"required"`
}

// NewRouter builds the trigger API. Every /api route requires token.
func NewRouter(token string, enqueuer AudioEnqueuer, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", gin.WrapF(health.Handler))

	api := r.Group("/api", RequireToken(token))
	api.POST("/tasks/generate-post-audio", GeneratePostAudioHandler(enqueuer, logger))

	return r
}

// RequireToken rejects requests without "Authorization: Bearer <token>".
// An empty token rejects everything.
func RequireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || !tokenMatches(provided, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// tokenMatches compares SHA-256 digests in constant time so neither the
// content nor the length of token leaks through timing.
func tokenMatches(provided, token string) bool {
	if token == "" {
		return false
	}
	got := sha256.Sum256([]byte(provided))
	want := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

// GeneratePostAudioHandler queues audio generation for the post in the body.
func GeneratePostAudioHandler(enqueuer AudioEnqueuer, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generatePostAudioRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"postId\": \"<uuid>\"}"})
			return
		}

		err := enqueuer.EnqueueGeneratePostAudio(c.Request.Context(), req.PostID)
		switch {
		case err == nil:
			logger.Info("Queued post audio", "post_id", req.PostID, "source", "api")
			c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
		case errors.Is(err, worker.ErrAlreadyQueued):
			c.JSON(http.StatusOK, gin.H{"status": "already_queued"})
		case errors.Is(err, worker.ErrInvalidPostID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "postId must be a UUID"})
		default:
			logger.Error("Failed to enqueue post audio", "post_id", req.PostID, "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue task"})
		}
	}
}
