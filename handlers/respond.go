package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrimarket/api/apperrors"
)

const (
	requestTimeout = 15 * time.Second

	// embeddingRetryAfter matches the embedding breaker's default open timeout.
	embeddingRetryAfter = 30 * time.Second
)

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// respondError maps domain errors onto HTTP statuses. Unexpected errors are
// logged and reported as msg without internal detail.
func respondError(c *gin.Context, logger *zap.Logger, err error, msg string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	case errors.Is(err, apperrors.ErrEmbeddingUnavailable):
		c.Header("Retry-After", strconv.Itoa(int(embeddingRetryAfter.Seconds())))
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Embedding model unavailable, retry later"})
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn(msg, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"success": false, "error": "Request timed out"})
	default:
		logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msg})
	}
}
