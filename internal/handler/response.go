package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/service"
)

type errorResponse struct {
	Error            string               `json:"error"`
	ErrorDescription string               `json:"error_description"`
	RetryAfter       int                  `json:"retry_after,omitempty"`
	Details          []service.FieldError `json:"details,omitempty"`
}

// writeError renders err as an OAuth style error body. Errors that are not
// *service.OAuthError become fallback (server_error or database_error).
func writeError(c *gin.Context, logger *zap.Logger, err error, fallback func(error) *service.OAuthError) {
	var oe *service.OAuthError
	if !errors.As(err, &oe) {
		oe = fallback(err)
	}
	if oe.Status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", oe.Code),
			zap.Error(err),
		)
	}
	if oe.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(oe.RetryAfter))
	}
	c.AbortWithStatusJSON(oe.Status, errorResponse{
		Error:            oe.Code,
		ErrorDescription: oe.Description,
		RetryAfter:       oe.RetryAfter,
		Details:          oe.Details,
	})
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
