package middleware

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	apierrors "github.com/shuweic/mp3/internal/errors"
	"github.com/shuweic/mp3/internal/store"
)

// ErrorHandler renders the last error a handler attached with c.Error as a
// {message, data} response. Unexpected errors are logged and masked, as are
// queries the store refused.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		apiErr := apierrors.Resolve(last.Err)
		if apiErr.Internal() {
			log.ErrorContext(c.Request.Context(), "request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", last.Err,
			)
		} else if errors.Is(last.Err, store.ErrUnsupportedQuery) {
			log.WarnContext(c.Request.Context(), "query rejected",
				"path", c.Request.URL.Path,
				"error", last.Err,
			)
		}
		apierrors.RespondWithError(c, apiErr)
	}
}

// NotFound answers routes that match nothing.
func NotFound(c *gin.Context) {
	apierrors.RespondWithError(c, apierrors.ErrNotFound)
}
