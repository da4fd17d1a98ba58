package middleware

import (
	"errors"

	"crm-backend/internal/apperr"
	"crm-backend/internal/logging"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders errors attached to the gin context as JSON, mapping
// the application error kind to an HTTP status.
func ErrorHandler(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			// If it's a raw error we didn't wrap, treat as internal
			appErr = apperr.Internal(err)
		}

		status := appErr.Status()
		if apperr.IsRemoteUnavailable(err) {
			// An unreachable remote store is degraded operation, not a fault.
			log.Warn(c.Request.Context(), "remote store unavailable",
				"path", c.FullPath(), "err", appErr.Error())
		} else if status >= 500 {
			log.Error(c.Request.Context(), "request failed",
				"path", c.FullPath(), "kind", string(appErr.Kind), "err", appErr.Error())
		} else {
			log.Warn(c.Request.Context(), appErr.Message,
				"path", c.FullPath(), "kind", string(appErr.Kind))
		}

		c.AbortWithStatusJSON(status, appErr)
	}
}
