package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/logger"
)

var errInvalidBody = domain.NewError(domain.KindInvalidArgument, "request.invalid_body", "Invalid request body.")

// handleError writes err as {"error","kind","code"} with the status of its kind.
func handleError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.WithContext(c.Request.Context()).Error("unhandled error", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal error.",
			"kind":  "INTERNAL",
			"code":  "internal",
		})
		return
	}

	status := statusForKind(de.Kind)
	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": de.Message,
		"kind":  de.Kind,
		"code":  de.Code,
	})
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindInvalidArgument, domain.KindFailedPrecondition:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
