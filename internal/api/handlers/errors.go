package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"vapi/internal/apperr"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.InvalidCoordinate, apperr.MissingField, apperr.InvalidEnum, apperr.InvalidRequest:
		return http.StatusBadRequest
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	case apperr.StoreUnavailable:
		return http.StatusServiceUnavailable
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": message, "kind": kind}. The full error,
// cause included, is attached to the gin context for the request logger;
// clients only see the message.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	kind := apperr.KindOf(err)
	status := statusFor(kind)
	message := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	c.JSON(status, gin.H{"error": message, "kind": kind})
}

// bindJSON decodes the request body into dst and reports whether the
// handler should continue. An empty body leaves dst at its zero value so the
// service can name the missing fields.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, apperr.Wrap(apperr.InvalidRequest, err, "Invalid request body"))
		return false
	}
	return true
}
