package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopora/internal/domain"
	"shopora/internal/logger"
	"shopora/internal/paypal"
)

// respondError translates domain errors to HTTP status codes. Unclassified
// errors are logged and hidden behind a generic 500 unless dev is set.
func respondError(c *gin.Context, err error, dev bool) {
	var gwErr *paypal.GatewayError

	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrPriceMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "the order was modified concurrently, retry"})
	case errors.Is(err, domain.ErrGatewayTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "payment provider timed out"})
	case errors.Is(err, domain.ErrCaptureMissing),
		errors.Is(err, domain.ErrGatewayAuth),
		errors.As(err, &gwErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider rejected the request"})
	default:
		logger.Error("request failed", "path", c.FullPath(), "err", err)
		msg := "internal error"
		if dev {
			msg = err.Error()
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
