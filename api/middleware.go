package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	wrapErrors "github.com/corzoapp/transfer_service/errors"
)

// writeError maps the typed error kinds onto HTTP statuses so callers
// can distinguish retryable from terminal failures; nothing collapses
// into a generic 500.
func writeError(c *gin.Context, err error) {
	code := wrapErrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case wrapErrors.CodeValidation:
		status = http.StatusBadRequest
	case wrapErrors.CodeNotFound:
		status = http.StatusNotFound
	case wrapErrors.CodeConflict:
		status = http.StatusConflict
	case wrapErrors.CodeUpstreamRejected:
		status = http.StatusUnprocessableEntity
	case wrapErrors.CodeUpstreamUnavailable:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"error":     err.Error(),
		"code":      code,
		"retryable": wrapErrors.Retryable(err),
	})
}

// clientIP resolves the end-user IP the relayer wants for its fraud and
// rate controls: an explicit client-supplied header wins, then the first
// forwarded-for hop, then the transport peer.
func clientIP(c *gin.Context) string {
	if ip := strings.TrimSpace(c.GetHeader("X-User-IP")); ip != "" {
		return ip
	}
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	return c.RemoteIP()
}
