package viewhttp

import (
	"context"
	"errors"
	"net/http"

	"stockdash/internal/apiclient"
	"stockdash/internal/pkg/circuit"
	"stockdash/internal/store"

	"github.com/gin-gonic/gin"
)

// writeActionError maps an action failure onto a response. Backend failures
// become 502 except a backend 404, which is passed through. Timeouts become
// 504 and an open circuit 503.
func writeActionError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error(), "kind": "internal", "status": 0}
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrInvalidID):
		code = http.StatusBadRequest
		body["kind"] = "invalid"
	case errors.Is(err, circuit.ErrOpen):
		code = http.StatusServiceUnavailable
		body["kind"] = "circuit_open"
	case errors.Is(err, context.Canceled):
		// client went away; status is for the log only
		code = 499
		body["kind"] = "canceled"
	default:
		if ne, ok := apiclient.AsNetworkError(err); ok {
			switch {
			case apiclient.IsTimeout(err):
				code = http.StatusGatewayTimeout
			case apiclient.IsStatus(err, http.StatusNotFound):
				code = http.StatusNotFound
			default:
				code = http.StatusBadGateway
			}
			body["kind"] = ne.Kind.String()
			body["status"] = ne.StatusCode
			if ne.Message != "" {
				body["error"] = ne.Message
			}
		}
	}
	c.JSON(code, body)
}

func writeBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "invalid", "status": 0})
}
