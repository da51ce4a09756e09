package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindUnauthenticated:
		return http.StatusUnauthorized
	case core.KindInvalidArgument, core.KindConflict:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// codeFor is the wire code. Conflicts surface as field-level invalid arguments.
func codeFor(kind core.Kind) string {
	if kind == core.KindConflict {
		return string(core.KindInvalidArgument)
	}
	return string(kind)
}

// writeError renders err and aborts the request. Internal failures are logged and kept opaque.
func writeError(c *gin.Context, logger *zerolog.Logger, err error) {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		coreErr = core.Internal(err)
	}

	if coreErr.Kind == core.KindInternal {
		logger.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("internal error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  string(core.KindInternal),
		})
		return
	}

	c.AbortWithStatusJSON(statusFor(coreErr.Kind), ErrorResponse{
		Error:  coreErr.Message,
		Code:   codeFor(coreErr.Kind),
		Fields: coreErr.Fields,
	})
}

// writeJSON renders body for handlers served outside gin.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
