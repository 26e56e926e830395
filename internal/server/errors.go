package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/averros/invopipe/internal/common"
	"github.com/averros/invopipe/internal/decrypt"
	"github.com/averros/invopipe/internal/ocr"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Code: code, Message: message})
}

// writeError translates domain errors into HTTP responses. Unknown errors
// become an opaque 500; internals never reach the caller.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, common.ErrUnsupportedMediaType):
		writeErrorCode(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", err.Error())
	case errors.Is(err, common.ErrPayloadTooLarge):
		writeErrorCode(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error())
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	case errors.Is(err, common.ErrForbidden):
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
	case errors.Is(err, decrypt.ErrWrongPassword), errors.Is(err, decrypt.ErrCorruptedFile):
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, decrypt.ErrToolUnavailable), errors.Is(err, ocr.ErrServiceUnavailable):
		writeErrorCode(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service temporarily unavailable")
	case errors.Is(err, ocr.ErrConflict):
		writeErrorCode(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeErrorCode(c, http.StatusGatewayTimeout, "SERVER_TIMEOUT", "request timed out")
	default:
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
