package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes surfaced in ErrorResponse.Code. Clients branch
// on these rather than on HTTP status alone.
const (
	CodeEntityNotFound = "ENTITY_NOT_FOUND"
	CodeEntityExists   = "ENTITY_ALREADY_EXISTS"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_SERVER_ERROR"
)

// ErrorCase maps a sentinel error to an HTTP status code and response payload.
type ErrorCase struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Code, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, CodeInternalError, fallbackMessage))
}
