package apierr

import (
	"errors"
	"net/http"

	"project-management-api/internal/apperr"
	"project-management-api/internal/auth"
	"project-management-api/internal/identity"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrResponse struct {
	Error APIError `json:"error"`
}

// Map turns a manager error into a status and body. The message of a domain
// error is safe to show; anything unrecognised becomes a 500 and ok is false.
func Map(err error) (int, APIError, bool) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, APIError{Code: InvalidCredentials.Code, Message: err.Error()}, true
	case errors.Is(err, auth.ErrTokenRevoked), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, Unauthorized, true
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, APIError{Code: NotFound.Code, Message: err.Error()}, true
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, APIError{Code: Conflict.Code, Message: err.Error()}, true
	case errors.Is(err, apperr.ErrInvalidState):
		return http.StatusUnprocessableEntity, APIError{Code: InvalidState.Code, Message: err.Error()}, true
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, APIError{Code: ValidationFailed.Code, Message: err.Error()}, true
	default:
		return http.StatusInternalServerError, InternalServerError, false
	}
}

// Handle writes the mapped error and reports whether err was a known kind.
// Unknown errors are written as 500 as well, the caller only decides how
// loudly to log.
func Handle(c *gin.Context, err error) bool {
	status, apiErr, ok := Map(err)
	WriteApiErrJSON(c, status, apiErr)
	return ok
}

func WriteApiErrJSON(c *gin.Context, status int, apiErr APIError) {
	c.AbortWithStatusJSON(status, ErrResponse{
		Error: apiErr,
	})
}
