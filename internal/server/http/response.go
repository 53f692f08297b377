package http

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Response codes shared by several endpoints.
const (
	CodeInvalidToken       = "invalid_token"
	CodeAuthRequired       = "auth_required"
	CodeAccessDenied       = "access_denied"
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidCredentials = "invalid_credentials"
	CodeNotFound           = "not_found"
	CodeInternalError      = "internal_server_error"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Code string `json:"code"`
	Data any    `json:"data"`
}

func respond(c *gin.Context, status int, code string, data any) {
	c.JSON(status, Envelope{Code: code, Data: data})
}

// abortWithCode ends the request with an envelope carrying no data. If a
// response has already been committed nothing more is written.
func abortWithCode(c *gin.Context, status int, code string) {
	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(status, Envelope{Code: code, Data: nil})
}

// errorCodes overrides the response code for specific error classes.
type errorCodes struct {
	notFound string
	conflict string
}

// writeError maps a service error onto a status and response code.
func writeError(c *gin.Context, logger logging.Logger, err error, codes errorCodes) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respond(c, http.StatusBadRequest, CodeInvalidRequest, verr.Fields)
	case errors.Is(err, common.ErrorValidation):
		respond(c, http.StatusBadRequest, CodeInvalidRequest, nil)
	case errors.Is(err, auth.ErrBadCredentials):
		respond(c, http.StatusUnauthorized, CodeInvalidCredentials, nil)
	case errors.Is(err, common.ErrorUnauthorized):
		respond(c, http.StatusUnauthorized, CodeAuthRequired, nil)
	case errors.Is(err, common.ErrorForbidden):
		respond(c, http.StatusForbidden, CodeAccessDenied, nil)
	case errors.Is(err, common.ErrorNotFound):
		code := codes.notFound
		if code == "" {
			code = CodeNotFound
		}
		respond(c, http.StatusNotFound, code, nil)
	case errors.Is(err, common.ErrorAlreadyExists):
		code := codes.conflict
		if code == "" {
			code = "already_exists"
		}
		respond(c, http.StatusConflict, code, nil)
	default:
		logger.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
		respond(c, http.StatusInternalServerError, CodeInternalError, nil)
	}
}
