package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playgate/gatekeeper"
)

// Error codes returned in the "error" field of failure responses.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidCredentials = "invalid_credentials"
	CodeBanned             = "banned"
	CodeIdentityNotLinked  = "identity_not_linked"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal_error"
)

type errorResponse struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message"`
	Fields  []gatekeeper.FieldError `json:"fields,omitempty"`
}

// statusFor maps a login error to its HTTP status and response code.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, gatekeeper.ErrInvalidRequest):
		return http.StatusBadRequest, CodeInvalidRequest, "invalid request"
	case errors.Is(err, gatekeeper.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password"
	case errors.Is(err, gatekeeper.ErrPermanentBan):
		return http.StatusForbidden, CodeBanned, "account is permanently banned"
	case errors.Is(err, gatekeeper.ErrIdentityNotLinked):
		return http.StatusForbidden, CodeIdentityNotLinked, "no linked identity for this account"
	case errors.Is(err, gatekeeper.ErrLoginRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited, "too many login attempts"
	default:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	}
}

func respondError(c *gin.Context, err error) {
	status, code, msg := statusFor(err)
	body := errorResponse{Error: code, Message: msg}

	var verr *gatekeeper.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	c.AbortWithStatusJSON(status, body)
}
