package server

import (
	"errors"
	"net/http"

	"stakebank/core"
	coreerrors "stakebank/core/errors"
)

var (
	errInvalidPayload = errors.New("server: invalid payload")
	errRateLimited    = errors.New("server: rate limit exceeded")
	errJournalOff     = errors.New("server: event journal disabled")
)

// statusFor maps an error class onto the HTTP status reported to clients.
func statusFor(err error) int {
	switch coreerrors.ClassOf(err) {
	case coreerrors.ClassValidation:
		return http.StatusBadRequest
	case coreerrors.ClassInsufficient:
		return http.StatusConflict
	case coreerrors.ClassAuthorization:
		return http.StatusForbidden
	case coreerrors.ClassInvariant:
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, errInvalidPayload), errors.Is(err, core.ErrQueryNotSupported):
		return http.StatusBadRequest
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errJournalOff):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
	Class string `json:"class,omitempty"`
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}
	if class := coreerrors.ClassOf(err); class != coreerrors.ClassNone {
		resp.Class = class.String()
	}
	return resp
}
