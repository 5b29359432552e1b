package scan

import (
	"fmt"
	"net/http"

	"github.com/zombor/cleanscan/internal/waste"
)

var errRateLimitedInbound = fmt.Errorf("%w: too many scans from this client", waste.ErrRateLimited)

// ErrorResponse is the JSON error body returned to clients
type ErrorResponse struct {
	StatusCode int        `json:"-"`
	Code       waste.Kind `json:"code"`
	Message    string     `json:"error"`
}

// mapError maps a scan error to its HTTP response. The message is the
// single user-facing text for the error kind; provider detail stays in logs.
func mapError(err error) ErrorResponse {
	kind := waste.KindOf(err)
	resp := ErrorResponse{Code: kind, Message: waste.UserMessage(err)}

	switch kind {
	case waste.KindInvalidInput:
		resp.StatusCode = http.StatusBadRequest
	case waste.KindRateLimited:
		resp.StatusCode = http.StatusTooManyRequests
	case waste.KindQuotaExceeded:
		resp.StatusCode = http.StatusPaymentRequired
	case waste.KindUnauthorized:
		resp.StatusCode = http.StatusServiceUnavailable
	default:
		resp.StatusCode = http.StatusBadGateway
	}
	return resp
}
