package scanning

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"

	"github.com/zombor/cleanscan/internal/waste"
)

// statusError maps a non-2xx provider status to the error taxonomy
func statusError(provider string, code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s status %d", waste.ErrUnauthorized, provider, code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s status %d", waste.ErrRateLimited, provider, code)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s status %d", waste.ErrQuotaExceeded, provider, code)
	default:
		return fmt.Errorf("%w: %s status %d", waste.ErrUpstream, provider, code)
	}
}

// apiError maps an error returned by a Google SDK call to the taxonomy.
// Context cancellation is passed through unchanged.
func apiError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	if ae, ok := apierror.FromError(err); ok {
		if code := ae.HTTPCode(); code > 0 {
			return fmt.Errorf("%w: %v", statusError(provider, code), err)
		}
		switch ae.GRPCStatus().Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return fmt.Errorf("%w: %s: %v", waste.ErrUnauthorized, provider, err)
		case codes.ResourceExhausted:
			return fmt.Errorf("%w: %s: %v", waste.ErrRateLimited, provider, err)
		}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("%w: %v", statusError(provider, gerr.Code), err)
	}

	return fmt.Errorf("%w: %s: %v", waste.ErrUpstream, provider, err)
}
