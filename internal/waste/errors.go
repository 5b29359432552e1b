package waste

import "errors"

// Scan failure taxonomy. Detail is attached by wrapping, e.g.
// fmt.Errorf("%w: status %d", ErrUpstream, code).
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrRateLimited            = errors.New("rate limited")
	ErrQuotaExceeded          = errors.New("quota exceeded")
	ErrUpstream               = errors.New("upstream error")
	ErrNoStructuredResult     = errors.New("no structured result")
	ErrMalformedResult        = errors.New("malformed result")
	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
)

// Kind names a taxonomy entry for logs, metrics and API error codes
type Kind string

const (
	KindNone                   Kind = ""
	KindInvalidInput           Kind = "InvalidInput"
	KindUnauthorized           Kind = "Unauthorized"
	KindRateLimited            Kind = "RateLimited"
	KindQuotaExceeded          Kind = "QuotaExceeded"
	KindUpstream               Kind = "UpstreamError"
	KindNoStructuredResult     Kind = "NoStructuredResult"
	KindMalformedResult        Kind = "MalformedResult"
	KindGeolocationUnavailable Kind = "GeolocationUnavailable"
)

var kinds = []struct {
	err     error
	kind    Kind
	message string
}{
	{ErrInvalidInput, KindInvalidInput, "No image provided. Please choose a photo to analyze."},
	{ErrUnauthorized, KindUnauthorized, "The classification service is not configured. Please contact the administrator."},
	{ErrRateLimited, KindRateLimited, "Rate limit exceeded. Please try again in a moment."},
	{ErrQuotaExceeded, KindQuotaExceeded, "AI usage limit reached. Please add credits to continue."},
	{ErrNoStructuredResult, KindNoStructuredResult, "No classification result returned. Please try again."},
	{ErrMalformedResult, KindMalformedResult, "The classification result was incomplete. Please try again."},
	{ErrGeolocationUnavailable, KindGeolocationUnavailable, "Could not determine location - proceeding without location data."},
	{ErrUpstream, KindUpstream, "Failed to classify waste. Please try again."},
}

// KindOf returns the taxonomy kind of err. Errors outside the taxonomy
// are reported as UpstreamError; nil is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUpstream
}

// UserMessage returns the single human-readable message shown for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	return "Failed to analyze waste. Please try again."
}

// Retryable reports whether the user may simply trigger the scan again.
// Unauthorized and QuotaExceeded need reconfiguration first.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindUpstream, KindNoStructuredResult, KindMalformedResult:
		return true
	default:
		return false
	}
}
