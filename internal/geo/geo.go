package geo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/zombor/cleanscan/internal/waste"
)

// Coordinates is a WGS84 position reported by the client device
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinates are a real position
func (c *Coordinates) Valid() bool {
	if c == nil || math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Locator resolves coordinates to a city/state pair
type Locator interface {
	Locate(ctx context.Context, c Coordinates) (waste.Location, error)
}

// Reason distinguishes why no location is available
type Reason string

const (
	ReasonUnsupported      Reason = "unsupported"
	ReasonPermissionDenied Reason = "permission-denied"
	ReasonResolutionFailed Reason = "resolution-failed"
)

var notices = map[Reason]string{
	ReasonUnsupported:      "Geolocation is not supported by your browser",
	ReasonPermissionDenied: "Location access denied",
	ReasonResolutionFailed: "Could not determine location",
}

// ParseReason maps a client-reported reason tag. Unknown tags are treated
// as resolution failures.
func ParseReason(s string) Reason {
	r := Reason(s)
	if _, ok := notices[r]; ok {
		return r
	}
	return ReasonResolutionFailed
}

// Notice returns the advisory text shown when scanning proceeds without a location
func (r Reason) Notice() string {
	if n, ok := notices[r]; ok {
		return n
	}
	return notices[ReasonResolutionFailed]
}

// Error is a geolocation failure. It matches waste.ErrGeolocationUnavailable.
type Error struct {
	Reason Reason
	Err    error
}

// NewError wraps err with a failure reason
func NewError(reason Reason, err error) *Error {
	return &Error{Reason: reason, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("geolocation %s", e.Reason)
	}
	return fmt.Sprintf("geolocation %s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{waste.ErrGeolocationUnavailable}
	}
	return []error{waste.ErrGeolocationUnavailable, e.Err}
}

// ReasonOf extracts the failure reason from err, defaulting to resolution-failed
func ReasonOf(err error) Reason {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return ReasonResolutionFailed
}
