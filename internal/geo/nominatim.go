package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zombor/cleanscan/internal/waste"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	userAgent           = "CleanScan-App"
	unknown             = "Unknown"
)

// Nominatim implements Locator with OpenStreetMap reverse geocoding
type Nominatim struct {
	baseURL string
	client  *http.Client
}

// NewNominatim creates a Nominatim locator
func NewNominatim(baseURL string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Nominatim{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type nominatimResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		County  string `json:"county"`
		State   string `json:"state"`
	} `json:"address"`
	Error string `json:"error"`
}

// Locate reverse geocodes c. Missing city or state parts resolve to "Unknown".
func (n *Nominatim) Locate(ctx context.Context, c Coordinates) (waste.Location, error) {
	if !c.Valid() {
		return waste.Location{}, NewError(ReasonResolutionFailed, fmt.Errorf("invalid coordinates %v,%v", c.Lat, c.Lon))
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return waste.Location{}, NewError(ReasonResolutionFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return waste.Location{}, NewError(ReasonResolutionFailed, fmt.Errorf("calling nominatim: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return waste.Location{}, NewError(ReasonResolutionFailed, fmt.Errorf("nominatim status %d", resp.StatusCode))
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return waste.Location{}, NewError(ReasonResolutionFailed, fmt.Errorf("decoding nominatim response: %w", err))
	}
	if body.Error != "" {
		return waste.Location{}, NewError(ReasonResolutionFailed, fmt.Errorf("nominatim: %s", body.Error))
	}

	a := body.Address
	return waste.Location{
		City:  firstNonEmpty(a.City, a.Town, a.Village, a.County, unknown),
		State: firstNonEmpty(a.State, unknown),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
