// Package geo answers whether a house-call address falls inside the service
// radius, using the Google Distance Matrix API for driving distance.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/playdaycuts/booking-api/internal/domain"
)

const defaultMatrixURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

const metersPerMile = 1609.344

// DistanceService resolves the driving distance in miles between two
// addresses.
type DistanceService interface {
	Distance(ctx context.Context, origin, destination string) (float64, error)
}

// MatrixClient calls the Distance Matrix REST endpoint directly; the API has
// no Go SDK worth carrying for a single call.
type MatrixClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewMatrixClient(apiKey string) *MatrixClient {
	return &MatrixClient{
		apiKey:     apiKey,
		baseURL:    defaultMatrixURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewMatrixClientWithBase is for tests pointing at a local server.
func NewMatrixClientWithBase(apiKey, baseURL string, client *http.Client) *MatrixClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &MatrixClient{apiKey: apiKey, baseURL: baseURL, httpClient: client}
}

type matrixParams struct {
	Origins      string `url:"origins"`
	Destinations string `url:"destinations"`
	Units        string `url:"units"`
	Mode         string `url:"mode"`
	Key          string `url:"key"`
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value int `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Text string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (c *MatrixClient) Distance(ctx context.Context, origin, destination string) (float64, error) {
	if c.apiKey == "" {
		return 0, domain.ErrNotConfigured
	}

	v, err := query.Values(matrixParams{
		Origins:      origin,
		Destinations: destination,
		Units:        "imperial",
		Mode:         "driving",
		Key:          c.apiKey,
	})
	if err != nil {
		return 0, fmt.Errorf("encode distance request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+v.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build distance request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("distance matrix request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("distance matrix returned %d", resp.StatusCode)
	}

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return 0, fmt.Errorf("decode distance response: %w", err)
	}
	if mr.Status != "OK" {
		return 0, fmt.Errorf("distance matrix status %q", mr.Status)
	}
	if len(mr.Rows) == 0 || len(mr.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("distance matrix returned no elements")
	}
	el := mr.Rows[0].Elements[0]
	if el.Status != "OK" {
		return 0, fmt.Errorf("could not calculate distance: element status %q", el.Status)
	}

	return float64(el.Distance.Value) / metersPerMile, nil
}

var _ DistanceService = (*MatrixClient)(nil)

// Eligibility is the outcome of a distance check. HasDistance is false for
// the short-circuit cases that never reach the network.
type Eligibility struct {
	Eligible      bool    `json:"eligible"`
	DistanceMiles float64 `json:"distance_miles,omitempty"`
	HasDistance   bool    `json:"-"`
	Error         string  `json:"error,omitempty"`
}

// Checker applies the service-radius policy around a DistanceService.
type Checker struct {
	svc           DistanceService
	origin        string
	radiusMiles   float64
	minAddressLen int
}

func NewChecker(svc DistanceService, origin string, radiusMiles float64, minAddressLen int) *Checker {
	return &Checker{
		svc:           svc,
		origin:        origin,
		radiusMiles:   radiusMiles,
		minAddressLen: minAddressLen,
	}
}

// CheckEligibility evaluates a candidate address. Empty, too-short, or
// not-yet-selected addresses short-circuit to eligible without a remote
// lookup (the caller is still typing). A qualifying address is checked
// against the radius, inclusive. Any failure from the distance service is
// ineligible; this check fails closed.
func (c *Checker) CheckEligibility(ctx context.Context, address string, selected bool) Eligibility {
	if address == "" || len(address) < c.minAddressLen || !selected {
		return Eligibility{Eligible: true}
	}

	miles, err := c.svc.Distance(ctx, c.origin, address)
	if err != nil {
		return Eligibility{Eligible: false, Error: "unable to validate distance: " + err.Error()}
	}

	if miles > c.radiusMiles {
		return Eligibility{
			Eligible:      false,
			DistanceMiles: miles,
			HasDistance:   true,
			Error:         fmt.Sprintf("outside service area (%.1f miles) - must be within %.0f miles of %s", miles, c.radiusMiles, c.origin),
		}
	}

	return Eligibility{Eligible: true, DistanceMiles: miles, HasDistance: true}
}

// RadiusMiles exposes the configured limit for handler responses.
func (c *Checker) RadiusMiles() float64 { return c.radiusMiles }
