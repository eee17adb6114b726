package capabilities

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Place is a resolved human-readable location plus a map deep-link.
type Place struct {
	Name   string
	MapURL string
}

// Geocoder resolves coordinates to a place name. Resolution is best-effort:
// it must never block session creation beyond its timeout.
type Geocoder interface {
	Resolve(ctx context.Context, lat, lng float64) (Place, error)
}

// HTTPGeocoder calls a Nominatim-style reverse geocoding endpoint.
type HTTPGeocoder struct {
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
	Logger   *logrus.Logger
}

func NewHTTPGeocoder(endpoint string, timeout time.Duration, log *logrus.Logger) *HTTPGeocoder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGeocoder{Endpoint: endpoint, Timeout: timeout, Client: http.DefaultClient, Logger: log}
}

type reverseGeocodeResponse struct {
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
}

func (g *HTTPGeocoder) Resolve(ctx context.Context, lat, lng float64) (Place, error) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("lon", fmt.Sprintf("%.6f", lng))
	q.Set("format", "jsonv2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Place{}, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		if g.Logger != nil {
			g.Logger.WithError(err).Debug("reverse geocode failed")
		}
		return Place{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("reverse geocode status %d", resp.StatusCode)
	}

	var body reverseGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Place{}, err
	}

	name := body.DisplayName
	if name == "" {
		name = body.Name
	}
	if name == "" {
		return Place{}, fmt.Errorf("reverse geocode returned no name")
	}

	return Place{
		Name:   name,
		MapURL: fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", lat, lng),
	}, nil
}
