// Package nominatim implementa geocoding.Geocoder contra la API de
// OpenStreetMap Nominatim.
package nominatim

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pet-adoption/internal/platform/httpclient"
	"pet-adoption/internal/ports/geocoding"
)

const (
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	UserAgent      = "PetConnect/1.0"
)

type Geocoder struct {
	http *httpclient.Client
}

func New(baseURL string, timeout time.Duration) (*Geocoder, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c, err := httpclient.New(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	c.UserAgent = UserAgent
	return &Geocoder{http: c}, nil
}

type reverseResponse struct {
	Address *struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

// Reverse devuelve "ciudad, provincia, país" (los que existan).
// Sin address en la respuesta => geocoding.ErrNoMatch.
func (g *Geocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("zoom", "10")
	q.Set("addressdetails", "1")

	var resp reverseResponse
	if err := g.http.GetJSON(ctx, "/reverse", q, &resp); err != nil {
		return "", fmt.Errorf("nominatim reverse: %w", err)
	}
	if resp.Address == nil {
		return "", geocoding.ErrNoMatch
	}

	a := resp.Address
	city := a.City
	if city == "" {
		city = a.Town
	}
	if city == "" {
		city = a.Village
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{city, a.State, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", geocoding.ErrNoMatch
	}
	return strings.Join(parts, ", "), nil
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *Geocoder) Forward(ctx context.Context, address string) (geocoding.Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return geocoding.Result{}, geocoding.ErrNoMatch
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", address)
	q.Set("limit", "1")

	var results []searchResult
	if err := g.http.GetJSON(ctx, "/search", q, &results); err != nil {
		return geocoding.Result{}, fmt.Errorf("nominatim search: %w", err)
	}
	if len(results) == 0 {
		return geocoding.Result{}, geocoding.ErrNoMatch
	}

	lat, err1 := strconv.ParseFloat(results[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(results[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return geocoding.Result{}, fmt.Errorf("nominatim search: invalid coordinates %q,%q", results[0].Lat, results[0].Lon)
	}
	return geocoding.Result{Lat: lat, Lng: lng, Address: results[0].DisplayName}, nil
}
