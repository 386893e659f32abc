package geocoding

import (
	"context"
	"errors"
)

var (
	ErrNoMatch       = errors.New("geocoding: no match")
	ErrNotConfigured = errors.New("geocoding: not configured")
)

// Result de un geocoding directo (address -> coords).
type Result struct {
	Lat     float64
	Lng     float64
	Address string
}

// Geocoder resuelve direcciones <-> coordenadas. Es best-effort: quien lo
// llama decide el fallback, nunca debe bloquear ni revertir un alta.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
	Forward(ctx context.Context, address string) (Result, error)
}

// Fallbacks que se guardan cuando el reverse geocoding no resuelve.
const (
	UnknownLocation  = "Unknown location"
	LocationNotFound = "Location not found"
)

// Noop es el geocoder de modo dev: siempre ErrNotConfigured.
type Noop struct{}

func (Noop) Reverse(context.Context, float64, float64) (string, error) {
	return "", ErrNotConfigured
}

func (Noop) Forward(context.Context, string) (Result, error) {
	return Result{}, ErrNotConfigured
}
