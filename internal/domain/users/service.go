package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/geo"
	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/ports/geocoding"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	geocodeTimeout = 3 * time.Second

	seenSize = 10000
	seenTTL  = 10 * time.Minute
)

// Service es el directorio de usuarios vistos por la API.
type Service struct {
	repo     Repository
	geocoder geocoding.Geocoder
	log      logger.Logger
	now      func() time.Time

	// seen evita reescribir la misma identidad en cada request; acotado en
	// tamaño y con TTL para que la fila se refresque de vez en cuando
	seen *expirable.LRU[string, Identity]
}

func NewService(repo Repository, geocoder geocoding.Geocoder, log logger.Logger) *Service {
	if geocoder == nil {
		geocoder = geocoding.Noop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		geocoder: geocoder,
		log:      log,
		now:      time.Now,
		seen:     expirable.NewLRU[string, Identity](seenSize, nil, seenTTL),
	}
}

// Touch registra (o actualiza) la identidad autenticada. No toca la ubicación.
func (s *Service) Touch(ctx context.Context, id Identity) error {
	id.UserID = strings.TrimSpace(id.UserID)
	if id.UserID == "" {
		return errs.ErrUnauthorized
	}
	if id.Role == "" {
		id.Role = RoleUser
	}

	if prev, ok := s.seen.Get(id.UserID); ok && prev == id {
		return nil
	}

	now := s.now()
	u, err := s.repo.GetByID(ctx, id.UserID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		u = User{ID: id.UserID, CreatedAt: now}
	case err != nil:
		return err
	}

	u.Role = id.Role
	if name := strings.TrimSpace(id.Name); name != "" {
		u.Name = name
	}
	if u.Name == "" {
		u.Name = id.UserID
	}
	if email := strings.TrimSpace(id.Email); email != "" {
		u.Email = email
	}
	u.UpdatedAt = now

	if err := s.repo.Save(ctx, u); err != nil {
		return err
	}

	s.seen.Add(id.UserID, id)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, errs.NotFound("user")
	}
	return s.repo.GetByID(ctx, id)
}

// LocationInput: coordenadas, dirección, o ambas.
type LocationInput struct {
	Location *geo.Point
	Address  string
}

// SetLocation guarda el origen de búsqueda del usuario.
// - coords sin dirección: reverse geocoding, fallback "Unknown location".
// - dirección sin coords: geocoding directo; si falla se guarda la dirección tal cual.
func (s *Service) SetLocation(ctx context.Context, userID string, in LocationInput) (User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return User{}, err
	}

	address := strings.TrimSpace(in.Address)
	switch {
	case in.Location != nil:
		if !in.Location.Valid() {
			return User{}, errs.Validation("invalid coordinates provided")
		}
		p := *in.Location
		u.Location = &p
		if address == "" {
			address = s.reverse(ctx, p)
		}
		u.Address = address

	case address != "":
		gctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
		res, err := s.geocoder.Forward(gctx, address)
		cancel()
		if err == nil && (geo.Point{Lat: res.Lat, Lng: res.Lng}).Valid() {
			u.Location = &geo.Point{Lat: res.Lat, Lng: res.Lng}
			if res.Address != "" {
				address = res.Address
			}
		} else if err != nil {
			s.log.Warn("forward geocoding failed", map[string]any{"user_id": u.ID, "error": err})
		}
		u.Address = address

	default:
		return User{}, errs.Validation("location or address is required")
	}

	u.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) reverse(ctx context.Context, p geo.Point) string {
	gctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	addr, err := s.geocoder.Reverse(gctx, p.Lat, p.Lng)
	if err == nil && strings.TrimSpace(addr) != "" {
		return strings.TrimSpace(addr)
	}
	if errors.Is(err, geocoding.ErrNoMatch) {
		return geocoding.LocationNotFound
	}
	return geocoding.UnknownLocation
}

// Origin devuelve la ubicación guardada del usuario, o nil si no tiene.
func (s *Service) Origin(ctx context.Context, userID string) (*geo.Point, error) {
	u, err := s.Get(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u.Location, nil
}
