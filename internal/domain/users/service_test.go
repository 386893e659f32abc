package users_test

import (
	"context"
	"errors"
	"testing"

	mem "pet-adoption/internal/adapters/storage/memory"
	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/geo"
	"pet-adoption/internal/domain/users"
	"pet-adoption/internal/ports/geocoding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	reverse    string
	reverseErr error
	forward    geocoding.Result
	forwardErr error
}

func (g stubGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	return g.reverse, g.reverseErr
}

func (g stubGeocoder) Forward(context.Context, string) (geocoding.Result, error) {
	return g.forward, g.forwardErr
}

func newService(g geocoding.Geocoder) *users.Service {
	return users.NewService(mem.NewStore().Users(), g, nil)
}

func TestTouch_CreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	require.NoError(t, svc.Touch(ctx, users.Identity{UserID: "u1"}))
	u, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.Name)
	assert.Equal(t, users.RoleUser, u.Role)

	require.NoError(t, svc.Touch(ctx, users.Identity{UserID: "u1", Name: "Ana", Email: "ana@example.com", Role: users.RoleAdmin}))
	u, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, users.RoleAdmin, u.Role)

	assert.ErrorIs(t, svc.Touch(ctx, users.Identity{UserID: " "}), errs.ErrUnauthorized)
}

func TestTouch_KeepsLocation(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	require.NoError(t, svc.Touch(ctx, users.Identity{UserID: "u1"}))

	_, err := svc.SetLocation(ctx, "u1", users.LocationInput{Location: &geo.Point{Lat: 1, Lng: 2}, Address: "Somewhere"})
	require.NoError(t, err)

	require.NoError(t, svc.Touch(ctx, users.Identity{UserID: "u1", Name: "Renamed"}))
	origin, err := svc.Origin(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, origin)
	assert.Equal(t, geo.Point{Lat: 1, Lng: 2}, *origin)
}

func TestSetLocation_ReverseGeocodingFallbacks(t *testing.T) {
	ctx := context.Background()
	p := &geo.Point{Lat: -34.6, Lng: -58.4}

	cases := []struct {
		name string
		g    stubGeocoder
		want string
	}{
		{"resolved", stubGeocoder{reverse: "Buenos Aires, CABA, Argentina"}, "Buenos Aires, CABA, Argentina"},
		{"no match", stubGeocoder{reverseErr: geocoding.ErrNoMatch}, geocoding.LocationNotFound},
		{"provider down", stubGeocoder{reverseErr: errors.New("timeout")}, geocoding.UnknownLocation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService(tc.g)
			require.NoError(t, svc.Touch(ctx, users.Identity{UserID: "u1"}))

			u, err := svc.SetLocation(ctx, "u1", users.LocationInput{Location: p})
			require.NoError(t, err)
			assert.Equal(t, tc.want, u.Address)
			require.NotNil(t, u.Location)
		})
	}
}

func TestSetLocation_AddressOnly(t *testing.T) {
	ctx := context.Background()

	svc := newService(stubGeocoder{forward: geocoding.Result{Lat: 40.4, Lng: -3.7, Address: "Madrid, Spain"}})
	require.NoError(t, svc.Touch(ctx, users.Identity{UserID: "u1"}))
	u, err := svc.SetLocation(ctx, "u1", users.LocationInput{Address: "madrid"})
	require.NoError(t, err)
	assert.Equal(t, "Madrid, Spain", u.Address)
	require.NotNil(t, u.Location)
	assert.Equal(t, 40.4, u.Location.Lat)

	// geocoder caído: se guarda la dirección y no hay origen
	svc = newService(stubGeocoder{forwardErr: errors.New("down")})
	require.NoError(t, svc.Touch(ctx, users.Identity{UserID: "u2"}))
	u, err = svc.SetLocation(ctx, "u2", users.LocationInput{Address: "somewhere"})
	require.NoError(t, err)
	assert.Equal(t, "somewhere", u.Address)
	assert.Nil(t, u.Location)
}

func TestSetLocation_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	require.NoError(t, svc.Touch(ctx, users.Identity{UserID: "u1"}))

	_, err := svc.SetLocation(ctx, "u1", users.LocationInput{})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.SetLocation(ctx, "u1", users.LocationInput{Location: &geo.Point{Lat: 91, Lng: 0}})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.SetLocation(ctx, "nobody", users.LocationInput{Address: "x"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestOrigin_UnknownUser(t *testing.T) {
	svc := newService(nil)
	origin, err := svc.Origin(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, origin)
}
