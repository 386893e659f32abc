package animals_test

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	memimages "pet-adoption/internal/adapters/images/memory"
	mem "pet-adoption/internal/adapters/storage/memory"
	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/geo"
	"pet-adoption/internal/ports/geocoding"
	"pet-adoption/internal/ports/images"

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

type failingImages struct{}

func (failingImages) Put(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", errors.New("bucket gone")
}

func newCatalog(opts ...animals.Option) (*animals.Service, *mem.Store) {
	store := mem.NewStore()
	return animals.NewService(store.Animals(), geo.NewIndex(), opts...), store
}

func at(lat, lng float64) *geo.Point { return &geo.Point{Lat: lat, Lng: lng} }

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()

	a, err := svc.Create(ctx, "poster", animals.CreateInput{
		Name:     "  Luna ",
		Species:  " Cat ",
		Images:   []string{" http://img/1.jpg ", ""},
		Location: at(-34.6, -58.4),
		Address:  "Palermo",
	})
	require.NoError(t, err)
	assert.Equal(t, "Luna", a.Name)
	assert.Equal(t, "cat", a.Species)
	assert.Equal(t, animals.GenderUnknown, a.Gender)
	assert.Equal(t, animals.StatusAvailable, a.Status)
	assert.Equal(t, []string{"http://img/1.jpg"}, a.Images)
	assert.Equal(t, "Palermo", a.Address)
	assert.Equal(t, "poster", a.PostedBy)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()
	neg := -1

	_, err := svc.Create(ctx, "", animals.CreateInput{Name: "x", Species: "dog", Location: at(0, 0)})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = svc.Create(ctx, "p", animals.CreateInput{Species: "dog", Location: at(0, 0)})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Age: &neg, Location: at(0, 0)})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Gender: "robot", Location: at(0, 0)})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Location: at(95, 0)})
	assert.ErrorIs(t, err, errs.ErrValidation)

	// sin coords ni dirección
	_, err = svc.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCreate_ReverseGeocodingNeverBlocks(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		g    geocoding.Geocoder
		want string
	}{
		{"resolved", stubGeocoder{reverse: "Santiago, RM, Chile"}, "Santiago, RM, Chile"},
		{"no match", stubGeocoder{reverseErr: geocoding.ErrNoMatch}, geocoding.LocationNotFound},
		{"failure", stubGeocoder{reverseErr: errors.New("503")}, geocoding.UnknownLocation},
		{"not configured", geocoding.Noop{}, geocoding.UnknownLocation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newCatalog(animals.WithGeocoder(tc.g))
			a, err := svc.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Location: at(-33.45, -70.66)})
			require.NoError(t, err)
			assert.Equal(t, tc.want, a.Address)
		})
	}
}

func TestCreate_ForwardGeocodingFromAddress(t *testing.T) {
	ctx := context.Background()

	svc, _ := newCatalog(animals.WithGeocoder(stubGeocoder{forward: geocoding.Result{Lat: 40.41, Lng: -3.70, Address: "Madrid"}}))
	a, err := svc.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Address: "madrid centro"})
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 40.41, Lng: -3.70}, a.Location)
	assert.Equal(t, "Madrid", a.Address)

	svc, _ = newCatalog(animals.WithGeocoder(stubGeocoder{forwardErr: geocoding.ErrNoMatch}))
	_, err = svc.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Address: "nowhere"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCreate_UploadsImagesInOrder(t *testing.T) {
	ctx := context.Background()
	store := memimages.New("https://cdn.example.com")
	svc, _ := newCatalog(animals.WithImageStore(store))

	upload := func(name, body string) images.Upload {
		return images.Upload{
			Filename:    name,
			ContentType: "image/jpeg",
			Size:        int64(len(body)),
			Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
		}
	}

	a, err := svc.Create(ctx, "p", animals.CreateInput{
		Name:     "x",
		Species:  "dog",
		Location: at(0, 0),
		Images:   []string{"https://elsewhere/keep.jpg"},
		Uploads:  []images.Upload{upload("a.JPG", "first"), upload("b.png", "second")},
	})
	require.NoError(t, err)
	require.Len(t, a.Images, 3)
	assert.Equal(t, "https://elsewhere/keep.jpg", a.Images[0])
	assert.True(t, strings.HasPrefix(a.Images[1], "https://cdn.example.com/pet-connect/"+a.ID+"/00-"))
	assert.True(t, strings.HasSuffix(a.Images[1], ".jpg"))
	assert.True(t, strings.HasSuffix(a.Images[2], ".png"))
	assert.Equal(t, 2, store.Len())
}

func TestCreate_UploadFailureAbortsCreate(t *testing.T) {
	ctx := context.Background()
	svc, st := newCatalog(animals.WithImageStore(failingImages{}))

	_, err := svc.Create(ctx, "p", animals.CreateInput{
		Name:     "x",
		Species:  "dog",
		Location: at(0, 0),
		Uploads: []images.Upload{{
			Filename: "a.jpg",
			Open:     func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("x")), nil },
		}},
	})
	assert.ErrorIs(t, err, errs.ErrDependency)

	counts, err := st.Animals().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestGet_HidesAdoptedFromPublic(t *testing.T) {
	ctx := context.Background()
	svc, store := newCatalog()

	a, err := svc.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Location: at(0, 0)})
	require.NoError(t, err)
	require.NoError(t, animals.SetStatus(ctx, store.Animals(), a.ID, animals.StatusAdopted, time.Now()))

	_, err = svc.Get(ctx, a.ID, false)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	got, err := svc.Get(ctx, a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, animals.StatusAdopted, got.Status)

	_, err = svc.Get(ctx, "missing", true)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSearch_PublicOnlyAvailable(t *testing.T) {
	ctx := context.Background()
	svc, store := newCatalog()

	ids := make([]string, 3)
	for i := range ids {
		a, err := svc.Create(ctx, "p", animals.CreateInput{Name: "Dog", Species: "dog", Location: at(0, 0)})
		require.NoError(t, err)
		ids[i] = a.ID
	}
	require.NoError(t, animals.SetStatus(ctx, store.Animals(), ids[0], animals.StatusPending, time.Now()))
	require.NoError(t, animals.SetStatus(ctx, store.Animals(), ids[1], animals.StatusAdopted, time.Now()))

	page, err := svc.Search(ctx, animals.SearchInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Nil(t, page.Items[0].Distance)

	page, err = svc.Search(ctx, animals.SearchInput{Privileged: true})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, err = svc.Search(ctx, animals.SearchInput{Privileged: true, Status: animals.StatusAdopted})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, ids[1], page.Items[0].ID)

	_, err = svc.Search(ctx, animals.SearchInput{Privileged: true, Status: "lost"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSearch_GeoRadiusSortsByDistance(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()
	origin := geo.Point{Lat: -34.6037, Lng: -58.3816}

	mk := func(name string, p *geo.Point) string {
		a, err := svc.Create(ctx, "p", animals.CreateInput{Name: name, Species: "dog", Location: p})
		require.NoError(t, err)
		return a.ID
	}
	mid := mk("mid", at(-34.65, -58.40))
	near := mk("near", at(-34.605, -58.383))
	_ = mk("far", at(-31.42, -64.18))

	page, err := svc.Search(ctx, animals.SearchInput{
		Geo: &animals.GeoQuery{Origin: origin, MaxDistance: animals.DefaultMaxDistance},
	})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, near, page.Items[0].ID)
	assert.Equal(t, mid, page.Items[1].ID)
	require.NotNil(t, page.Items[0].Distance)
	assert.Less(t, *page.Items[0].Distance, *page.Items[1].Distance)
	assert.LessOrEqual(t, *page.Items[1].Distance, animals.DefaultMaxDistance)

	// orden explícito por nombre dentro del radio
	srt := animals.Sort{Field: animals.SortName, Desc: true}
	page, err = svc.Search(ctx, animals.SearchInput{
		Geo:  &animals.GeoQuery{Origin: origin, MaxDistance: animals.DefaultMaxDistance},
		Sort: &srt,
	})
	require.NoError(t, err)
	assert.Equal(t, near, page.Items[0].ID)

	// paginado después del filtro geo
	page, err = svc.Search(ctx, animals.SearchInput{
		Geo:   &animals.GeoQuery{Origin: origin, MaxDistance: animals.DefaultMaxDistance},
		Page:  2,
		Limit: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mid, page.Items[0].ID)

	_, err = svc.Search(ctx, animals.SearchInput{Geo: &animals.GeoQuery{Origin: geo.Point{Lat: 100}, MaxDistance: 1}})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestWarm_LoadsPersistedLocations(t *testing.T) {
	ctx := context.Background()
	store := mem.NewStore()

	seed := animals.NewService(store.Animals(), geo.NewIndex())
	a, err := seed.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Location: at(10, 10)})
	require.NoError(t, err)

	// un proceso nuevo arranca con índice vacío
	fresh := animals.NewService(store.Animals(), geo.NewIndex())
	page, err := fresh.Search(ctx, animals.SearchInput{Geo: &animals.GeoQuery{Origin: geo.Point{Lat: 10, Lng: 10}, MaxDistance: 100}})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	n, err := fresh.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	page, err = fresh.Search(ctx, animals.SearchInput{Geo: &animals.GeoQuery{Origin: geo.Point{Lat: 10, Lng: 10}, MaxDistance: 100}})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, a.ID, page.Items[0].ID)
}

func TestSearch_PageBeyondRangeIsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()
	_, err := svc.Create(ctx, "p", animals.CreateInput{Name: "Dog", Species: "dog", Location: at(10, 10)})
	require.NoError(t, err)

	const huge = 100000000000000000
	cases := map[string]animals.SearchInput{
		"filters": {Page: huge, Limit: 100},
		"geo": {
			Page:  huge,
			Limit: 100,
			Geo:   &animals.GeoQuery{Origin: geo.Point{Lat: 10, Lng: 10}, MaxDistance: 1000},
		},
		"next page": {Page: 2, Limit: 100},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			page, err := svc.Search(ctx, in)
			require.NoError(t, err)
			assert.Empty(t, page.Items)
			assert.Equal(t, 1, page.Total)
			assert.Equal(t, 1, page.TotalPages)
			assert.Equal(t, in.Page, page.Page)
		})
	}
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, animals.PageOffset(1, 10))
	assert.Equal(t, 0, animals.PageOffset(0, 10))
	assert.Equal(t, 20, animals.PageOffset(3, 10))
	assert.Equal(t, math.MaxInt32, animals.PageOffset(math.MaxInt, 100))
	assert.Positive(t, animals.PageOffset(100000000000000000, 100))
}

func TestSetStatus_RejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	svc, store := newCatalog()
	a, err := svc.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Location: at(0, 0)})
	require.NoError(t, err)

	err = animals.SetStatus(ctx, store.Animals(), a.ID, "lost", time.Now())
	assert.ErrorIs(t, err, errs.ErrValidation)

	// sin chequeo de transición: adopted -> available se escribe igual
	require.NoError(t, animals.SetStatus(ctx, store.Animals(), a.ID, animals.StatusAdopted, time.Now()))
	require.NoError(t, animals.SetStatus(ctx, store.Animals(), a.ID, animals.StatusAvailable, time.Now()))
	got, err := svc.Get(ctx, a.ID, true)
	require.NoError(t, err)
	assert.Equal(t, animals.StatusAvailable, got.Status)
}

func TestSearch_NearestIgnoresRadiusAndFiltersFirst(t *testing.T) {
	ctx := context.Background()
	svc, store := newCatalog()
	origin := geo.Point{Lat: -34.6037, Lng: -58.3816}

	mk := func(name string, p *geo.Point) string {
		a, err := svc.Create(ctx, "p", animals.CreateInput{Name: name, Species: "dog", Location: p})
		require.NoError(t, err)
		return a.ID
	}
	closest := mk("closest", at(-34.604, -58.382))
	mid := mk("mid", at(-34.65, -58.40))
	far := mk("far", at(-31.42, -64.18))
	require.NoError(t, animals.SetStatus(ctx, store.Animals(), closest, animals.StatusAdopted, time.Now()))

	page, err := svc.Search(ctx, animals.SearchInput{
		Geo: &animals.GeoQuery{Origin: origin, MaxDistance: 1, Nearest: 2},
	})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, mid, page.Items[0].ID)
	assert.Equal(t, far, page.Items[1].ID)
	require.NotNil(t, page.Items[1].Distance)
	assert.Greater(t, *page.Items[1].Distance, animals.DefaultMaxDistance)

	_, err = svc.Search(ctx, animals.SearchInput{Geo: &animals.GeoQuery{Origin: origin, Nearest: -1}})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestRefresh_PicksUpAnimalsFromOtherInstances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := mem.NewStore()

	local := animals.NewService(store.Animals(), geo.NewIndex())
	done := make(chan struct{})
	go func() {
		local.Refresh(ctx, 10*time.Millisecond)
		close(done)
	}()

	// otra instancia escribe en la misma base
	other := animals.NewService(store.Animals(), geo.NewIndex())
	a, err := other.Create(ctx, "p", animals.CreateInput{Name: "x", Species: "dog", Location: at(5, 5)})
	require.NoError(t, err)

	q := animals.SearchInput{Geo: &animals.GeoQuery{Origin: geo.Point{Lat: 5, Lng: 5}, MaxDistance: 100}}
	assert.Eventually(t, func() bool {
		page, err := local.Search(ctx, q)
		return err == nil && page.Total == 1 && page.Items[0].ID == a.ID
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh did not stop after cancel")
	}
}
