package animals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/geo"
	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/platform/metrics"
	"pet-adoption/internal/ports/geocoding"
	"pet-adoption/internal/ports/images"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPage        = 1
	DefaultLimit       = 10
	MaxLimit           = 100
	DefaultMaxDistance = 10000.0 // metros

	maxOffset = math.MaxInt32

	imageKeyPrefix = "pet-connect"
	geocodeTimeout = 3 * time.Second
)

// Service es el catálogo de animales: alta, búsqueda (filtros + geo) y status.
type Service struct {
	repo     Repository
	index    *geo.Index
	geocoder geocoding.Geocoder
	images   images.Store
	metrics  *metrics.Metrics
	stats    Invalidator
	log      logger.Logger
	now      func() time.Time
}

// Invalidator lo implementa el agregador de stats (cache).
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Option func(*Service)

func WithGeocoder(g geocoding.Geocoder) Option { return func(s *Service) { s.geocoder = g } }
func WithImageStore(st images.Store) Option    { return func(s *Service) { s.images = st } }
func WithMetrics(m *metrics.Metrics) Option    { return func(s *Service) { s.metrics = m } }
func WithLogger(l logger.Logger) Option        { return func(s *Service) { s.log = l } }
func WithStats(inv Invalidator) Option         { return func(s *Service) { s.stats = inv } }

func NewService(repo Repository, index *geo.Index, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		index:    index,
		geocoder: geocoding.Noop{},
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.index == nil {
		s.index = geo.NewIndex()
	}
	return s
}

type CreateInput struct {
	Name         string
	Species      string
	Breed        string
	Age          *int
	Gender       string
	HealthStatus string
	Description  string

	// Images son URLs ya almacenadas; Uploads se suben antes del alta.
	Images  []string
	Uploads []images.Upload

	Location *geo.Point
	Address  string
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (Animal, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return Animal{}, errs.ErrUnauthorized
	}

	name := strings.TrimSpace(in.Name)
	species := strings.ToLower(strings.TrimSpace(in.Species))
	if name == "" || species == "" {
		return Animal{}, errs.Validation("name and species are required")
	}
	if in.Age != nil && *in.Age < 0 {
		return Animal{}, errs.Validation("age must be a non-negative integer")
	}

	gender := Gender(strings.ToLower(strings.TrimSpace(in.Gender)))
	if gender == "" {
		gender = GenderUnknown
	}
	if !gender.Valid() {
		return Animal{}, errs.Validation("gender must be one of male, female, unknown")
	}

	address := strings.TrimSpace(in.Address)
	loc, address, err := s.resolveLocation(ctx, in.Location, address)
	if err != nil {
		return Animal{}, err
	}

	id := uuid.NewString()

	imgs := cleanURLs(in.Images)
	if len(in.Uploads) > 0 {
		uploaded, err := s.upload(ctx, id, in.Uploads)
		if err != nil {
			return Animal{}, err
		}
		imgs = append(imgs, uploaded...)
	}

	now := s.now()
	a := Animal{
		ID:           id,
		PostedBy:     ownerID,
		Name:         name,
		Species:      species,
		Breed:        strings.TrimSpace(in.Breed),
		Age:          in.Age,
		Gender:       gender,
		HealthStatus: strings.TrimSpace(in.HealthStatus),
		Description:  strings.TrimSpace(in.Description),
		Images:       imgs,
		Location:     loc,
		Address:      address,
		Status:       StatusAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return Animal{}, err
	}
	s.index.Upsert(a.ID, a.Location)
	s.metrics.IncAnimalsCreated()
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}

	s.log.Info("animal created", map[string]any{
		"animal_id": a.ID,
		"posted_by": a.PostedBy,
		"species":   a.Species,
		"images":    len(a.Images),
	})
	return a, nil
}

// resolveLocation: sin coordenadas pero con dirección => geocoding directo (si
// falla el alta falla: la ubicación es obligatoria). Con coordenadas y sin
// dirección => reverse geocoding best-effort con placeholder.
func (s *Service) resolveLocation(ctx context.Context, loc *geo.Point, address string) (geo.Point, string, error) {
	if loc == nil {
		if address == "" {
			return geo.Point{}, "", errs.Validation("location is required")
		}
		gctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
		defer cancel()
		res, err := s.geocoder.Forward(gctx, address)
		if err != nil {
			s.log.Warn("forward geocoding failed", map[string]any{"address": address, "error": err})
			return geo.Point{}, "", errs.Validation("location is required (address could not be geocoded)")
		}
		p := geo.Point{Lat: res.Lat, Lng: res.Lng}
		if !p.Valid() {
			return geo.Point{}, "", errs.Validation("geocoded location is out of range")
		}
		if res.Address != "" {
			address = res.Address
		}
		return p, address, nil
	}

	if !loc.Valid() {
		return geo.Point{}, "", errs.Validation("location must have lat in [-90,90] and lng in [-180,180]")
	}
	if address == "" {
		address = s.reverseGeocode(ctx, *loc)
	}
	return *loc, address, nil
}

func (s *Service) reverseGeocode(ctx context.Context, p geo.Point) string {
	gctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	addr, err := s.geocoder.Reverse(gctx, p.Lat, p.Lng)
	switch {
	case err == nil && strings.TrimSpace(addr) != "":
		return strings.TrimSpace(addr)
	case errors.Is(err, geocoding.ErrNoMatch):
		return geocoding.LocationNotFound
	}
	if !errors.Is(err, geocoding.ErrNotConfigured) {
		s.log.Warn("reverse geocoding failed", map[string]any{"lat": p.Lat, "lng": p.Lng, "error": err})
		s.metrics.IncGeocodingFallback()
	}
	return geocoding.UnknownLocation
}

// upload sube todas las imágenes en paralelo, conservando el orden.
// Cualquier falla aborta el alta.
func (s *Service) upload(ctx context.Context, animalID string, uploads []images.Upload) ([]string, error) {
	if s.images == nil {
		return nil, errs.Dependency("image store", errors.New("not configured"))
	}

	urls := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, up := range uploads {
		i, up := i, up
		g.Go(func() error {
			rc, err := up.Open()
			if err != nil {
				return err
			}
			defer rc.Close()

			key := fmt.Sprintf("%s/%s/%02d-%s%s", imageKeyPrefix, animalID, i, uuid.NewString(), strings.ToLower(path.Ext(up.Filename)))
			url, err := s.images.Put(gctx, key, rc, up.Size, up.ContentType)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.log.Error("image upload failed", map[string]any{"animal_id": animalID, "error": err})
		return nil, errs.Dependency("image upload failed", err)
	}
	return urls, nil
}

// Get devuelve el animal. Sin privilegios los adoptados no son visibles.
func (s *Service) Get(ctx context.Context, id string, privileged bool) (Animal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Animal{}, errs.NotFound("animal")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Animal{}, err
	}
	if !privileged && a.Status == StatusAdopted {
		return Animal{}, errs.NotFound("animal")
	}
	return a, nil
}

// GeoQuery restringe la búsqueda a un radio alrededor de Origin.
type GeoQuery struct {
	Origin      geo.Point
	MaxDistance float64
	// Nearest > 0 devuelve los k más cercanos que cumplen el filtro, sin radio.
	Nearest int
}

type SearchInput struct {
	Filter Filter
	Geo    *GeoQuery
	Sort   *Sort // nil = default (distancia si hay geo, createdAt desc si no)
	Page   int
	Limit  int

	// Privileged = listado administrativo: todos los status y filtro por status.
	Privileged bool
	Status     Status
}

func (s *Service) Search(ctx context.Context, in SearchInput) (Page, error) {
	page, limit := normalizePage(in.Page, in.Limit)

	f := in.Filter
	f.IDs = nil
	switch {
	case !in.Privileged:
		f.Statuses = []Status{StatusAvailable}
	case in.Status != "":
		if !in.Status.Valid() {
			return Page{}, errs.Validation("invalid status filter")
		}
		f.Statuses = []Status{in.Status}
	default:
		f.Statuses = nil
	}
	if f.Gender != "" && !f.Gender.Valid() {
		return Page{}, errs.Validation("gender must be one of male, female, unknown")
	}

	if in.Geo == nil {
		srt := DefaultSort
		if in.Sort != nil && in.Sort.Field != SortDistance {
			srt = *in.Sort
		}
		items, total, err := s.repo.Search(ctx, Query{
			Filter: f,
			Sort:   srt,
			Offset: PageOffset(page, limit),
			Limit:  limit,
		})
		if err != nil {
			return Page{}, err
		}
		out := make([]Result, 0, len(items))
		for _, a := range items {
			out = append(out, Result{Animal: a})
		}
		return newPage(out, total, page, limit), nil
	}

	if !in.Geo.Origin.Valid() {
		return Page{}, errs.Validation("lat/lng out of range")
	}
	if in.Geo.MaxDistance < 0 {
		return Page{}, errs.Validation("maxDistance must be non-negative")
	}

	if in.Geo.Nearest < 0 {
		return Page{}, errs.Validation("nearest must be non-negative")
	}

	var hits []geo.Hit
	if in.Geo.Nearest > 0 {
		// el filtro corre antes de cortar en k
		allowed, err := s.matchingIDs(ctx, f)
		if err != nil {
			return Page{}, err
		}
		hits = s.index.Nearest(in.Geo.Origin, in.Geo.Nearest, func(id string) bool {
			_, ok := allowed[id]
			return ok
		})
	} else {
		hits = s.index.Within(in.Geo.Origin, in.Geo.MaxDistance, nil)
	}
	dist := make(map[string]float64, len(hits))
	f.IDs = make([]string, 0, len(hits))
	for _, h := range hits {
		dist[h.ID] = h.Distance
		f.IDs = append(f.IDs, h.ID)
	}

	items, _, err := s.repo.Search(ctx, Query{Filter: f, Sort: DefaultSort})
	if err != nil {
		return Page{}, err
	}

	results := make([]Result, 0, len(items))
	for _, a := range items {
		d, ok := dist[a.ID]
		if !ok {
			continue
		}
		results = append(results, Result{Animal: a, Distance: &d})
	}

	srt := Sort{Field: SortDistance}
	if in.Sort != nil {
		srt = *in.Sort
	}
	sort.SliceStable(results, func(i, j int) bool {
		if srt.Field == SortDistance {
			di, dj := *results[i].Distance, *results[j].Distance
			if di != dj {
				if srt.Desc {
					return di > dj
				}
				return di < dj
			}
			return results[i].ID < results[j].ID
		}
		return Less(results[i].Animal, results[j].Animal, srt)
	})

	total := len(results)
	start := PageOffset(page, limit)
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return newPage(results[start:end], total, page, limit), nil
}

func (s *Service) matchingIDs(ctx context.Context, f Filter) (map[string]struct{}, error) {
	items, _, err := s.repo.Search(ctx, Query{Filter: f, Sort: DefaultSort})
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(items))
	for _, a := range items {
		out[a.ID] = struct{}{}
	}
	return out, nil
}

// StatusWriter escribe el status: el repo del catálogo o el de una tx por animal.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
}

// SetStatus actualiza el status sin validar la transición: la legalidad la
// controla el workflow que llama (ledger / review).
func SetStatus(ctx context.Context, w StatusWriter, id string, status Status, at time.Time) error {
	if !status.Valid() {
		return errs.Validation("invalid status")
	}
	return w.UpdateStatus(ctx, id, status, at)
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

// Warm carga en el GeoIndex las ubicaciones persistidas (arranque con postgres).
func (s *Service) Warm(ctx context.Context) (int, error) {
	locs, err := s.repo.ListLocations(ctx)
	if err != nil {
		return 0, err
	}
	for id, p := range locs {
		s.index.Upsert(id, p)
	}
	return len(locs), nil
}

// PageOffset calcula (page-1)*limit sin desbordar: una página fuera de rango
// devuelve un offset mayor que cualquier total.
func PageOffset(page, limit int) int {
	if page <= 1 || limit <= 0 {
		return 0
	}
	if page-1 > maxOffset/limit {
		return maxOffset
	}
	return (page - 1) * limit
}

// Refresh recarga el índice cada every hasta que ctx se cancela. Con varias
// instancias sobre la misma base es lo que trae los animales creados por otras.
func (s *Service) Refresh(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Warm(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("geo index refresh failed", map[string]any{"error": err})
			}
		}
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func newPage(items []Result, total, page, limit int) Page {
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page{Items: items, Total: total, Page: page, Limit: limit, TotalPages: pages}
}

func cleanURLs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
