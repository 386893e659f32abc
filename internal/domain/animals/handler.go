package animals

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/geo"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/httpjson"
	"pet-adoption/internal/ports/images"

	"github.com/go-chi/chi/v5"
)

const maxMultipartMemory = 32 << 20

// Origins resuelve la ubicación guardada de un usuario (búsqueda "cerca mío").
type Origins interface {
	Origin(ctx context.Context, userID string) (*geo.Point, error)
}

// RegisterRoutes monta las rutas del catálogo sobre el router de /animals.
func RegisterRoutes(r chi.Router, svc *Service, origins Origins) {
	r.With(middleware.RequireUser).Post("/", createAnimalHandler(svc))
	r.Get("/", searchAnimalsHandler(svc, origins))
	r.Get("/{animalID}", getAnimalHandler(svc))
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type createAnimalRequest struct {
	Name         string           `json:"name"`
	Species      string           `json:"species"`
	Breed        string           `json:"breed"`
	Age          *int             `json:"age"`
	Gender       string           `json:"gender"`
	HealthStatus string           `json:"healthStatus"`
	Description  string           `json:"description"`
	Images       []string         `json:"images"`
	Location     *locationRequest `json:"location"`
	Address      string           `json:"address"`
}

type Response struct {
	ID           string    `json:"id"`
	PostedBy     string    `json:"postedBy"`
	Name         string    `json:"name"`
	Species      string    `json:"species"`
	Breed        string    `json:"breed,omitempty"`
	Age          *int      `json:"age,omitempty"`
	Gender       Gender    `json:"gender"`
	HealthStatus string    `json:"healthStatus,omitempty"`
	Description  string    `json:"description,omitempty"`
	Images       []string  `json:"images"`
	Location     geo.Point `json:"location"`
	Address      string    `json:"address,omitempty"`
	Status       Status    `json:"status"`
	Distance     *float64  `json:"distance,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type pageResponse struct {
	Animals    []Response `json:"animals"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

// createAnimalHandler godoc
// @Summary      Publicar un animal
// @Description  JSON, o multipart/form-data con archivos en "images" y "location" como JSON {"lat","lng"}.
// @Tags         animals
// @Accept       json
// @Accept       mpfd
// @Produce      json
// @Param        body  body      createAnimalRequest  true  "animal"
// @Success      201   {object}  Response
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /animals [post]
func createAnimalHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		var (
			in  CreateInput
			err error
		)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			in, err = parseMultipart(r)
		} else {
			in, err = parseJSON(r)
		}
		if err != nil {
			httpjson.Fail(w, err)
			return
		}

		a, err := svc.Create(r.Context(), claims.UserID, in)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}

		httpjson.Write(w, http.StatusCreated, ToResponse(Result{Animal: a}))
	}
}

func parseJSON(r *http.Request) (CreateInput, error) {
	var req createAnimalRequest
	if err := httpjson.Decode(r, &req); err != nil {
		return CreateInput{}, err
	}
	in := CreateInput{
		Name:         req.Name,
		Species:      req.Species,
		Breed:        req.Breed,
		Age:          req.Age,
		Gender:       req.Gender,
		HealthStatus: req.HealthStatus,
		Description:  req.Description,
		Images:       req.Images,
		Address:      req.Address,
	}
	if req.Location != nil {
		in.Location = &geo.Point{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}
	return in, nil
}

// parseMultipart: campos de texto + archivos "images". location llega como
// JSON string o como lat/lng sueltos.
func parseMultipart(r *http.Request) (CreateInput, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return CreateInput{}, errs.Validation("invalid multipart form")
	}
	f := r.MultipartForm

	in := CreateInput{
		Name:         formValue(f, "name"),
		Species:      formValue(f, "species"),
		Breed:        formValue(f, "breed"),
		Gender:       formValue(f, "gender"),
		HealthStatus: formValue(f, "healthStatus"),
		Description:  formValue(f, "description"),
		Address:      formValue(f, "address"),
	}

	if raw := formValue(f, "age"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return CreateInput{}, errs.Validation("age must be a non-negative integer")
		}
		in.Age = &n
	}

	switch raw := formValue(f, "location"); {
	case raw != "":
		var loc locationRequest
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return CreateInput{}, errs.Validation("invalid location format")
		}
		in.Location = &geo.Point{Lat: loc.Lat, Lng: loc.Lng}
	case formValue(f, "lat") != "" || formValue(f, "lng") != "":
		p, err := parsePoint(formValue(f, "lat"), formValue(f, "lng"))
		if err != nil {
			return CreateInput{}, err
		}
		in.Location = &p
	}

	for _, fh := range f.File["images"] {
		fh := fh
		in.Uploads = append(in.Uploads, images.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return in, nil
}

func formValue(f *multipart.Form, key string) string {
	if v := f.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// searchAnimalsHandler godoc
// @Summary      Buscar animales
// @Tags         animals
// @Produce      json
// @Param        species       query     string  false  "especie (substring)"
// @Param        age           query     int     false  "edad máxima"
// @Param        gender        query     string  false  "male|female|unknown"
// @Param        breed         query     string  false  "raza (substring)"
// @Param        healthStatus  query     string  false  "estado de salud (substring)"
// @Param        search        query     string  false  "texto libre (nombre, raza, descripción)"
// @Param        lat           query     number  false  "latitud"
// @Param        lng           query     number  false  "longitud"
// @Param        maxDistance   query     number  false  "radio en metros (default 10000)"
// @Param        nearest       query     int     false  "k más cercanos (ignora maxDistance)"
// @Param        sort          query     string  false  "createdAt|-createdAt|name|-name|age|-age|distance"
// @Param        page          query     int     false  "página (default 1)"
// @Param        limit         query     int     false  "tamaño (default 10, max 100)"
// @Param        status        query     string  false  "solo admin"
// @Success      200           {object}  pageResponse
// @Failure      400           {object}  map[string]string
// @Router       /animals [get]
func searchAnimalsHandler(svc *Service, origins Origins) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		claims, authed := middleware.GetClaims(r.Context())

		in := SearchInput{
			Filter: Filter{
				Species:      strings.TrimSpace(q.Get("species")),
				Breed:        strings.TrimSpace(q.Get("breed")),
				HealthStatus: strings.TrimSpace(q.Get("healthStatus")),
				Text:         strings.TrimSpace(q.Get("search")),
				Gender:       Gender(strings.ToLower(strings.TrimSpace(q.Get("gender")))),
			},
			Privileged: authed && claims.IsAdmin(),
			Status:     Status(strings.TrimSpace(q.Get("status"))),
		}

		var err error
		if in.Page, err = intQuery(q.Get("page"), "page"); err != nil {
			httpjson.Fail(w, err)
			return
		}
		if in.Limit, err = intQuery(q.Get("limit"), "limit"); err != nil {
			httpjson.Fail(w, err)
			return
		}
		if raw := strings.TrimSpace(q.Get("age")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				httpjson.Error(w, http.StatusBadRequest, "age must be a non-negative integer")
				return
			}
			in.Filter.MaxAge = &n
		}
		if raw := strings.TrimSpace(q.Get("sort")); raw != "" {
			s, ok := ParseSort(raw)
			if !ok {
				httpjson.Error(w, http.StatusBadRequest, "invalid sort")
				return
			}
			in.Sort = &s
		}

		gq, err := geoQuery(r.Context(), q.Get("lat"), q.Get("lng"), q.Get("maxDistance"), q.Get("nearest"), claims.UserID, origins)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		in.Geo = gq

		k, err := intQuery(q.Get("nearest"), "nearest")
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		if k != 0 {
			if gq == nil {
				httpjson.Error(w, http.StatusBadRequest, "nearest requires lat/lng or a saved location")
				return
			}
			gq.Nearest = k
		}

		page, err := svc.Search(r.Context(), in)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}

		out := pageResponse{
			Animals:    make([]Response, 0, len(page.Items)),
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		}
		for _, it := range page.Items {
			out.Animals = append(out.Animals, ToResponse(it))
		}
		httpjson.Write(w, http.StatusOK, out)
	}
}

// geoQuery arma el filtro geo:
// - lat+lng (+maxDistance opcional, default 10 km)
// - solo maxDistance o nearest: origen = ubicación guardada del usuario (si la tiene)
func geoQuery(ctx context.Context, rawLat, rawLng, rawDist, rawNearest, userID string, origins Origins) (*GeoQuery, error) {
	rawLat, rawLng, rawDist = strings.TrimSpace(rawLat), strings.TrimSpace(rawLng), strings.TrimSpace(rawDist)

	dist := DefaultMaxDistance
	if rawDist != "" {
		d, err := strconv.ParseFloat(rawDist, 64)
		if err != nil || d < 0 {
			return nil, errs.Validation("maxDistance must be a non-negative number")
		}
		dist = d
	}

	switch {
	case rawLat != "" || rawLng != "":
		p, err := parsePoint(rawLat, rawLng)
		if err != nil {
			return nil, err
		}
		return &GeoQuery{Origin: p, MaxDistance: dist}, nil

	case (rawDist != "" || strings.TrimSpace(rawNearest) != "") && userID != "" && origins != nil:
		p, err := origins.Origin(ctx, userID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, nil
		}
		return &GeoQuery{Origin: *p, MaxDistance: dist}, nil
	}
	return nil, nil
}

func parsePoint(rawLat, rawLng string) (geo.Point, error) {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(rawLng), 64)
	if err1 != nil || err2 != nil {
		return geo.Point{}, errs.Validation("lat and lng must be numbers")
	}
	p := geo.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return geo.Point{}, errs.Validation("lat/lng out of range")
	}
	return p, nil
}

func intQuery(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Validation(name + " must be an integer")
	}
	return n, nil
}

// getAnimalHandler godoc
// @Summary      Obtener un animal
// @Description  Los adoptados solo son visibles para admin.
// @Tags         animals
// @Produce      json
// @Param        animalID  path      string  true  "id del animal"
// @Success      200       {object}  Response
// @Failure      404       {object}  map[string]string
// @Router       /animals/{animalID} [get]
func getAnimalHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Get(r.Context(), chi.URLParam(r, "animalID"), middleware.IsAdmin(r.Context()))
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, ToResponse(Result{Animal: a}))
	}
}

func ToResponse(r Result) Response {
	imgs := r.Images
	if imgs == nil {
		imgs = []string{}
	}
	return Response{
		ID:           r.ID,
		PostedBy:     r.PostedBy,
		Name:         r.Name,
		Species:      r.Species,
		Breed:        r.Breed,
		Age:          r.Age,
		Gender:       r.Gender,
		HealthStatus: r.HealthStatus,
		Description:  r.Description,
		Images:       imgs,
		Location:     r.Location,
		Address:      r.Address,
		Status:       r.Status,
		Distance:     r.Distance,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
