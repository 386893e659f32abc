package users

import (
	"net/http"
	"time"

	"pet-adoption/internal/domain/geo"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/httpjson"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta /me. Requiere identidad.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/me", func(mr chi.Router) {
		mr.Use(middleware.RequireUser)
		mr.Get("/", getMeHandler(svc))
		mr.Put("/location", setLocationHandler(svc))
	})
}

type userResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Role      Role       `json:"role"`
	Location  *geo.Point `json:"location,omitempty"`
	Address   string     `json:"address,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type setLocationRequest struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address"`
}

// getMeHandler godoc
// @Summary      Usuario actual
// @Tags         users
// @Produce      json
// @Success      200  {object}  userResponse
// @Failure      401  {object}  map[string]string
// @Router       /me [get]
func getMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		u, err := svc.Get(r.Context(), claims.UserID)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, toUserResponse(u))
	}
}

// setLocationHandler godoc
// @Summary      Registrar ubicación del usuario
// @Description  Coordenadas (lat,lng) o dirección. Se usa como origen de búsqueda "cerca mío".
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      setLocationRequest  true  "ubicación"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  map[string]string
// @Router       /me/location [put]
func setLocationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		var req setLocationRequest
		if err := httpjson.Decode(r, &req); err != nil {
			httpjson.Fail(w, err)
			return
		}

		in := LocationInput{Address: req.Address}
		switch {
		case req.Lat != nil && req.Lng != nil:
			in.Location = &geo.Point{Lat: *req.Lat, Lng: *req.Lng}
		case req.Lat != nil || req.Lng != nil:
			httpjson.Error(w, http.StatusBadRequest, "lat and lng must be sent together")
			return
		}

		u, err := svc.SetLocation(r.Context(), claims.UserID, in)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, toUserResponse(u))
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Location:  u.Location,
		Address:   u.Address,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
