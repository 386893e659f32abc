package adoptions

import (
	"net/http"
	"strconv"
	"time"

	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/httpjson"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta las rutas del ledger sobre el router de /adoptions.
func RegisterRoutes(r chi.Router, svc *Service) {
	// Usuario
	r.With(middleware.RequireUser).Post("/", createAdoptionHandler(svc))
	r.With(middleware.RequireUser).Get("/my-adoptions", myAdoptionsHandler(svc))

	// Admin
	r.With(middleware.RequireAdmin).Get("/pending", pendingHandler(svc))
	r.With(middleware.RequireAdmin).Get("/admin/all", listAllHandler(svc))
}

type createAdoptionRequest struct {
	AnimalID string `json:"animalId"`
	Reason   string `json:"reason"`
}

type animalRefResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Species  string         `json:"species"`
	Breed    string         `json:"breed,omitempty"`
	Status   animals.Status `json:"status"`
	Images   []string       `json:"images"`
	Address  string         `json:"address,omitempty"`
	PostedBy string         `json:"postedBy"`
}

type userRefResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Response es el JSON de una solicitud resuelta. Lo reusa review.
type Response struct {
	ID         string             `json:"id"`
	AnimalID   string             `json:"animalId"`
	UserID     string             `json:"userId"`
	Reason     string             `json:"reason"`
	Status     Status             `json:"status"`
	AdminNotes string             `json:"adminNotes,omitempty"`
	ReviewedBy string             `json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time         `json:"reviewedAt,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	Animal     *animalRefResponse `json:"animal,omitempty"`
	User       *userRefResponse   `json:"user,omitempty"`
	Reviewer   *userRefResponse   `json:"reviewer,omitempty"`
}

type listAllResponse struct {
	Adoptions  []Response `json:"adoptions"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

// createAdoptionHandler godoc
// @Summary      Solicitar adopción
// @Tags         adoptions
// @Accept       json
// @Produce      json
// @Param        body  body      createAdoptionRequest  true  "solicitud"
// @Success      201   {object}  Response
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /adoptions [post]
func createAdoptionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		var req createAdoptionRequest
		if err := httpjson.Decode(r, &req); err != nil {
			httpjson.Fail(w, err)
			return
		}

		a, err := svc.Request(r.Context(), claims.UserID, req.AnimalID, req.Reason)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}

		httpjson.Write(w, http.StatusCreated, ToResponse(Resolved{Adoption: a}))
	}
}

// myAdoptionsHandler godoc
// @Summary      Mis solicitudes
// @Tags         adoptions
// @Produce      json
// @Success      200  {array}   Response
// @Failure      401  {object}  map[string]string
// @Router       /adoptions/my-adoptions [get]
func myAdoptionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		items, err := svc.ListForUser(r.Context(), claims.UserID)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, ToResponses(items))
	}
}

func pendingHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListPending(r.Context())
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, ToResponses(items))
	}
}

// listAllHandler godoc
// @Summary      Listado administrativo de solicitudes
// @Tags         adoptions
// @Produce      json
// @Param        status  query     string  false  "pending|approved|rejected"
// @Param        page    query     int     false  "página (default 1)"
// @Param        limit   query     int     false  "tamaño (default 10, max 100)"
// @Success      200     {object}  listAllResponse
// @Router       /adoptions/admin/all [get]
func listAllHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, err := intParam(q.Get("page"))
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		limit, err := intParam(q.Get("limit"))
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}

		res, err := svc.ListAll(r.Context(), Status(q.Get("status")), page, limit)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}

		httpjson.Write(w, http.StatusOK, listAllResponse{
			Adoptions:  ToResponses(res.Items),
			Total:      res.Total,
			Page:       res.Page,
			Limit:      res.Limit,
			TotalPages: res.TotalPages,
		})
	}
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func ToResponse(r Resolved) Response {
	out := Response{
		ID:         r.ID,
		AnimalID:   r.AnimalID,
		UserID:     r.UserID,
		Reason:     r.Reason,
		Status:     r.Status,
		AdminNotes: r.AdminNotes,
		ReviewedBy: r.ReviewedBy,
		ReviewedAt: r.ReviewedAt,
		CreatedAt:  r.CreatedAt,
	}
	if a := r.Animal; a != nil {
		imgs := a.Images
		if imgs == nil {
			imgs = []string{}
		}
		out.Animal = &animalRefResponse{
			ID:       a.ID,
			Name:     a.Name,
			Species:  a.Species,
			Breed:    a.Breed,
			Status:   a.Status,
			Images:   imgs,
			Address:  a.Address,
			PostedBy: a.PostedBy,
		}
	}
	out.User = userRef(r.User)
	out.Reviewer = userRef(r.Reviewer)
	return out
}

func ToResponses(items []Resolved) []Response {
	out := make([]Response, 0, len(items))
	for _, it := range items {
		out = append(out, ToResponse(it))
	}
	return out
}

func userRef(u *UserRef) *userRefResponse {
	if u == nil {
		return nil
	}
	return &userRefResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}
