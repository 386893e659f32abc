package stats

import (
	"net/http"

	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/httpjson"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta /admin/stats sobre el router de /adoptions.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.With(middleware.RequireAdmin).Get("/admin/stats", summaryHandler(svc))
}

// summaryHandler godoc
// @Summary      Estadísticas de adopción
// @Tags         adoptions
// @Produce      json
// @Success      200  {object}  Summary
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /adoptions/admin/stats [get]
func summaryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.Summary(r.Context())
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, out)
	}
}
