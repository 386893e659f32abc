package review

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/httpjson"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta approve/reject sobre el router de /adoptions.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.With(middleware.RequireAdmin).Put("/approve/{adoptionID}", approveHandler(svc))
	r.With(middleware.RequireAdmin).Put("/reject/{adoptionID}", rejectHandler(svc))
}

type reviewRequest struct {
	AdminNotes string `json:"adminNotes"`
}

// approveHandler godoc
// @Summary      Aprobar solicitud
// @Description  Marca el animal como adoptado y rechaza las demás solicitudes pendientes del animal.
// @Tags         adoptions
// @Accept       json
// @Produce      json
// @Param        adoptionID  path      string         true   "id de la solicitud"
// @Param        body        body      reviewRequest  false  "notas"
// @Success      200         {object}  adoptions.Response
// @Failure      400         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /adoptions/approve/{adoptionID} [put]
func approveHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		req, err := decodeReview(r)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}

		res, err := svc.Approve(r.Context(), claims.UserID, chi.URLParam(r, "adoptionID"), req.AdminNotes)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, adoptions.ToResponse(res))
	}
}

// rejectHandler godoc
// @Summary      Rechazar solicitud
// @Tags         adoptions
// @Accept       json
// @Produce      json
// @Param        adoptionID  path      string         true   "id de la solicitud"
// @Param        body        body      reviewRequest  false  "notas"
// @Success      200         {object}  adoptions.Response
// @Failure      400         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /adoptions/reject/{adoptionID} [put]
func rejectHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		req, err := decodeReview(r)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}

		res, err := svc.Reject(r.Context(), claims.UserID, chi.URLParam(r, "adoptionID"), req.AdminNotes)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, adoptions.ToResponse(res))
	}
}

// body opcional: vacío = sin notas
func decodeReview(r *http.Request) (reviewRequest, error) {
	var req reviewRequest
	if r.Body == nil {
		return req, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		return req, errs.Validation("invalid body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, errs.Validation("invalid json")
	}
	return req, nil
}

type statusRequest struct {
	Status animals.Status `json:"status"`
}

// StatusRoutes monta PUT /animals/{animalID}/status (override administrativo).
// Vive acá y no en animals porque necesita leer las solicitudes del animal.
func StatusRoutes(r chi.Router, svc *Service) {
	r.With(middleware.RequireAdmin).Put("/{animalID}/status", overrideStatusHandler(svc))
}

// overrideStatusHandler godoc
// @Summary      Cambiar status de un animal (admin)
// @Tags         animals
// @Accept       json
// @Produce      json
// @Param        animalID  path      string         true  "id del animal"
// @Param        body      body      statusRequest  true  "nuevo status"
// @Success      200       {object}  animals.Response
// @Failure      400       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Router       /animals/{animalID}/status [put]
func overrideStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := httpjson.Decode(r, &req); err != nil {
			httpjson.Fail(w, err)
			return
		}

		a, err := svc.OverrideStatus(r.Context(), chi.URLParam(r, "animalID"), req.Status)
		if err != nil {
			httpjson.Fail(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, animals.ToResponse(animals.Result{Animal: a}))
	}
}
