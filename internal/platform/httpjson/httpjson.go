// Package httpjson junta el writeJSON que antes estaba duplicado en cada
// módulo de handlers, más el mapeo de errores de dominio a status HTTP.
package httpjson

import (
	"encoding/json"
	"net/http"

	"pet-adoption/internal/domain/errs"
)

type errorBody struct {
	Error string `json:"error"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error escribe {"error": msg} con el status dado.
func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, errorBody{Error: msg})
}

// Fail mapea un error de dominio a status + mensaje público.
func Fail(w http.ResponseWriter, err error) {
	Error(w, errs.HTTPStatus(err), errs.PublicMessage(err))
}

// Decode lee un body JSON rechazando campos desconocidos.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Validation("invalid json")
	}
	return nil
}
