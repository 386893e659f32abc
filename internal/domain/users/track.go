package users

import (
	"net/http"

	"pet-adoption/internal/middleware"
	"pet-adoption/internal/platform/logger"
)

// Track registra en el directorio cada identidad autenticada, para que los
// listados de adopciones puedan resolver nombres. Un fallo no corta el request.
func Track(svc *Service, log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, ok := middleware.GetClaims(r.Context()); ok {
				err := svc.Touch(r.Context(), Identity{
					UserID: c.UserID,
					Name:   c.Name,
					Email:  c.Email,
					Role:   Role(c.Role),
				})
				if err != nil {
					log.Warn("identity tracking failed", map[string]any{"user_id": c.UserID, "error": err})
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
