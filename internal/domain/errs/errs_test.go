package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("name required"), http.StatusBadRequest},
		{"conflict", Conflict("already pending"), http.StatusBadRequest},
		{"invalid state", InvalidState("not pending"), http.StatusBadRequest},
		{"not found", NotFound("animal"), http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"dependency", Dependency("image store", errors.New("boom")), http.StatusBadGateway},
		{"wrapped twice", fmt.Errorf("approve: %w", NotFound("adoption")), http.StatusNotFound},
		{"unknown", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestPublicMessage_HidesInternalErrors(t *testing.T) {
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: connection refused")))
	assert.Equal(t, "not found: animal", PublicMessage(NotFound("animal")))
}
