package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.IncAnimalsCreated()
	m.IncAdoptionRequest("created")
	m.IncReview("approved", 2)
	m.IncReview("rejected", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnimalsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdoptionReviews.WithLabelValues("approved")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CascadeRejections))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "petadopt_adoption_reviews_total")
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncAnimalsCreated()
		m.IncAdoptionRequest("conflict")
		m.IncReview("approved", 3)
		m.IncStatusOverride("pending")
		m.IncGeocodingFallback()
	})
}
