package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los contadores del workflow de adopción.
// Cada instancia usa su propio registry (un router por test sin choques de registro).
// Todos los métodos aceptan receiver nil.
type Metrics struct {
	registry *prometheus.Registry

	AnimalsCreated     prometheus.Counter
	AdoptionRequests   *prometheus.CounterVec
	AdoptionReviews    *prometheus.CounterVec
	CascadeRejections  prometheus.Counter
	StatusOverrides    *prometheus.CounterVec
	GeocodingFallbacks prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AnimalsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "petadopt_animals_created_total",
			Help: "Total number of animal listings created",
		}),
		AdoptionRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "petadopt_adoption_requests_total",
			Help: "Adoption requests by outcome (created, conflict, unavailable)",
		}, []string{"outcome"}),
		AdoptionReviews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "petadopt_adoption_reviews_total",
			Help: "Adoption review decisions (approved, rejected)",
		}, []string{"decision"}),
		CascadeRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "petadopt_adoption_cascade_rejections_total",
			Help: "Pending requests rejected because another request for the same animal was approved",
		}),
		StatusOverrides: f.NewCounterVec(prometheus.CounterOpts{
			Name: "petadopt_animal_status_overrides_total",
			Help: "Administrative animal status overrides by target status",
		}, []string{"status"}),
		GeocodingFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "petadopt_geocoding_fallbacks_total",
			Help: "Geocoding calls that failed and fell back to a placeholder address",
		}),
	}
}

func (m *Metrics) IncAnimalsCreated() {
	if m == nil {
		return
	}
	m.AnimalsCreated.Inc()
}

func (m *Metrics) IncAdoptionRequest(outcome string) {
	if m == nil {
		return
	}
	m.AdoptionRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncReview(decision string, cascaded int) {
	if m == nil {
		return
	}
	m.AdoptionReviews.WithLabelValues(decision).Inc()
	if cascaded > 0 {
		m.CascadeRejections.Add(float64(cascaded))
	}
}

func (m *Metrics) IncStatusOverride(status string) {
	if m == nil {
		return
	}
	m.StatusOverrides.WithLabelValues(status).Inc()
}

func (m *Metrics) IncGeocodingFallback() {
	if m == nil {
		return
	}
	m.GeocodingFallbacks.Inc()
}

// Handler expone /metrics para este registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
