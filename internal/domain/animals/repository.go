package animals

import (
	"context"
	"strings"
	"time"

	"pet-adoption/internal/domain/geo"
)

type Repository interface {
	Create(ctx context.Context, a Animal) error
	GetByID(ctx context.Context, id string) (Animal, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error

	// Search aplica filtro, orden y paginado. Devuelve además el total sin paginar.
	Search(ctx context.Context, q Query) ([]Animal, int, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	ListLocations(ctx context.Context) (map[string]geo.Point, error)
}

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortName      SortField = "name"
	SortAge       SortField = "age"
	SortDistance  SortField = "distance"
)

type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort: más recientes primero.
var DefaultSort = Sort{Field: SortCreatedAt, Desc: true}

// ParseSort acepta "createdAt", "-createdAt", "name", "-age", "distance", etc.
func ParseSort(raw string) (Sort, bool) {
	raw = strings.TrimSpace(raw)
	desc := false
	if strings.HasPrefix(raw, "-") {
		desc = true
		raw = raw[1:]
	}
	switch SortField(raw) {
	case SortCreatedAt, SortName, SortAge, SortDistance:
		return Sort{Field: SortField(raw), Desc: desc}, true
	}
	return Sort{}, false
}

// Filter de búsqueda. Los campos vacíos no filtran.
type Filter struct {
	Species      string
	Breed        string
	HealthStatus string
	Text         string // name / breed / description
	MaxAge       *int
	Gender       Gender
	Statuses     []Status

	// IDs restringe a un conjunto (p.ej. candidatos del GeoIndex).
	// nil = sin restricción; slice vacío = nada.
	IDs []string
}

type Query struct {
	Filter Filter
	Sort   Sort
	Offset int
	Limit  int // 0 = sin límite
}

// Matches evalúa el filtro en memoria. El repo postgres traduce la misma
// semántica a SQL (ILIKE / <= / IN).
func (f Filter) Matches(a Animal) bool {
	if f.IDs != nil && !containsString(f.IDs, a.ID) {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if a.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Species != "" && !containsFold(a.Species, f.Species) {
		return false
	}
	if f.Breed != "" && !containsFold(a.Breed, f.Breed) {
		return false
	}
	if f.HealthStatus != "" && !containsFold(a.HealthStatus, f.HealthStatus) {
		return false
	}
	if f.Gender != "" && a.Gender != f.Gender {
		return false
	}
	if f.MaxAge != nil {
		if a.Age == nil || *a.Age > *f.MaxAge {
			return false
		}
	}
	if f.Text != "" {
		if !containsFold(a.Name, f.Text) &&
			!containsFold(a.Breed, f.Text) &&
			!containsFold(a.Description, f.Text) {
			return false
		}
	}
	return true
}

// Less ordena según s; desempata por created_at desc y luego id.
// Los animales sin edad van al final en ambos sentidos.
func Less(a, b Animal, s Sort) bool {
	switch s.Field {
	case SortName:
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			if s.Desc {
				return an > bn
			}
			return an < bn
		}
	case SortAge:
		switch {
		case a.Age == nil && b.Age != nil:
			return false
		case a.Age != nil && b.Age == nil:
			return true
		case a.Age != nil && b.Age != nil && *a.Age != *b.Age:
			if s.Desc {
				return *a.Age > *b.Age
			}
			return *a.Age < *b.Age
		}
	case SortCreatedAt:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if s.Desc {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
