package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/geo"
)

type AnimalsRepo struct {
	s *Store
}

func (r *AnimalsRepo) Create(ctx context.Context, a animals.Animal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(a.ID) == "" {
		return errors.New("animal id required")
	}
	if _, exists := r.s.animals[a.ID]; exists {
		return errs.Conflict("animal already exists")
	}
	r.s.animals[a.ID] = cloneAnimal(a)
	return nil
}

func (r *AnimalsRepo) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.animals[id]
	if !ok {
		return animals.Animal{}, errs.NotFound("animal")
	}
	return cloneAnimal(a), nil
}

func (r *AnimalsRepo) UpdateStatus(ctx context.Context, id string, status animals.Status, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.animals[id]
	if !ok {
		return errs.NotFound("animal")
	}
	a.Status = status
	a.UpdatedAt = at
	r.s.animals[id] = a
	return nil
}

func (r *AnimalsRepo) Search(ctx context.Context, q animals.Query) ([]animals.Animal, int, error) {
	r.s.mu.RLock()
	f := q.Filter
	matched := make([]animals.Animal, 0)
	if f.IDs != nil {
		// candidatos ya acotados (GeoIndex): no recorrer todo el mapa
		ids := f.IDs
		f.IDs = nil
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if a, ok := r.s.animals[id]; ok && f.Matches(a) {
				matched = append(matched, cloneAnimal(a))
			}
		}
	} else {
		for _, a := range r.s.animals {
			if f.Matches(a) {
				matched = append(matched, cloneAnimal(a))
			}
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return animals.Less(matched[i], matched[j], q.Sort)
	})

	total := len(matched)
	if q.Offset > 0 {
		if q.Offset >= total {
			return []animals.Animal{}, total, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (r *AnimalsRepo) CountByStatus(ctx context.Context) (map[animals.Status]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[animals.Status]int, 3)
	for _, a := range r.s.animals {
		out[a.Status]++
	}
	return out, nil
}

func (r *AnimalsRepo) ListLocations(ctx context.Context) (map[string]geo.Point, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]geo.Point, len(r.s.animals))
	for id, a := range r.s.animals {
		out[id] = a.Location
	}
	return out, nil
}
