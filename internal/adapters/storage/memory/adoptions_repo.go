package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/errs"
)

// AdoptionsRepo son las lecturas/escrituras directas. Las escrituras del
// workflow pasan por WithinAnimal; Create/Update quedan para seeds y tests.
type AdoptionsRepo struct {
	s *Store
}

func (r *AdoptionsRepo) Create(ctx context.Context, a adoptions.Adoption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertAdoption(a)
}

func (r *AdoptionsRepo) Update(ctx context.Context, a adoptions.Adoption) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.adoptions[a.ID]; !ok {
		return errs.NotFound("adoption")
	}
	r.s.adoptions[a.ID] = cloneAdoption(a)
	return nil
}

func (r *AdoptionsRepo) GetByID(ctx context.Context, id string) (adoptions.Adoption, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.adoptions[id]
	if !ok {
		return adoptions.Adoption{}, errs.NotFound("adoption")
	}
	return cloneAdoption(a), nil
}

func (r *AdoptionsRepo) ListByAnimal(ctx context.Context, animalID string) ([]adoptions.Adoption, error) {
	return r.list(func(a adoptions.Adoption) bool { return a.AnimalID == animalID }), nil
}

func (r *AdoptionsRepo) ListByUser(ctx context.Context, userID string) ([]adoptions.Adoption, error) {
	return r.list(func(a adoptions.Adoption) bool { return a.UserID == userID }), nil
}

func (r *AdoptionsRepo) List(ctx context.Context, status adoptions.Status) ([]adoptions.Adoption, error) {
	return r.list(func(a adoptions.Adoption) bool { return status == "" || a.Status == status }), nil
}

func (r *AdoptionsRepo) CountByStatus(ctx context.Context) (map[adoptions.Status]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[adoptions.Status]int, 3)
	for _, a := range r.s.adoptions {
		out[a.Status]++
	}
	return out, nil
}

func (r *AdoptionsRepo) list(keep func(adoptions.Adoption) bool) []adoptions.Adoption {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]adoptions.Adoption, 0)
	for _, a := range r.s.adoptions {
		if keep(a) {
			out = append(out, cloneAdoption(a))
		}
	}
	r.s.sortNewestFirst(out)
	return out
}

// insertAdoption requiere s.mu tomado en escritura.
func (s *Store) insertAdoption(a adoptions.Adoption) error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("adoption id required")
	}
	if _, exists := s.adoptions[a.ID]; exists {
		return errs.Conflict("adoption already exists")
	}
	s.nextSeq++
	s.seq[a.ID] = s.nextSeq
	s.adoptions[a.ID] = cloneAdoption(a)
	return nil
}

// sortNewestFirst: created_at desc, luego orden de inserción desc.
// Requiere s.mu tomado (lee seq).
func (s *Store) sortNewestFirst(items []adoptions.Adoption) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return s.seq[items[i].ID] > s.seq[items[j].ID]
	})
}
