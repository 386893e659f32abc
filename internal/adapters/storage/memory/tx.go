package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/errs"
)

// WithinAnimal serializa por animal con un lock de shard y acumula las
// escrituras de fn en un staging. Si fn termina sin error el staging se
// aplica entero bajo el lock de escritura del store; si no, se descarta.
// Los lectores nunca ven un estado intermedio.
func (s *Store) WithinAnimal(ctx context.Context, animalID string, fn func(ctx context.Context, st adoptions.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.shard(animalID)
	lock.Lock()
	defer lock.Unlock()

	tx := &stagedTx{
		s:        s,
		statuses: make(map[string]statusPatch),
		writes:   make(map[string]adoptions.Adoption),
		created:  make(map[string]bool),
	}
	if err := fn(ctx, adoptions.TxStores{
		Animals:   txAnimals{tx},
		Adoptions: txAdoptions{tx},
	}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return tx.commit()
}

type statusPatch struct {
	status animals.Status
	at     time.Time
}

type stagedTx struct {
	s        *Store
	statuses map[string]statusPatch
	writes   map[string]adoptions.Adoption
	created  map[string]bool
	order    []string
}

func (tx *stagedTx) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	// validar antes de tocar nada: todo o nada
	for id := range tx.statuses {
		if _, ok := s.animals[id]; !ok {
			return errs.NotFound("animal")
		}
	}
	for _, id := range tx.order {
		if _, exists := s.adoptions[id]; exists && tx.created[id] {
			return errs.Conflict("adoption already exists")
		}
	}

	for id, p := range tx.statuses {
		a := s.animals[id]
		a.Status = p.status
		a.UpdatedAt = p.at
		s.animals[id] = a
	}
	for _, id := range tx.order {
		a := tx.writes[id]
		if tx.created[id] {
			if err := s.insertAdoption(a); err != nil {
				return err
			}
			continue
		}
		s.adoptions[id] = cloneAdoption(a)
	}
	return nil
}

type txAnimals struct{ tx *stagedTx }

func (t txAnimals) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	t.tx.s.mu.RLock()
	a, ok := t.tx.s.animals[id]
	t.tx.s.mu.RUnlock()
	if !ok {
		return animals.Animal{}, errs.NotFound("animal")
	}
	a = cloneAnimal(a)
	if p, ok := t.tx.statuses[id]; ok {
		a.Status = p.status
		a.UpdatedAt = p.at
	}
	return a, nil
}

func (t txAnimals) UpdateStatus(ctx context.Context, id string, status animals.Status, at time.Time) error {
	if _, err := t.GetByID(ctx, id); err != nil {
		return err
	}
	t.tx.statuses[id] = statusPatch{status: status, at: at}
	return nil
}

type txAdoptions struct{ tx *stagedTx }

func (t txAdoptions) stage(a adoptions.Adoption, created bool) {
	if _, seen := t.tx.writes[a.ID]; !seen {
		t.tx.order = append(t.tx.order, a.ID)
	}
	t.tx.writes[a.ID] = cloneAdoption(a)
	if created {
		t.tx.created[a.ID] = true
	}
}

func (t txAdoptions) Create(ctx context.Context, a adoptions.Adoption) error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("adoption id required")
	}
	if _, err := t.GetByID(ctx, a.ID); err == nil {
		return errs.Conflict("adoption already exists")
	}
	t.stage(a, true)
	return nil
}

func (t txAdoptions) Update(ctx context.Context, a adoptions.Adoption) error {
	if _, err := t.GetByID(ctx, a.ID); err != nil {
		return err
	}
	t.stage(a, false)
	return nil
}

func (t txAdoptions) GetByID(ctx context.Context, id string) (adoptions.Adoption, error) {
	if a, ok := t.tx.writes[id]; ok {
		return cloneAdoption(a), nil
	}
	s := t.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.adoptions[id]
	if !ok {
		return adoptions.Adoption{}, errs.NotFound("adoption")
	}
	return cloneAdoption(a), nil
}

func (t txAdoptions) ListByAnimal(ctx context.Context, animalID string) ([]adoptions.Adoption, error) {
	s := t.tx.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]adoptions.Adoption, 0)
	for id, a := range s.adoptions {
		if a.AnimalID != animalID {
			continue
		}
		if staged, ok := t.tx.writes[id]; ok {
			a = staged
		}
		out = append(out, cloneAdoption(a))
	}
	for _, id := range t.tx.order {
		if a := t.tx.writes[id]; t.tx.created[id] && a.AnimalID == animalID {
			out = append(out, cloneAdoption(a))
		}
	}
	s.sortNewestFirst(out)
	return out, nil
}
