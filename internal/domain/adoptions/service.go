package adoptions

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/platform/metrics"

	"github.com/google/uuid"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Service es el ledger de solicitudes de adopción.
type Service struct {
	repo    Repository
	tx      TxRunner
	animals AnimalLookup
	users   UserLookup

	stats   Invalidator
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithStats(inv Invalidator) Option      { return func(s *Service) { s.stats = inv } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l logger.Logger) Option     { return func(s *Service) { s.log = l } }

func NewService(repo Repository, tx TxRunner, animalsLookup AnimalLookup, usersLookup UserLookup, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		tx:      tx,
		animals: animalsLookup,
		users:   usersLookup,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Request crea una solicitud pending. El chequeo de disponibilidad y de
// duplicado corre dentro de la tx del animal junto con el insert.
func (s *Service) Request(ctx context.Context, userID, animalID, reason string) (Adoption, error) {
	userID = strings.TrimSpace(userID)
	animalID = strings.TrimSpace(animalID)
	reason = strings.TrimSpace(reason)

	if userID == "" {
		return Adoption{}, errs.ErrUnauthorized
	}
	if animalID == "" {
		return Adoption{}, errs.Validation("animalId is required")
	}
	if reason == "" {
		return Adoption{}, errs.Validation("reason is required")
	}

	var out Adoption
	err := s.tx.WithinAnimal(ctx, animalID, func(ctx context.Context, st TxStores) error {
		a, err := st.Animals.GetByID(ctx, animalID)
		if err != nil {
			return err
		}
		if a.Status != animals.StatusAvailable {
			return errs.InvalidState("animal not available for adoption")
		}

		existing, err := st.Adoptions.ListByAnimal(ctx, animalID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.UserID == userID && e.Status == StatusPending {
				return errs.Conflict("adoption request already pending")
			}
		}

		out = Adoption{
			ID:        uuid.NewString(),
			AnimalID:  animalID,
			UserID:    userID,
			Reason:    reason,
			Status:    StatusPending,
			CreatedAt: s.now(),
		}
		return st.Adoptions.Create(ctx, out)
	})
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrConflict):
			s.metrics.IncAdoptionRequest("conflict")
		case errors.Is(err, errs.ErrInvalidState):
			s.metrics.IncAdoptionRequest("unavailable")
		}
		return Adoption{}, err
	}

	s.metrics.IncAdoptionRequest("created")
	s.invalidate(ctx)
	s.log.Info("adoption requested", map[string]any{
		"adoption_id": out.ID,
		"animal_id":   out.AnimalID,
		"user_id":     out.UserID,
	})
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (Adoption, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Adoption{}, errs.NotFound("adoption")
	}
	return s.repo.GetByID(ctx, id)
}

// ListForUser: solicitudes del usuario, más recientes primero, con el animal
// y el revisor resueltos. Las de animales inexistentes se omiten.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Resolved, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errs.ErrUnauthorized
	}
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveAll(ctx, items, false)
}

// ListPending: todas las pending, más recientes primero. Las entradas cuyo
// animal o usuario no se pueden resolver se descartan sin error.
func (s *Service) ListPending(ctx context.Context) ([]Resolved, error) {
	items, err := s.repo.List(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	return s.resolveAll(ctx, items, true)
}

// ListAll pagina después de descartar las no resolubles, así el total
// coincide con lo que se lista.
func (s *Service) ListAll(ctx context.Context, status Status, page, limit int) (ListPage, error) {
	if status != "" && !status.Valid() {
		return ListPage{}, errs.Validation("invalid status filter")
	}
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	items, err := s.repo.List(ctx, status)
	if err != nil {
		return ListPage{}, err
	}
	resolved, err := s.resolveAll(ctx, items, true)
	if err != nil {
		return ListPage{}, err
	}

	total := len(resolved)
	start := animals.PageOffset(page, limit)
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}
	return ListPage{
		Items:      resolved[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pages,
	}, nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

// Resolve puebla una solicitud. A diferencia de los listados no descarta:
// la referencia que falte queda en nil.
func (s *Service) Resolve(ctx context.Context, a Adoption) (Resolved, error) {
	r := newResolver(s)
	out, _, err := r.resolve(ctx, a)
	return out, err
}

func (s *Service) resolveAll(ctx context.Context, items []Adoption, requireUser bool) ([]Resolved, error) {
	r := newResolver(s)
	out := make([]Resolved, 0, len(items))
	for _, a := range items {
		res, complete, err := r.resolve(ctx, a)
		if err != nil {
			return nil, err
		}
		if res.Animal == nil || (requireUser && !complete) {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

// resolver memoiza lookups dentro de un mismo listado.
type resolver struct {
	svc     *Service
	animals map[string]*AnimalRef
	users   map[string]*UserRef
}

func newResolver(s *Service) *resolver {
	return &resolver{svc: s, animals: map[string]*AnimalRef{}, users: map[string]*UserRef{}}
}

// resolve devuelve complete=false si falta el animal o el solicitante.
func (r *resolver) resolve(ctx context.Context, a Adoption) (Resolved, bool, error) {
	out := Resolved{Adoption: a}

	an, err := r.animal(ctx, a.AnimalID)
	if err != nil {
		return Resolved{}, false, err
	}
	u, err := r.user(ctx, a.UserID)
	if err != nil {
		return Resolved{}, false, err
	}
	out.Animal, out.User = an, u

	if a.ReviewedBy != "" {
		rv, err := r.user(ctx, a.ReviewedBy)
		if err != nil {
			return Resolved{}, false, err
		}
		out.Reviewer = rv
	}
	return out, an != nil && u != nil, nil
}

func (r *resolver) animal(ctx context.Context, id string) (*AnimalRef, error) {
	if ref, ok := r.animals[id]; ok {
		return ref, nil
	}
	a, err := r.svc.animals.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		r.animals[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ref := &AnimalRef{
		ID:       a.ID,
		Name:     a.Name,
		Species:  a.Species,
		Breed:    a.Breed,
		Status:   a.Status,
		Images:   a.Images,
		Address:  a.Address,
		PostedBy: a.PostedBy,
	}
	r.animals[id] = ref
	return ref, nil
}

func (r *resolver) user(ctx context.Context, id string) (*UserRef, error) {
	if ref, ok := r.users[id]; ok {
		return ref, nil
	}
	u, err := r.svc.users.GetByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		r.users[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ref := &UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
	r.users[id] = ref
	return ref, nil
}
