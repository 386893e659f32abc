// Package review es la capa de decisión administrativa sobre las solicitudes:
// aprobar (con rechazo en cascada de las competidoras), rechazar y el override
// de status de un animal.
package review

import (
	"context"
	"strings"
	"time"

	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/platform/logger"
	"pet-adoption/internal/platform/metrics"
)

const (
	DefaultRejectNote = "Adoption request rejected"
	CascadeNote       = "Animal has been adopted by another user"
)

type Service struct {
	ledger *adoptions.Service
	tx     adoptions.TxRunner

	stats   adoptions.Invalidator
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithStats(inv adoptions.Invalidator) Option { return func(s *Service) { s.stats = inv } }
func WithMetrics(m *metrics.Metrics) Option      { return func(s *Service) { s.metrics = m } }
func WithLogger(l logger.Logger) Option          { return func(s *Service) { s.log = l } }

func NewService(ledger *adoptions.Service, tx adoptions.TxRunner, opts ...Option) *Service {
	s := &Service{
		ledger: ledger,
		tx:     tx,
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Approve aprueba una solicitud pending. En la misma tx marca el animal como
// adopted y rechaza las demás pending del animal con el mismo revisor y fecha.
func (s *Service) Approve(ctx context.Context, reviewerID, adoptionID, notes string) (adoptions.Resolved, error) {
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return adoptions.Resolved{}, errs.ErrUnauthorized
	}

	// animal_id es inmutable: se puede leer fuera de la tx para elegir el lock.
	target, err := s.ledger.Get(ctx, adoptionID)
	if err != nil {
		return adoptions.Resolved{}, err
	}

	var (
		approved adoptions.Adoption
		cascaded int
	)
	err = s.tx.WithinAnimal(ctx, target.AnimalID, func(ctx context.Context, st adoptions.TxStores) error {
		cur, err := st.Adoptions.GetByID(ctx, target.ID)
		if err != nil {
			return err
		}
		if cur.Status != adoptions.StatusPending {
			return errs.InvalidState("adoption request is not pending")
		}

		animal, err := st.Animals.GetByID(ctx, cur.AnimalID)
		if err != nil {
			return err
		}
		if animal.Status == animals.StatusAdopted {
			return errs.InvalidState("animal already adopted")
		}

		at := s.now()
		cur.Status = adoptions.StatusApproved
		cur.ReviewedBy = reviewerID
		cur.ReviewedAt = &at
		cur.AdminNotes = strings.TrimSpace(notes)
		if err := st.Adoptions.Update(ctx, cur); err != nil {
			return err
		}
		if err := animals.SetStatus(ctx, st.Animals, cur.AnimalID, animals.StatusAdopted, at); err != nil {
			return err
		}

		siblings, err := st.Adoptions.ListByAnimal(ctx, cur.AnimalID)
		if err != nil {
			return err
		}
		cascaded = 0
		for _, o := range siblings {
			if o.ID == cur.ID || o.Status != adoptions.StatusPending {
				continue
			}
			o.Status = adoptions.StatusRejected
			o.ReviewedBy = reviewerID
			o.ReviewedAt = &at
			o.AdminNotes = CascadeNote
			if err := st.Adoptions.Update(ctx, o); err != nil {
				return err
			}
			cascaded++
		}

		approved = cur
		return nil
	})
	if err != nil {
		return adoptions.Resolved{}, err
	}

	s.metrics.IncReview("approved", cascaded)
	s.invalidate(ctx)
	s.log.Info("adoption approved", map[string]any{
		"adoption_id": approved.ID,
		"animal_id":   approved.AnimalID,
		"reviewer_id": reviewerID,
		"cascaded":    cascaded,
	})
	return s.ledger.Resolve(ctx, approved)
}

// Reject rechaza una solicitud pending. No toca el status del animal.
func (s *Service) Reject(ctx context.Context, reviewerID, adoptionID, notes string) (adoptions.Resolved, error) {
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return adoptions.Resolved{}, errs.ErrUnauthorized
	}

	target, err := s.ledger.Get(ctx, adoptionID)
	if err != nil {
		return adoptions.Resolved{}, err
	}

	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = DefaultRejectNote
	}

	var rejected adoptions.Adoption
	err = s.tx.WithinAnimal(ctx, target.AnimalID, func(ctx context.Context, st adoptions.TxStores) error {
		cur, err := st.Adoptions.GetByID(ctx, target.ID)
		if err != nil {
			return err
		}
		if cur.Status != adoptions.StatusPending {
			return errs.InvalidState("adoption request is not pending")
		}

		at := s.now()
		cur.Status = adoptions.StatusRejected
		cur.ReviewedBy = reviewerID
		cur.ReviewedAt = &at
		cur.AdminNotes = notes
		if err := st.Adoptions.Update(ctx, cur); err != nil {
			return err
		}
		rejected = cur
		return nil
	})
	if err != nil {
		return adoptions.Resolved{}, err
	}

	s.metrics.IncReview("rejected", 0)
	s.invalidate(ctx)
	s.log.Info("adoption rejected", map[string]any{
		"adoption_id": rejected.ID,
		"animal_id":   rejected.AnimalID,
		"reviewer_id": reviewerID,
	})
	return s.ledger.Resolve(ctx, rejected)
}

// OverrideStatus es el cambio manual de status de un animal. Corre en la tx
// del animal y no permite romper la relación adopted <=> una solicitud approved.
func (s *Service) OverrideStatus(ctx context.Context, animalID string, status animals.Status) (animals.Animal, error) {
	animalID = strings.TrimSpace(animalID)
	if animalID == "" {
		return animals.Animal{}, errs.NotFound("animal")
	}
	if !status.Valid() {
		return animals.Animal{}, errs.Validation("status must be one of available, pending, adopted")
	}

	var out animals.Animal
	err := s.tx.WithinAnimal(ctx, animalID, func(ctx context.Context, st adoptions.TxStores) error {
		a, err := st.Animals.GetByID(ctx, animalID)
		if err != nil {
			return err
		}

		list, err := st.Adoptions.ListByAnimal(ctx, animalID)
		if err != nil {
			return err
		}
		hasApproved := false
		for _, ad := range list {
			if ad.Status == adoptions.StatusApproved {
				hasApproved = true
				break
			}
		}

		switch {
		case status == animals.StatusAdopted && !hasApproved:
			return errs.InvalidState("cannot mark animal as adopted without an approved adoption")
		case status != animals.StatusAdopted && hasApproved:
			return errs.InvalidState("animal has an approved adoption")
		}

		at := s.now()
		if a.Status != status {
			if err := animals.SetStatus(ctx, st.Animals, animalID, status, at); err != nil {
				return err
			}
			a.Status = status
			a.UpdatedAt = at
		}
		out = a
		return nil
	})
	if err != nil {
		return animals.Animal{}, err
	}

	s.metrics.IncStatusOverride(string(status))
	s.invalidate(ctx)
	s.log.Info("animal status overridden", map[string]any{"animal_id": animalID, "status": status})
	return out, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}
