package stats

import (
	"context"
	"sync/atomic"

	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

type AdoptionCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

type AnimalCounts struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Pending   int `json:"pending"`
	Adopted   int `json:"adopted"`
}

// Summary es una foto de los conteos. Los dos bloques no se leen en la misma
// transacción.
type Summary struct {
	Adoptions AdoptionCounts `json:"adoptions"`
	Animals   AnimalCounts   `json:"animals"`
}

type AnimalCounter interface {
	CountByStatus(ctx context.Context) (map[animals.Status]int, error)
}

type AdoptionCounter interface {
	CountByStatus(ctx context.Context) (map[adoptions.Status]int, error)
}

// Cache guarda el último Summary. ok=false es miss.
type Cache interface {
	Get(ctx context.Context) (Summary, bool, error)
	Set(ctx context.Context, s Summary) error
	Delete(ctx context.Context) error
}

type Service struct {
	animals   AnimalCounter
	adoptions AdoptionCounter
	cache     Cache
	log       logger.Logger

	// gen sube en cada Invalidate; un Summary leído antes no se cachea.
	gen atomic.Uint64
}

// NewService: cache puede ser nil (sin cache).
func NewService(animalCounts AnimalCounter, adoptionCounts AdoptionCounter, cache Cache, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{animals: animalCounts, adoptions: adoptionCounts, cache: cache, log: log}
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("stats cache read failed", map[string]any{"error": err})
		} else if ok {
			return cached, nil
		}
	}

	gen := s.gen.Load()
	var (
		an map[animals.Status]int
		ad map[adoptions.Status]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		an, err = s.animals.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ad, err = s.adoptions.CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	out := Summary{
		Adoptions: AdoptionCounts{
			Pending:  ad[adoptions.StatusPending],
			Approved: ad[adoptions.StatusApproved],
			Rejected: ad[adoptions.StatusRejected],
		},
		Animals: AnimalCounts{
			Available: an[animals.StatusAvailable],
			Pending:   an[animals.StatusPending],
			Adopted:   an[animals.StatusAdopted],
		},
	}
	for _, n := range an {
		out.Animals.Total += n
	}

	// una escritura invalidó durante la lectura: los conteos pueden ser previos
	if s.cache != nil && s.gen.Load() == gen {
		if err := s.cache.Set(ctx, out); err != nil {
			s.log.Warn("stats cache write failed", map[string]any{"error": err})
		}
	}
	return out, nil
}

// Invalidate descarta el Summary cacheado. Lo llaman ledger, review y catálogo
// después de cada escritura confirmada.
func (s *Service) Invalidate(ctx context.Context) {
	s.gen.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx); err != nil {
		s.log.Warn("stats cache invalidation failed", map[string]any{"error": err})
	}
}
