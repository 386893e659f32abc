package adoptions

import (
	"context"
	"time"

	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/users"
)

type Repository interface {
	Create(ctx context.Context, a Adoption) error
	Update(ctx context.Context, a Adoption) error
	GetByID(ctx context.Context, id string) (Adoption, error)
	ListByAnimal(ctx context.Context, animalID string) ([]Adoption, error)

	// ListByUser y List devuelven más recientes primero.
	ListByUser(ctx context.Context, userID string) ([]Adoption, error)
	// List con status vacío devuelve todas.
	List(ctx context.Context, status Status) ([]Adoption, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// TxAdoptions es lo que se puede hacer con las solicitudes dentro de una tx.
type TxAdoptions interface {
	Create(ctx context.Context, a Adoption) error
	Update(ctx context.Context, a Adoption) error
	GetByID(ctx context.Context, id string) (Adoption, error)
	ListByAnimal(ctx context.Context, animalID string) ([]Adoption, error)
}

// TxAnimals: lectura y cambio de status del animal bloqueado.
type TxAnimals interface {
	GetByID(ctx context.Context, id string) (animals.Animal, error)
	UpdateStatus(ctx context.Context, id string, status animals.Status, at time.Time) error
}

type TxStores struct {
	Animals   TxAnimals
	Adoptions TxAdoptions
}

// TxRunner serializa por animal. Todo lo que fn lee y escribe sobre ese animal
// y sus solicitudes se aplica junto o no se aplica; si fn devuelve error no
// queda nada escrito.
type TxRunner interface {
	WithinAnimal(ctx context.Context, animalID string, fn func(ctx context.Context, st TxStores) error) error
}

// AnimalLookup y UserLookup resuelven referencias para los listados.
type AnimalLookup interface {
	GetByID(ctx context.Context, id string) (animals.Animal, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

// Invalidator lo implementa el agregador de stats (cache).
type Invalidator interface {
	Invalidate(ctx context.Context)
}
