package adoptions

import (
	"time"

	"pet-adoption/internal/domain/animals"
)

// Status de una solicitud. approved y rejected son terminales.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Adoption es una solicitud de un usuario por un animal.
// AnimalID y UserID no cambian nunca; no se borra.
type Adoption struct {
	ID       string
	AnimalID string
	UserID   string
	Reason   string
	Status   Status

	AdminNotes string
	ReviewedBy string
	ReviewedAt *time.Time

	CreatedAt time.Time
}

// AnimalRef es el resumen del animal que acompaña a una solicitud resuelta.
type AnimalRef struct {
	ID       string
	Name     string
	Species  string
	Breed    string
	Status   animals.Status
	Images   []string
	Address  string
	PostedBy string
}

type UserRef struct {
	ID    string
	Name  string
	Email string
}

// Resolved es una solicitud con sus referencias pobladas.
// Reviewer es nil mientras está pending (o si el revisor no está en el directorio).
type Resolved struct {
	Adoption
	Animal   *AnimalRef
	User     *UserRef
	Reviewer *UserRef
}

// ListPage es la respuesta paginada del listado administrativo.
type ListPage struct {
	Items      []Resolved
	Total      int
	Page       int
	Limit      int
	TotalPages int
}
