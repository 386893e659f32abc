package animals

import (
	"time"

	"pet-adoption/internal/domain/geo"
)

// Species es abierto; estos son los valores conocidos.
type Species = string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesOther Species = "other"
)

// Gender del animal.
// @Enum male, female, unknown
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderUnknown:
		return true
	}
	return false
}

// Status de disponibilidad.
// Solo un animal available acepta nuevas solicitudes de adopción.
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusAdopted   Status = "adopted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusAdopted:
		return true
	}
	return false
}

// Animal es una publicación de adopción. PostedBy no se reasigna nunca.
type Animal struct {
	ID       string
	PostedBy string

	Name         string
	Species      Species
	Breed        string
	Age          *int
	Gender       Gender
	HealthStatus string
	Description  string
	Images       []string

	Location geo.Point
	Address  string

	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Result es un animal devuelto por Search; Distance solo viene en búsquedas geo.
type Result struct {
	Animal
	Distance *float64
}

// Page es una página de resultados con el total del filtro completo.
type Page struct {
	Items      []Result
	Total      int
	Page       int
	Limit      int
	TotalPages int
}
