package users

import (
	"time"

	"pet-adoption/internal/domain/geo"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User es la vista local de una identidad externa. El core solo la lee para
// resolver nombres y como origen de búsqueda geo.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role

	Location *geo.Point
	Address  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity es lo que llega ya autenticado desde el middleware.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   Role
}
