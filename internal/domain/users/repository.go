package users

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	// Save inserta o reemplaza.
	Save(ctx context.Context, u User) error
}
