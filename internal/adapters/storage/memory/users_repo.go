package memory

import (
	"context"
	"errors"
	"strings"

	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/users"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return users.User{}, errs.NotFound("user")
	}
	return cloneUser(u), nil
}

func (r *UsersRepo) Save(ctx context.Context, u users.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.users[u.ID] = cloneUser(u)
	return nil
}
