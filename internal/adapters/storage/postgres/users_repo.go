package postgres

import (
	"context"
	"database/sql"
	"strings"

	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/geo"
	"pet-adoption/internal/domain/users"
)

type UsersRepo struct {
	q querier
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{q: db}
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return users.User{}, errs.NotFound("user")
	}

	var (
		u        users.User
		role     string
		lat, lng sql.NullFloat64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, email, role, lat, lng, address, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &role, &lat, &lng, &u.Address, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return users.User{}, mapErr(err, "user")
	}

	u.Role = users.Role(role)
	if lat.Valid && lng.Valid {
		u.Location = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	return u, nil
}

// Save hace upsert. created_at se conserva si ya existía.
func (r *UsersRepo) Save(ctx context.Context, u users.User) error {
	var lat, lng sql.NullFloat64
	if u.Location != nil {
		lat = sql.NullFloat64{Float64: u.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: u.Location.Lng, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, lat, lng, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			address = EXCLUDED.address,
			updated_at = EXCLUDED.updated_at
	`,
		u.ID,
		u.Name,
		u.Email,
		string(u.Role),
		lat,
		lng,
		u.Address,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return err
}
