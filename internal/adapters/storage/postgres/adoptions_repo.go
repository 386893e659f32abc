package postgres

import (
	"context"
	"database/sql"
	"strings"

	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/errs"
)

type AdoptionsRepo struct {
	q querier
}

func NewAdoptionsRepo(db *sql.DB) *AdoptionsRepo {
	return &AdoptionsRepo{q: db}
}

const adoptionColumns = `
	id, animal_id, user_id, reason, status,
	admin_notes, reviewed_by, reviewed_at, created_at`

// newest first; seq desempata created_at iguales
const newestFirst = ` ORDER BY created_at DESC, seq DESC`

func (r *AdoptionsRepo) Create(ctx context.Context, a adoptions.Adoption) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO adoptions (`+adoptionColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		a.ID,
		a.AnimalID,
		a.UserID,
		a.Reason,
		string(a.Status),
		a.AdminNotes,
		a.ReviewedBy,
		toNullTime(a.ReviewedAt),
		a.CreatedAt,
	)
	return mapErr(err, "adoption")
}

// Update solo toca los campos de revisión: animal_id y user_id son inmutables.
func (r *AdoptionsRepo) Update(ctx context.Context, a adoptions.Adoption) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE adoptions
		SET
			status = $2,
			admin_notes = $3,
			reviewed_by = $4,
			reviewed_at = $5
		WHERE id = $1
	`,
		a.ID,
		string(a.Status),
		a.AdminNotes,
		a.ReviewedBy,
		toNullTime(a.ReviewedAt),
	)
	if err != nil {
		return mapErr(err, "adoption")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.NotFound("adoption")
	}
	return nil
}

func (r *AdoptionsRepo) GetByID(ctx context.Context, id string) (adoptions.Adoption, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return adoptions.Adoption{}, errs.NotFound("adoption")
	}

	row := r.q.QueryRowContext(ctx, `SELECT `+adoptionColumns+` FROM adoptions WHERE id = $1`, id)
	a, err := scanAdoption(row)
	if err != nil {
		return adoptions.Adoption{}, mapErr(err, "adoption")
	}
	return a, nil
}

func (r *AdoptionsRepo) ListByAnimal(ctx context.Context, animalID string) ([]adoptions.Adoption, error) {
	return r.list(ctx, ` WHERE animal_id = $1`, animalID)
}

func (r *AdoptionsRepo) ListByUser(ctx context.Context, userID string) ([]adoptions.Adoption, error) {
	return r.list(ctx, ` WHERE user_id = $1`, userID)
}

func (r *AdoptionsRepo) List(ctx context.Context, status adoptions.Status) ([]adoptions.Adoption, error) {
	if status == "" {
		return r.list(ctx, "")
	}
	return r.list(ctx, ` WHERE status = $1`, string(status))
}

func (r *AdoptionsRepo) CountByStatus(ctx context.Context) (map[adoptions.Status]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM adoptions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[adoptions.Status]int, 3)
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[adoptions.Status(s)] = n
	}
	return out, rows.Err()
}

func (r *AdoptionsRepo) list(ctx context.Context, where string, args ...any) ([]adoptions.Adoption, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+adoptionColumns+` FROM adoptions`+where+newestFirst, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]adoptions.Adoption, 0)
	for rows.Next() {
		a, err := scanAdoption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAdoption(s scanner) (adoptions.Adoption, error) {
	var (
		a          adoptions.Adoption
		status     string
		reviewedAt sql.NullTime
	)
	if err := s.Scan(
		&a.ID,
		&a.AnimalID,
		&a.UserID,
		&a.Reason,
		&status,
		&a.AdminNotes,
		&a.ReviewedBy,
		&reviewedAt,
		&a.CreatedAt,
	); err != nil {
		return adoptions.Adoption{}, err
	}
	a.Status = adoptions.Status(status)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		a.ReviewedAt = &t
	}
	return a, nil
}
