package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/geo"

	"github.com/lib/pq"
)

type AnimalsRepo struct {
	q querier
}

func NewAnimalsRepo(db *sql.DB) *AnimalsRepo {
	return &AnimalsRepo{q: db}
}

const animalColumns = `
	id, posted_by,
	name, species, breed, age, gender,
	health_status, description, images,
	lat, lng, address,
	status, created_at, updated_at`

func (r *AnimalsRepo) Create(ctx context.Context, a animals.Animal) error {
	imgs := a.Images
	if imgs == nil {
		imgs = []string{}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO animals (`+animalColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		a.ID,
		a.PostedBy,
		a.Name,
		a.Species,
		a.Breed,
		toNullInt(a.Age),
		string(a.Gender),
		a.HealthStatus,
		a.Description,
		pq.Array(imgs),
		a.Location.Lat,
		a.Location.Lng,
		a.Address,
		string(a.Status),
		a.CreatedAt,
		a.UpdatedAt,
	)
	return mapErr(err, "animal")
}

func (r *AnimalsRepo) GetByID(ctx context.Context, id string) (animals.Animal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return animals.Animal{}, errs.NotFound("animal")
	}

	row := r.q.QueryRowContext(ctx, `SELECT `+animalColumns+` FROM animals WHERE id = $1`, id)
	a, err := scanAnimal(row)
	if err != nil {
		return animals.Animal{}, mapErr(err, "animal")
	}
	return a, nil
}

func (r *AnimalsRepo) UpdateStatus(ctx context.Context, id string, status animals.Status, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE animals SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.NotFound("animal")
	}
	return nil
}

func (r *AnimalsRepo) Search(ctx context.Context, q animals.Query) ([]animals.Animal, int, error) {
	if q.Filter.IDs != nil && len(q.Filter.IDs) == 0 {
		return []animals.Animal{}, 0, nil
	}

	where, args := animalWhere(q.Filter)

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM animals`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + animalColumns + ` FROM animals` + where + ` ORDER BY ` + orderBy(q.Sort)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]animals.Animal, 0)
	for rows.Next() {
		a, err := scanAnimal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *AnimalsRepo) CountByStatus(ctx context.Context) (map[animals.Status]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM animals GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[animals.Status]int, 3)
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[animals.Status(s)] = n
	}
	return out, rows.Err()
}

func (r *AnimalsRepo) ListLocations(ctx context.Context) (map[string]geo.Point, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, lat, lng FROM animals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]geo.Point)
	for rows.Next() {
		var id string
		var p geo.Point
		if err := rows.Scan(&id, &p.Lat, &p.Lng); err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, rows.Err()
}

// animalWhere traduce animals.Filter a SQL con la misma semántica que
// Filter.Matches (substring case-insensitive, edad <= n, etc).
func animalWhere(f animals.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.IDs != nil {
		add("id = ANY($%d)", pq.Array(f.IDs))
	}
	if len(f.Statuses) > 0 {
		ss := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			ss = append(ss, string(s))
		}
		add("status = ANY($%d)", pq.Array(ss))
	}
	if f.Species != "" {
		add(`species ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(f.Species))
	}
	if f.Breed != "" {
		add(`breed ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(f.Breed))
	}
	if f.HealthStatus != "" {
		add(`health_status ILIKE '%%' || $%d || '%%' ESCAPE '\'`, escapeLike(f.HealthStatus))
	}
	if f.Gender != "" {
		add("gender = $%d", string(f.Gender))
	}
	if f.MaxAge != nil {
		add("age IS NOT NULL AND age <= $%d", *f.MaxAge)
	}
	if f.Text != "" {
		args = append(args, escapeLike(f.Text))
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(name ILIKE '%%' || $%[1]d || '%%' ESCAPE '\' OR breed ILIKE '%%' || $%[1]d || '%%' ESCAPE '\' OR description ILIKE '%%' || $%[1]d || '%%' ESCAPE '\')`, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(s animals.Sort) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	switch s.Field {
	case animals.SortName:
		return "lower(name) " + dir + ", created_at DESC, id ASC"
	case animals.SortAge:
		return "age " + dir + " NULLS LAST, created_at DESC, id ASC"
	case animals.SortCreatedAt:
		return "created_at " + dir + ", id ASC"
	}
	// distance se ordena en el service (no hay geo en SQL)
	return "created_at DESC, id ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnimal(s scanner) (animals.Animal, error) {
	var (
		a      animals.Animal
		age    sql.NullInt64
		gender string
		status string
		imgs   []string
	)
	if err := s.Scan(
		&a.ID,
		&a.PostedBy,
		&a.Name,
		&a.Species,
		&a.Breed,
		&age,
		&gender,
		&a.HealthStatus,
		&a.Description,
		pq.Array(&imgs),
		&a.Location.Lat,
		&a.Location.Lng,
		&a.Address,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return animals.Animal{}, err
	}

	if age.Valid {
		n := int(age.Int64)
		a.Age = &n
	}
	a.Gender = animals.Gender(gender)
	a.Status = animals.Status(status)
	a.Images = imgs
	if a.Images == nil {
		a.Images = []string{}
	}
	return a, nil
}

func toNullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
