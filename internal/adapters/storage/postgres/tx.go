package postgres

import (
	"context"
	"database/sql"
	"time"

	"pet-adoption/internal/domain/adoptions"
)

const defaultTxTimeout = 5 * time.Second

// TxRunner implementa adoptions.TxRunner con una tx de Postgres y un
// SELECT ... FOR UPDATE sobre la fila del animal.
type TxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db, timeout: defaultTxTimeout}
}

func (r *TxRunner) WithinAnimal(ctx context.Context, animalID string, fn func(ctx context.Context, st adoptions.TxStores) error) (err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM animals WHERE id = $1 FOR UPDATE`, animalID).Scan(&locked); err != nil {
		return mapErr(err, "animal")
	}

	err = fn(ctx, adoptions.TxStores{
		Animals:   &AnimalsRepo{q: tx},
		Adoptions: &AdoptionsRepo{q: tx},
	})
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return mapErr(err, "adoption")
	}
	return nil
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
