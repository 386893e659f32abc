//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	pg "pet-adoption/internal/adapters/storage/postgres"
	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/errs"
	"pet-adoption/internal/domain/geo"
	"pet-adoption/internal/domain/review"
	"pet-adoption/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("petadopt"),
		tcpostgres.WithUsername("petadopt"),
		tcpostgres.WithPassword("petadopt"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := pg.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, pg.Migrate(ctx, db))
	// idempotente
	require.NoError(t, pg.Migrate(ctx, db))
	return db
}

func seed(t *testing.T, db *sql.DB, id string, p geo.Point, mutate func(*animals.Animal)) {
	t.Helper()
	age := 2
	a := animals.Animal{
		ID:        id,
		PostedBy:  "poster",
		Name:      "Animal " + id,
		Species:   "dog",
		Breed:     "Mixed_breed 100%",
		Age:       &age,
		Gender:    animals.GenderMale,
		Images:    []string{"https://cdn/x.jpg"},
		Location:  p,
		Status:    animals.StatusAvailable,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	a.UpdatedAt = a.CreatedAt
	if mutate != nil {
		mutate(&a)
	}
	require.NoError(t, pg.NewAnimalsRepo(db).Create(context.Background(), a))
}

func TestPostgres_AnimalsRepo(t *testing.T) {
	ctx := context.Background()
	db := startPostgres(t)
	repo := pg.NewAnimalsRepo(db)

	seed(t, db, "11111111-1111-1111-1111-111111111111", geo.Point{Lat: 1, Lng: 1}, nil)
	seed(t, db, "22222222-2222-2222-2222-222222222222", geo.Point{Lat: 2, Lng: 2}, func(a *animals.Animal) {
		a.Species = "cat"
		a.Name = "Zorro"
		a.Breed = "siamese"
	})

	got, err := repo.GetByID(ctx, "11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/x.jpg"}, got.Images)
	require.NotNil(t, got.Age)
	assert.Equal(t, 2, *got.Age)

	// % y _ se buscan literalmente
	items, total, err := repo.Search(ctx, animals.Query{Filter: animals.Filter{Breed: "_breed 100%"}, Sort: animals.DefaultSort})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)

	items, total, err = repo.Search(ctx, animals.Query{Filter: animals.Filter{Text: "zorr"}, Sort: animals.DefaultSort})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Zorro", items[0].Name)

	items, total, err = repo.Search(ctx, animals.Query{
		Filter: animals.Filter{IDs: []string{"22222222-2222-2222-2222-222222222222"}},
		Sort:   animals.Sort{Field: animals.SortName},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)

	require.NoError(t, repo.UpdateStatus(ctx, "22222222-2222-2222-2222-222222222222", animals.StatusPending, time.Now()))
	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[animals.StatusAvailable])
	assert.Equal(t, 1, counts[animals.StatusPending])

	locs, err := repo.ListLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, locs, 2)

	_, err = repo.GetByID(ctx, "33333333-3333-3333-3333-333333333333")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPostgres_ApproveFlow(t *testing.T) {
	ctx := context.Background()
	db := startPostgres(t)
	animalID := "44444444-4444-4444-4444-444444444444"
	seed(t, db, animalID, geo.Point{Lat: -34.6, Lng: -58.4}, nil)

	usersRepo := pg.NewUsersRepo(db)
	require.NoError(t, usersRepo.Save(ctx, users.User{ID: "admin", Name: "Admin", Role: users.RoleAdmin, CreatedAt: time.Now(), UpdatedAt: time.Now()}))

	tx := pg.NewTxRunner(db)
	ledger := adoptions.NewService(pg.NewAdoptionsRepo(db), tx, pg.NewAnimalsRepo(db), usersRepo)
	rev := review.NewService(ledger, tx)

	const n = 8
	ids := make([]string, n)
	for i := range ids {
		a, err := ledger.Request(ctx, "user-"+string(rune('a'+i)), animalID, "please")
		require.NoError(t, err)
		ids[i] = a.ID
	}

	_, err := ledger.Request(ctx, "user-a", animalID, "again")
	assert.ErrorIs(t, err, errs.ErrConflict)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := rev.Approve(ctx, "admin", id, ""); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	counts, err := ledger.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[adoptions.StatusApproved])
	assert.Equal(t, n-1, counts[adoptions.StatusRejected])
	assert.Equal(t, 0, counts[adoptions.StatusPending])

	an, err := pg.NewAnimalsRepo(db).GetByID(ctx, animalID)
	require.NoError(t, err)
	assert.Equal(t, animals.StatusAdopted, an.Status)

	_, err = rev.OverrideStatus(ctx, animalID, animals.StatusAvailable)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = ledger.Request(ctx, "late", animalID, "r")
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}
