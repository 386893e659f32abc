package stats

import (
	"context"
	"errors"
	"testing"

	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/animals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnimals struct {
	counts map[animals.Status]int
	err    error
	calls  int
	during func()
}

func (f *fakeAnimals) CountByStatus(context.Context) (map[animals.Status]int, error) {
	f.calls++
	if f.during != nil {
		f.during()
	}
	return f.counts, f.err
}

type fakeAdoptions struct {
	counts map[adoptions.Status]int
	calls  int
}

func (f *fakeAdoptions) CountByStatus(context.Context) (map[adoptions.Status]int, error) {
	f.calls++
	return f.counts, nil
}

type fakeCache struct {
	val     *Summary
	getErr  error
	deletes int
}

func (c *fakeCache) Get(context.Context) (Summary, bool, error) {
	if c.getErr != nil {
		return Summary{}, false, c.getErr
	}
	if c.val == nil {
		return Summary{}, false, nil
	}
	return *c.val, true, nil
}

func (c *fakeCache) Set(_ context.Context, s Summary) error {
	c.val = &s
	return nil
}

func (c *fakeCache) Delete(context.Context) error {
	c.val = nil
	c.deletes++
	return nil
}

func newFakes() (*fakeAnimals, *fakeAdoptions) {
	an := &fakeAnimals{counts: map[animals.Status]int{
		animals.StatusAvailable: 3,
		animals.StatusPending:   1,
		animals.StatusAdopted:   2,
	}}
	ad := &fakeAdoptions{counts: map[adoptions.Status]int{
		adoptions.StatusPending:  4,
		adoptions.StatusApproved: 2,
	}}
	return an, ad
}

func TestSummary_Counts(t *testing.T) {
	an, ad := newFakes()
	svc := NewService(an, ad, nil, nil)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AnimalCounts{Total: 6, Available: 3, Pending: 1, Adopted: 2}, s.Animals)
	assert.Equal(t, AdoptionCounts{Pending: 4, Approved: 2, Rejected: 0}, s.Adoptions)
}

func TestSummary_UsesCacheUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	an, ad := newFakes()
	cache := &fakeCache{}
	svc := NewService(an, ad, cache, nil)

	_, err := svc.Summary(ctx)
	require.NoError(t, err)
	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, an.calls)
	assert.Equal(t, 1, ad.calls)

	ad.counts[adoptions.StatusApproved] = 3
	svc.Invalidate(ctx)
	assert.Equal(t, 1, cache.deletes)

	s, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Adoptions.Approved)
	assert.Equal(t, 2, an.calls)
}

func TestSummary_CacheErrorFallsBackToStore(t *testing.T) {
	an, ad := newFakes()
	svc := NewService(an, ad, &fakeCache{getErr: errors.New("redis down")}, nil)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, s.Animals.Total)
}

func TestSummary_StoreError(t *testing.T) {
	an, ad := newFakes()
	an.err = errors.New("db down")
	cache := &fakeCache{}
	svc := NewService(an, ad, cache, nil)

	_, err := svc.Summary(context.Background())
	require.Error(t, err)
	assert.Nil(t, cache.val)
}

func TestSummary_InvalidateDuringReadSkipsCache(t *testing.T) {
	ctx := context.Background()
	an, ad := newFakes()
	cache := &fakeCache{}
	svc := NewService(an, ad, cache, nil)

	// una escritura confirma mientras se cuentan los animales
	an.during = func() { svc.Invalidate(ctx) }
	s, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, s.Animals.Total)
	assert.Nil(t, cache.val)

	an.during = nil
	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.NotNil(t, cache.val)
	assert.Equal(t, 2, an.calls)
}
