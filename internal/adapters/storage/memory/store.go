package memory

import (
	"hash/fnv"
	"sync"

	"pet-adoption/internal/domain/adoptions"
	"pet-adoption/internal/domain/animals"
	"pet-adoption/internal/domain/users"
)

const lockShards = 128

// Store es la base en memoria (modo dev / tests). Un único RWMutex protege
// los tres mapas; las escrituras por animal además pasan por un lock de shard
// (ver WithinAnimal).
type Store struct {
	mu        sync.RWMutex
	animals   map[string]animals.Animal
	adoptions map[string]adoptions.Adoption
	users     map[string]users.User

	// seq da orden estable a solicitudes con el mismo created_at
	seq      map[string]uint64
	nextSeq  uint64
	animalMu [lockShards]sync.Mutex
}

func NewStore() *Store {
	return &Store{
		animals:   make(map[string]animals.Animal),
		adoptions: make(map[string]adoptions.Adoption),
		users:     make(map[string]users.User),
		seq:       make(map[string]uint64),
	}
}

func (s *Store) Animals() *AnimalsRepo     { return &AnimalsRepo{s: s} }
func (s *Store) Adoptions() *AdoptionsRepo { return &AdoptionsRepo{s: s} }
func (s *Store) Users() *UsersRepo         { return &UsersRepo{s: s} }

func (s *Store) shard(animalID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(animalID))
	return &s.animalMu[h.Sum32()%lockShards]
}

// Los mapas guardan copias: nadie afuera comparte slices ni punteros con el store.

func cloneAnimal(a animals.Animal) animals.Animal {
	if a.Images != nil {
		a.Images = append([]string(nil), a.Images...)
	}
	if a.Age != nil {
		n := *a.Age
		a.Age = &n
	}
	return a
}

func cloneAdoption(a adoptions.Adoption) adoptions.Adoption {
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		a.ReviewedAt = &t
	}
	return a
}

func cloneUser(u users.User) users.User {
	if u.Location != nil {
		p := *u.Location
		u.Location = &p
	}
	return u
}
