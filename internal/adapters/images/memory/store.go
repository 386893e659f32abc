// Package memory es el image store de modo dev: guarda los bytes en memoria y
// devuelve URLs bajo una base configurable.
package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

const DefaultBaseURL = "http://localhost:8080/images"

type Object struct {
	Data        []byte
	ContentType string
}

type Store struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

func New(baseURL string) *Store {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("image key required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.objects[key] = Object{Data: data, ContentType: contentType}
	s.mu.Unlock()

	return s.baseURL + "/" + key, nil
}

func (s *Store) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
