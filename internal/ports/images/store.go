package images

import (
	"context"
	"io"
)

// Store guarda una imagen y devuelve una URL estable (CDN / object storage).
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Upload es un archivo recibido en el alta de un animal.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}
