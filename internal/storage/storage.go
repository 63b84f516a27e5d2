// Package storage picks and connects the object storage backend for images
package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/UnendingLoop/ImageStore/internal/storage/miniostorage"
	"github.com/UnendingLoop/ImageStore/internal/storage/s3storage"
	"github.com/wb-go/wbf/config"
)

const (
	BackendMinio = "minio"
	BackendS3    = "s3"
)

// ImgStorage - common contract of all backends
type ImgStorage interface {
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// NewImgStorage connects to the backend named by STORAGE_BACKEND, retrying every delay
// until it succeeds or ctx is done.
func NewImgStorage(ctx context.Context, cfg *config.Config, delay time.Duration) (ImgStorage, error) {
	backend := cfg.GetString("STORAGE_BACKEND")
	if backend == "" {
		backend = BackendMinio
	}

	connect, err := connector(backend)
	if err != nil {
		return nil, err
	}

	for {
		log.Printf("Connecting to IMG-storage (%s)...", backend)
		client, err := connect(cfg)
		if err == nil {
			log.Println("Successfully connected IMG-storage!")
			return client, nil
		}
		log.Printf("Failed to init connection to IMG-storage: %v\nNext retry in %v...", err, delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func connector(backend string) (func(*config.Config) (ImgStorage, error), error) {
	switch backend {
	case BackendMinio:
		return func(cfg *config.Config) (ImgStorage, error) {
			return miniostorage.NewMinioClient(cfg)
		}, nil
	case BackendS3:
		return func(cfg *config.Config) (ImgStorage, error) {
			return s3storage.NewS3Client(cfg)
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
