package storage

import (
	"context"
	"fmt"

	"github.com/printdesk/printdesk/internal/config"
)

// FromConfig opens the store selected by cfg.Storage.Backend.
func FromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case "", config.BackendDisk:
		return NewDiskStore(cfg.UploadPath(), cfg.Storage.MaxUploadSize)
	case config.BackendS3:
		return NewS3FromConfig(ctx, S3Options{
			Bucket:   cfg.Storage.S3.Bucket,
			Prefix:   cfg.Storage.S3.Prefix,
			Region:   cfg.Storage.S3.Region,
			Endpoint: cfg.Storage.S3.Endpoint,
			MaxSize:  cfg.Storage.MaxUploadSize,
		})
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
}
