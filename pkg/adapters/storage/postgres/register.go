package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/config"
)

func init() {
	storage.Register(storage.AdapterRegistration{
		Info: storage.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
		},
		Factory: func(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (storage.Store, error) {
			return NewStore(ctx, FromStorageConfig(cfg), logger)
		},
	})
}
