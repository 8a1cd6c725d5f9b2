package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/apperrors"
	"github.com/ekaya-inc/plantsync/pkg/config"
)

// Factory opens a Store from the storage configuration.
type Factory func(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (Store, error)

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "mssql", "postgres"
	DisplayName string `json:"display_name"` // "Microsoft SQL Server", "PostgreSQL"
}

// AdapterRegistration contains info + factory for opening a store.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetFactory returns the factory for a driver type.
// Returns nil if type is not registered.
func GetFactory(driver string) Factory {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[driver]; ok {
		return reg.Factory
	}
	return nil
}

// Open opens a store using the adapter registered for cfg.Driver.
func Open(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (Store, error) {
	factory := GetFactory(cfg.Driver)
	if factory == nil {
		available := make([]string, 0)
		for _, info := range RegisteredAdapters() {
			available = append(available, info.Type)
		}
		return nil, fmt.Errorf("%w: %q (registered: %s)",
			apperrors.ErrUnknownStorageDriver, cfg.Driver, strings.Join(available, ", "))
	}
	return factory(ctx, cfg, logger)
}
