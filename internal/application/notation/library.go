package notation

import (
	"context"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
)

// MonomerSource loads extra library monomers into a store, for example the
// PostgreSQL repository.
type MonomerSource interface {
	LoadInto(ctx context.Context, store *monomer.MemoryStore) (int, error)
}

// NewStore builds the shared monomer store: the standard library, then the
// YAML library at libraryPath when set, then each source in order.  Later
// layers replace earlier records with the same polymer type and id.
func NewStore(ctx context.Context, libraryPath string, logger logging.Logger, sources ...MonomerSource) (*monomer.MemoryStore, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	store := monomer.NewStandardStore()
	if libraryPath != "" {
		extra, err := monomer.LoadLibrary(libraryPath)
		if err != nil {
			return nil, err
		}
		if err := store.Merge(extra); err != nil {
			return nil, err
		}
		logger.Info("Monomer library loaded",
			logging.String("path", libraryPath),
			logging.Int("monomers", len(extra)))
	}
	for _, src := range sources {
		n, err := src.LoadInto(ctx, store)
		if err != nil {
			return nil, err
		}
		logger.Info("Monomers loaded from source", logging.Int("monomers", n))
	}
	return store, nil
}
