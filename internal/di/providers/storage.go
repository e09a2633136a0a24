package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/keepsakeapp/keepsake/internal/config"
	"github.com/keepsakeapp/keepsake/internal/logger"
	"github.com/keepsakeapp/keepsake/internal/media/images"
	"github.com/keepsakeapp/keepsake/internal/store"
)

// StoreHandle wraps the local store with shutdown capability.
type StoreHandle struct {
	*store.Local
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the local document store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "db")
	local, err := store.NewLocal(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Local store initialized", "path", dbPath)
	return &StoreHandle{Local: local}, nil
}

// ProvideBackend selects the document backend: the hosted sync service when a
// remote URL is configured, the local store otherwise.
func ProvideBackend(i do.Injector) (store.Backend, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Remote.URL != "" {
		log.Info("Using remote document backend", "url", cfg.Remote.URL)
		return store.NewRemote(cfg.Remote.URL, cfg.Remote.APIKey, cfg.Remote.Timeout, log.Logger), nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	log.Info("Using local document backend")
	return storeHandle.Local, nil
}

// ProvideBooks provides the validating document gateway.
func ProvideBooks(i do.Injector) (*store.Books, error) {
	log := do.MustInvoke[*logger.Logger](i)
	backend := do.MustInvoke[store.Backend](i)

	return store.NewBooks(backend, log.Logger), nil
}

// ProvideImageStorage provides on-disk storage for photo originals, kept
// under {data}/originals.
func ProvideImageStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return images.NewStorage(cfg.Data.BasePath)
}

// ProvideImageProcessor provides the image validation and compression pipeline.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := images.DefaultOptions()
	if cfg.Image.MaxWidth > 0 {
		opts.MaxWidth = cfg.Image.MaxWidth
	}
	if cfg.Image.Quality > 0 {
		opts.Quality = cfg.Image.Quality
	}

	return images.NewProcessor(opts, log.Logger), nil
}
