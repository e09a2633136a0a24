package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/keepsakeapp/keepsake/internal/config"
	"github.com/keepsakeapp/keepsake/internal/logger"
	"github.com/keepsakeapp/keepsake/internal/media/importer"
	"github.com/keepsakeapp/keepsake/internal/store"
	booksync "github.com/keepsakeapp/keepsake/internal/sync"
)

// SchedulerHandle wraps the save scheduler with shutdown capability.
type SchedulerHandle struct {
	*booksync.Scheduler
}

// Shutdown implements do.Shutdownable. Pending work is flushed before the
// timer stops so edits made just before exit still reach storage.
func (h *SchedulerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := h.Flush(ctx)
	h.Stop()
	return err
}

// ProvideScheduler provides the debounced save scheduler.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	books := do.MustInvoke[*store.Books](i)

	quiet := cfg.Sync.QuietPeriod
	if quiet <= 0 {
		quiet = booksync.DefaultQuietPeriod
	}

	return &SchedulerHandle{
		Scheduler: booksync.NewScheduler(books.Save, quiet, log.Logger),
	}, nil
}

// ImporterHandle wraps the drop-folder importer. A nil Importer means the
// watch path is not configured and the importer is disabled.
type ImporterHandle struct {
	*importer.Importer
	cancel context.CancelFunc
}

// Enabled reports whether the importer is watching a directory.
func (h *ImporterHandle) Enabled() bool {
	return h.Importer != nil
}

// Shutdown implements do.Shutdownable.
func (h *ImporterHandle) Shutdown() error {
	if h.Importer == nil {
		return nil
	}
	h.cancel()
	return h.Stop()
}

// ProvideImporter provides the drop-folder photo importer.
func ProvideImporter(i do.Injector) (*ImporterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Import.WatchPath == "" {
		return &ImporterHandle{}, nil
	}

	im, err := importer.New(log.Logger, cfg.Import.SettleDelay)
	if err != nil {
		return nil, err
	}
	if err := im.Watch(cfg.Import.WatchPath); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go im.Start(ctx) //nolint:errcheck // Blocks until ctx is cancelled, never errors

	log.Info("Photo importer watching", "path", cfg.Import.WatchPath)
	return &ImporterHandle{Importer: im, cancel: cancel}, nil
}
