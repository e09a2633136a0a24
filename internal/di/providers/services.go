package providers

import (
	"github.com/samber/do/v2"

	"github.com/keepsakeapp/keepsake/internal/auth"
	"github.com/keepsakeapp/keepsake/internal/logger"
	"github.com/keepsakeapp/keepsake/internal/media/images"
	"github.com/keepsakeapp/keepsake/internal/service"
	"github.com/keepsakeapp/keepsake/internal/store"
	"github.com/keepsakeapp/keepsake/internal/validation"
)

// ProvideValidator provides the struct validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideBookService provides the book collection service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	books := do.MustInvoke[*store.Books](i)
	scheduler := do.MustInvoke[*SchedulerHandle](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	processor := do.MustInvoke[*images.Processor](i)
	originals := do.MustInvoke[*images.Storage](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return service.NewBookService(
		books,
		scheduler.Scheduler,
		index.SearchIndex,
		processor,
		originals,
		validator,
		log.Logger,
	), nil
}

// SessionServiceHandle wraps the session service with shutdown capability.
type SessionServiceHandle struct {
	*service.SessionService
}

// Shutdown implements do.Shutdownable.
func (h *SessionServiceHandle) Shutdown() error {
	ctx, cancel := contextWithShutdownTimeout()
	defer cancel()
	return h.SessionService.Shutdown(ctx)
}

// ProvideSessionService provides the session service, wired to auth state.
func ProvideSessionService(i do.Injector) (*SessionServiceHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	provider := do.MustInvoke[auth.Provider](i)
	books := do.MustInvoke[*service.BookService](i)
	validator := do.MustInvoke[*validation.Validator](i)

	return &SessionServiceHandle{
		SessionService: service.NewSessionService(provider, books, validator, log.Logger),
	}, nil
}
