// Package main provides the entry point for the Keepsake app.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/keepsakeapp/keepsake/internal/auth"
	"github.com/keepsakeapp/keepsake/internal/di"
	"github.com/keepsakeapp/keepsake/internal/di/providers"
	"github.com/keepsakeapp/keepsake/internal/domain"
	"github.com/keepsakeapp/keepsake/internal/logger"
	"github.com/keepsakeapp/keepsake/internal/media/images"
	"github.com/keepsakeapp/keepsake/internal/media/importer"
	"github.com/keepsakeapp/keepsake/internal/service"
)

// importBookName is the book dropped photos land in.
const importBookName = "Imported"

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start keepsake: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Resume the persisted session, if any. The session service is already
	// subscribed, so a restored sign-in loads the collection.
	provider := do.MustInvoke[auth.Provider](injector)
	if local, ok := provider.(*auth.LocalProvider); ok {
		if err := local.Restore(context.Background()); err != nil {
			log.Warn("Failed to restore session", "error", err)
		}
	}

	// Feed drop-folder photos into the collection.
	importerHandle := do.MustInvoke[*providers.ImporterHandle](injector)
	if importerHandle.Enabled() {
		books := do.MustInvoke[*service.BookService](injector)
		processor := do.MustInvoke[*images.Processor](injector)
		go runImportLoop(importerHandle, books, processor, log)
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	// Shutdown all services in reverse order
	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// Handles not registered as do.Shutdownable dependencies of anything need
	// explicit cleanup.
	if searchHandle, err := do.Invoke[*providers.SearchIndexHandle](injector); err == nil {
		if err := searchHandle.Shutdown(); err != nil {
			log.Error("Failed to close search index", "error", err)
		}
	}
	if storeHandle, err := do.Invoke[*providers.StoreHandle](injector); err == nil {
		if err := storeHandle.Shutdown(); err != nil {
			log.Error("Failed to close store", "error", err)
		}
	}

	log.Info("Goodbye")
}

// runImportLoop drains the importer, compressing each dropped photo and
// adding it to the import book.
func runImportLoop(h *providers.ImporterHandle, books *service.BookService, processor *images.Processor, log *logger.Logger) {
	ctx := context.Background()
	for {
		select {
		case imp, ok := <-h.Imports():
			if !ok {
				return
			}
			if err := addImport(ctx, books, processor, imp); err != nil {
				log.Warn("Failed to import photo", "path", imp.Path, "error", err)
			} else {
				log.Info("Imported photo", "path", imp.Path)
			}
		case err, ok := <-h.Errors():
			if !ok {
				return
			}
			log.Warn("Importer error", "error", err)
		}
	}
}

// addImport compresses a dropped photo and places it on a page with room,
// creating the import book and a fresh page as needed.
func addImport(ctx context.Context, books *service.BookService, processor *images.Processor, imp importer.Import) error {
	compressed, err := processor.Compress(imp.Data)
	if err != nil {
		return err
	}

	book, err := findOrCreateImportBook(ctx, books)
	if err != nil {
		return err
	}

	page, err := findOrCreatePage(ctx, books, book)
	if err != nil {
		return err
	}

	_, err = books.AddPhoto(ctx, service.AddPhotoRequest{
		BookID: book.ID,
		PageID: page.ID,
		Image:  images.EncodeDataURI(compressed),
	})
	return err
}

func findOrCreateImportBook(ctx context.Context, books *service.BookService) (*domain.Book, error) {
	for _, book := range books.Books() {
		if book.Name == importBookName {
			return &book, nil
		}
	}
	return books.CreateBook(ctx, service.CreateBookRequest{Name: importBookName})
}

func findOrCreatePage(ctx context.Context, books *service.BookService, book *domain.Book) (*domain.Page, error) {
	for i := range book.Memories {
		if !book.Memories[i].IsFull() {
			return &book.Memories[i], nil
		}
	}
	return books.AddPage(ctx, book.ID, "")
}
