// Package importer watches a drop folder and surfaces photos placed there.
//
// Files written into the watched folder are held until their size and mtime
// stop changing, so half-copied photos are never imported.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long a file must stay unchanged before import.
const DefaultSettleDelay = 500 * time.Millisecond

// photoExtensions are the file extensions the importer picks up. Matches the
// upload pipeline's accepted types, so GIFs dropped in the folder are skipped.
var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Import is a settled photo file ready to be added to a book.
type Import struct {
	Path    string
	Data    []byte
	Size    int64
	ModTime time.Time
}

// Importer implements the drop-folder watch loop using fsnotify with
// settle-delay debouncing.
type Importer struct {
	logger      *slog.Logger
	settleDelay time.Duration
	watcher     *fsnotify.Watcher

	pending map[string]*pendingFile // path -> pending file info
	mu      sync.Mutex              // protects pending map

	imports chan Import
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
}

// pendingFile tracks a file that may still be changing
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates an Importer watching nothing yet. Call Watch then Start.
func New(logger *slog.Logger, settleDelay time.Duration) (*Importer, error) {
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Importer{
		logger:      logger,
		settleDelay: settleDelay,
		watcher:     watcher,
		pending:     make(map[string]*pendingFile),
		imports:     make(chan Import, 100),
		errors:      make(chan error, 10),
		done:        make(chan struct{}),
	}, nil
}

// Watch adds a drop folder to be monitored.
func (im *Importer) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %s is not a directory", path)
	}

	if err := im.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to add watch: %w", err)
	}

	im.logger.Debug("watching drop folder", "path", path)
	return nil
}

// Start runs the watch loop until ctx is cancelled.
func (im *Importer) Start(ctx context.Context) error {
	im.wg.Add(1)
	go im.processEvents(ctx)

	<-ctx.Done()
	return nil
}

// processEvents processes fsnotify events
func (im *Importer) processEvents(ctx context.Context) {
	defer im.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-im.done:
			return
		case event, ok := <-im.watcher.Events:
			if !ok {
				return
			}
			im.handleFsnotifyEvent(event)
		case err, ok := <-im.watcher.Errors:
			if !ok {
				return
			}
			im.errors <- err
		}
	}
}

// handleFsnotifyEvent handles an fsnotify event with debouncing
func (im *Importer) handleFsnotifyEvent(event fsnotify.Event) {
	path := event.Name

	if !photoExtensions[strings.ToLower(filepath.Ext(path))] {
		return
	}

	if event.Op&fsnotify.Remove != 0 {
		im.cancelPending(path)
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		im.startSettling(path)
	}
}

// startSettling begins the settling process for a file
func (im *Importer) startSettling(path string) {
	im.mu.Lock()
	defer im.mu.Unlock()

	// Cancel existing timer if any
	if pending, exists := im.pending[path]; exists {
		pending.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		im.logger.Warn("failed to stat file", "path", path, "error", err)
		delete(im.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	pending := &pendingFile{
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	pending.timer = time.AfterFunc(im.settleDelay, func() {
		im.checkSettled(path)
	})

	im.pending[path] = pending
}

// checkSettled checks if a file has finished settling
func (im *Importer) checkSettled(path string) {
	im.mu.Lock()
	defer im.mu.Unlock()

	pending, exists := im.pending[path]
	if !exists {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// File was deleted before it settled
		delete(im.pending, path)
		return
	}

	// Still changing, restart timer
	if info.Size() != pending.size || info.ModTime() != pending.modTime {
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(im.settleDelay, func() {
			im.checkSettled(path)
		})
		return
	}

	delete(im.pending, path)

	data, err := os.ReadFile(path)
	if err != nil {
		im.logger.Warn("failed to read settled file", "path", path, "error", err)
		return
	}

	im.logger.Debug("photo settled", "path", path, "size", info.Size())

	im.emit(Import{
		Path:    path,
		Data:    data,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

// cancelPending cancels a pending import
func (im *Importer) cancelPending(path string) {
	im.mu.Lock()
	defer im.mu.Unlock()

	if pending, exists := im.pending[path]; exists {
		pending.timer.Stop()
		delete(im.pending, path)
	}
}

// emit sends an import to the imports channel
func (im *Importer) emit(imp Import) {
	select {
	case im.imports <- imp:
	case <-im.done:
	}
}

// Imports returns the channel of settled photo files.
func (im *Importer) Imports() <-chan Import {
	return im.imports
}

// Errors returns the errors channel
func (im *Importer) Errors() <-chan error {
	return im.errors
}

// Stop stops the importer.
func (im *Importer) Stop() error {
	close(im.done)

	// Cancel all pending timers
	im.mu.Lock()
	for _, pending := range im.pending {
		pending.timer.Stop()
	}
	clear(im.pending)
	im.mu.Unlock()

	im.watcher.Close()
	im.wg.Wait()

	close(im.imports)
	close(im.errors)

	return nil
}
