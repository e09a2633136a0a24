// Package sync schedules debounced saves of the scrapbook collection.
//
// Every mutation notifies the scheduler; the save runs only after a quiet
// period with no further mutations, so a burst of edits costs one write.
package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/keepsakeapp/keepsake/internal/domain"
)

// DefaultQuietPeriod is how long edits must stop before a save fires.
const DefaultQuietPeriod = 2 * time.Second

// saveTimeout bounds a single background save attempt.
const saveTimeout = 30 * time.Second

// SaveFunc persists a snapshot of the collection for a user.
type SaveFunc func(ctx context.Context, userID string, books []domain.Book) error

// Scheduler coalesces collection mutations into debounced saves. Saves are
// gated on a signed-in user and a completed initial load; notifications
// before either are dropped so an empty pre-load state can never overwrite
// stored data.
type Scheduler struct {
	save   SaveFunc
	quiet  time.Duration
	logger *slog.Logger

	mu         sync.Mutex
	timer      *time.Timer
	gen        uint64
	userID     string
	loaded     bool
	pending    []domain.Book
	hasPending bool
}

// NewScheduler creates a scheduler around the given save function.
func NewScheduler(save SaveFunc, quiet time.Duration, logger *slog.Logger) *Scheduler {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Scheduler{
		save:   save,
		quiet:  quiet,
		logger: logger,
	}
}

// SetUser switches the scheduler to a new user (or to signed-out with "").
// Any pending save for the previous user is discarded; the loaded gate
// resets until MarkLoaded is called again.
func (s *Scheduler) SetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.userID = userID
	s.loaded = false
	s.pending = nil
	s.hasPending = false
}

// MarkLoaded opens the save gate after the initial load completes. From this
// point an empty collection is a deliberate state and saves normally.
func (s *Scheduler) MarkLoaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
}

// Notify records the latest collection state and (re)arms the quiet-period
// timer. The scheduler takes ownership of books; callers pass a snapshot.
func (s *Scheduler) Notify(books []domain.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" || !s.loaded {
		s.logger.Debug("dropping save notification",
			"signed_in", s.userID != "",
			"loaded", s.loaded,
		)
		return
	}

	s.pending = books
	s.hasPending = true

	s.stopTimerLocked()
	gen := s.gen
	s.timer = time.AfterFunc(s.quiet, func() { s.fire(gen) })
}

// Flush saves any pending state immediately, cancelling the timer. Used on
// sign-out and shutdown so the last edits are not lost to the quiet period.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.stopTimerLocked()
	userID, books, has := s.userID, s.pending, s.hasPending
	s.pending = nil
	s.hasPending = false
	s.mu.Unlock()

	if !has {
		return nil
	}
	return s.save(ctx, userID, books)
}

// Stop cancels any pending save without running it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.pending = nil
	s.hasPending = false
}

// fire runs on timer expiry: take the pending snapshot and save it. A timer
// can expire and then lose the race to a Notify that re-arms; the generation
// check makes such an expired callback a no-op so the re-armed snapshot gets
// its full quiet period.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	userID, books, has := s.userID, s.pending, s.hasPending
	s.pending = nil
	s.hasPending = false
	s.timer = nil
	s.mu.Unlock()

	if !has || userID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.save(ctx, userID, books); err != nil {
		s.logger.Error("debounced save failed",
			"user_id", userID,
			"error", err,
		)
		return
	}

	s.logger.Debug("debounced save complete", "user_id", userID, "books", len(books))
}

// stopTimerLocked stops the armed timer, if any, and invalidates any expired
// callback still waiting on mu. Caller holds mu.
func (s *Scheduler) stopTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
