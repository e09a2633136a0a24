package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/keepsakeapp/keepsake/internal/domain"
	"github.com/keepsakeapp/keepsake/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveRecorder captures every save the scheduler performs.
type saveRecorder struct {
	mu    sync.Mutex
	calls [][]domain.Book
	users []string
}

func (r *saveRecorder) save(_ context.Context, userID string, books []domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, books)
	r.users = append(r.users, userID)
	return nil
}

func (r *saveRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *saveRecorder) last() []domain.Book {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func newTestScheduler(t *testing.T, quiet time.Duration) (*Scheduler, *saveRecorder) {
	t.Helper()
	recorder := &saveRecorder{}
	log := logger.New(logger.Config{Level: slog.LevelDebug})
	scheduler := NewScheduler(recorder.save, quiet, log.Logger)
	t.Cleanup(scheduler.Stop)
	return scheduler, recorder
}

func booksNamed(t *testing.T, names ...string) []domain.Book {
	t.Helper()
	books := make([]domain.Book, 0, len(names))
	for _, name := range names {
		book, err := domain.NewBook(name, "#2c2c2c")
		require.NoError(t, err)
		books = append(books, *book)
	}
	return books
}

// waitForSaves polls until the recorder has at least n saves.
func waitForSaves(t *testing.T, recorder *saveRecorder, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for recorder.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d saves, got %d", n, recorder.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduler_CoalescesRapidMutations(t *testing.T) {
	scheduler, recorder := newTestScheduler(t, 50*time.Millisecond)
	scheduler.SetUser("user-001")
	scheduler.MarkLoaded()

	// Five rapid mutations inside one quiet period.
	for i := 1; i <= 5; i++ {
		scheduler.Notify(booksNamed(t, fmt.Sprintf("State %d", i)))
		time.Sleep(5 * time.Millisecond)
	}

	waitForSaves(t, recorder, 1)
	time.Sleep(100 * time.Millisecond)

	// Exactly one save, carrying the final state.
	assert.Equal(t, 1, recorder.count())
	require.Len(t, recorder.last(), 1)
	assert.Equal(t, "State 5", recorder.last()[0].Name)
}

func TestScheduler_DropsNotificationsWhenSignedOut(t *testing.T) {
	scheduler, recorder := newTestScheduler(t, 20*time.Millisecond)

	scheduler.Notify(booksNamed(t, "Orphan"))
	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, recorder.count())
}

func TestScheduler_DropsNotificationsBeforeLoad(t *testing.T) {
	scheduler, recorder := newTestScheduler(t, 20*time.Millisecond)
	scheduler.SetUser("user-001")

	// Signed in but initial load not finished: an empty snapshot here must
	// never reach storage.
	scheduler.Notify([]domain.Book{})
	time.Sleep(100 * time.Millisecond)

	assert.Zero(t, recorder.count())
}

func TestScheduler_EmptyCollectionSavesAfterLoad(t *testing.T) {
	scheduler, recorder := newTestScheduler(t, 20*time.Millisecond)
	scheduler.SetUser("user-001")
	scheduler.MarkLoaded()

	scheduler.Notify([]domain.Book{})

	waitForSaves(t, recorder, 1)
	assert.Empty(t, recorder.last())
}

func TestScheduler_SetUserDiscardsPending(t *testing.T) {
	scheduler, recorder := newTestScheduler(t, 50*time.Millisecond)
	scheduler.SetUser("user-001")
	scheduler.MarkLoaded()

	scheduler.Notify(booksNamed(t, "Mine"))
	scheduler.SetUser("user-002")

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, recorder.count())

	// The new user's gate is closed again until the next load.
	scheduler.Notify(booksNamed(t, "Theirs"))
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, recorder.count())
}

func TestScheduler_ExpiredTimerDoesNotStealReArmedSnapshot(t *testing.T) {
	scheduler, recorder := newTestScheduler(t, time.Hour)
	scheduler.SetUser("user-001")
	scheduler.MarkLoaded()

	scheduler.Notify(booksNamed(t, "First"))
	scheduler.mu.Lock()
	expired := scheduler.gen
	scheduler.mu.Unlock()

	// A fresh mutation re-arms the timer before the expired callback gets
	// the lock; the callback must then do nothing.
	scheduler.Notify(booksNamed(t, "Second"))
	scheduler.fire(expired)

	assert.Zero(t, recorder.count())

	// The re-armed snapshot is still pending with its full quiet period.
	require.NoError(t, scheduler.Flush(context.Background()))
	require.Equal(t, 1, recorder.count())
	assert.Equal(t, "Second", recorder.last()[0].Name)
}

func TestScheduler_Flush(t *testing.T) {
	scheduler, recorder := newTestScheduler(t, time.Hour)
	scheduler.SetUser("user-001")
	scheduler.MarkLoaded()

	scheduler.Notify(booksNamed(t, "Pending"))

	require.NoError(t, scheduler.Flush(context.Background()))
	require.Equal(t, 1, recorder.count())
	assert.Equal(t, "Pending", recorder.last()[0].Name)

	// Nothing left to save; flush again is a no-op.
	require.NoError(t, scheduler.Flush(context.Background()))
	assert.Equal(t, 1, recorder.count())
}

func TestScheduler_StopCancelsPending(t *testing.T) {
	scheduler, recorder := newTestScheduler(t, 30*time.Millisecond)
	scheduler.SetUser("user-001")
	scheduler.MarkLoaded()

	scheduler.Notify(booksNamed(t, "Doomed"))
	scheduler.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, recorder.count())
}
