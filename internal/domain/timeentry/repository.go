package timeentry

import (
	"context"
	"time"
)

// TxManager runs fn inside a single transaction carried by ctx.
// Repository calls made with the inner ctx join that transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EntryRepository persists time entries. Breaks and notes are stored by their
// own repositories and are not loaded here.
type EntryRepository interface {
	// Create inserts a new entry. It returns ErrOverlappingActiveEntry when the
	// employee already holds an active, non-disabled entry.
	Create(ctx context.Context, entry TimeEntry) (TimeEntry, error)

	GetByID(ctx context.Context, id string) (TimeEntry, error)

	// GetForUpdate locks the entry row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (TimeEntry, error)

	// GetActiveByEmployee returns ErrEntryNotFound when no active entry exists.
	GetActiveByEmployee(ctx context.Context, employeeID string) (TimeEntry, error)

	// Update writes entry when the stored version still equals entry.Version and
	// returns it with the version bumped. A stale version yields ErrConcurrencyConflict.
	Update(ctx context.Context, entry TimeEntry) (TimeEntry, error)

	// ListActive returns every active, non-disabled entry.
	ListActive(ctx context.Context) ([]TimeEntry, error)

	List(ctx context.Context, filter EntryFilter) ([]TimeEntry, int64, error)
	ListPendingReview(ctx context.Context, filter ReviewFilter) ([]TimeEntry, int64, error)

	// HasOverlap reports whether a non-disabled entry of the employee intersects
	// [from, to). Open entries extend to infinity.
	HasOverlap(ctx context.Context, employeeID string, from, to time.Time, excludeID string) (bool, error)
}

type BreakRepository interface {
	Create(ctx context.Context, b BreakInterval) (BreakInterval, error)
	Close(ctx context.Context, id string, end time.Time) error
	Delete(ctx context.Context, id string) error
	ListByEntry(ctx context.Context, entryID string) ([]BreakInterval, error)
}

// ReminderLogRepository is insert-only. Acknowledgements are recorded in a
// separate table and joined back on read.
type ReminderLogRepository interface {
	Insert(ctx context.Context, log ReminderLog) (ReminderLog, error)
	GetByID(ctx context.Context, id string) (ReminderLog, error)
	ListByEntry(ctx context.Context, entryID string) ([]ReminderLog, error)

	// Acknowledge is idempotent; the first acknowledgement time is kept.
	Acknowledge(ctx context.Context, logID string, at time.Time) error
}

type NoteRepository interface {
	Append(ctx context.Context, note Note) (Note, error)
	ListByEntry(ctx context.Context, entryID string) ([]Note, error)
}
