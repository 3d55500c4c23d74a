// Package memory provides in-process implementations of the repositories,
// used by tests and by STORE=memory for local development.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store keeps every table in maps guarded by one mutex. A transaction holds
// the mutex for its whole duration, so transactions are fully serialized.
type Store struct {
	mu sync.Mutex

	entries     map[string]timeentry.TimeEntry
	breaks      map[string]timeentry.BreakInterval
	reminders   map[string]timeentry.ReminderLog
	acks        map[string]time.Time
	notes       map[string]timeentry.Note
	templates   map[string]schedule.Template
	assignments map[string]schedule.Assignment
	pins        map[string][]byte

	// seq orders rows that share a timestamp.
	seq   int64
	order map[string]int64
}

func NewStore() *Store {
	return &Store{
		entries:     make(map[string]timeentry.TimeEntry),
		breaks:      make(map[string]timeentry.BreakInterval),
		reminders:   make(map[string]timeentry.ReminderLog),
		acks:        make(map[string]time.Time),
		notes:       make(map[string]timeentry.Note),
		templates:   make(map[string]schedule.Template),
		assignments: make(map[string]schedule.Assignment),
		pins:        make(map[string][]byte),
		order:       make(map[string]int64),
	}
}

type txKey struct{ s *Store }

// lock acquires the store mutex unless ctx already runs inside this store's
// transaction, in which case the mutex is already held.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{s}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextSeq(id string) {
	s.seq++
	s.order[id] = s.seq
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type snapshot struct {
	entries     map[string]timeentry.TimeEntry
	breaks      map[string]timeentry.BreakInterval
	reminders   map[string]timeentry.ReminderLog
	acks        map[string]time.Time
	notes       map[string]timeentry.Note
	templates   map[string]schedule.Template
	assignments map[string]schedule.Assignment
	pins        map[string][]byte
	seq         int64
	order       map[string]int64
}

// Values are replaced on write and never mutated in place, so a shallow copy
// of each map is a consistent snapshot.
func (s *Store) snapshot() snapshot {
	return snapshot{
		entries:     maps.Clone(s.entries),
		breaks:      maps.Clone(s.breaks),
		reminders:   maps.Clone(s.reminders),
		acks:        maps.Clone(s.acks),
		notes:       maps.Clone(s.notes),
		templates:   maps.Clone(s.templates),
		assignments: maps.Clone(s.assignments),
		pins:        maps.Clone(s.pins),
		seq:         s.seq,
		order:       maps.Clone(s.order),
	}
}

func (s *Store) restore(snap snapshot) {
	s.entries = snap.entries
	s.breaks = snap.breaks
	s.reminders = snap.reminders
	s.acks = snap.acks
	s.notes = snap.notes
	s.templates = snap.templates
	s.assignments = snap.assignments
	s.pins = snap.pins
	s.seq = snap.seq
	s.order = snap.order
}

// WithinTx implements timeentry.TxManager. Changes made by fn are rolled back
// when it returns an error or panics. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{s}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{s}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// =============================================================================
// REPOSITORY VIEWS
// =============================================================================

func (s *Store) Entries() timeentry.EntryRepository { return entryRepository{s} }
func (s *Store) Breaks() timeentry.BreakRepository { return breakRepository{s} }
func (s *Store) Reminders() timeentry.ReminderLogRepository { return reminderRepository{s} }
func (s *Store) Notes() timeentry.NoteRepository { return noteRepository{s} }
func (s *Store) Templates() schedule.TemplateRepository { return templateRepository{s} }
func (s *Store) Assignments() schedule.AssignmentRepository { return assignmentRepository{s} }
func (s *Store) PINs() *PINRepository { return &PINRepository{s} }

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
