package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/google/uuid"
)

// =============================================================================
// BREAKS
// =============================================================================

type breakRepository struct {
	s *Store
}

func (r breakRepository) Create(ctx context.Context, b timeentry.BreakInterval) (timeentry.BreakInterval, error) {
	defer r.s.lock(ctx)()

	if _, ok := r.s.entries[b.EntryID]; !ok {
		return timeentry.BreakInterval{}, timeentry.ErrEntryNotFound
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	r.s.breaks[b.ID] = b
	r.s.nextSeq(b.ID)
	return b, nil
}

func (r breakRepository) Close(ctx context.Context, id string, end time.Time) error {
	defer r.s.lock(ctx)()

	b, ok := r.s.breaks[id]
	if !ok {
		return timeentry.ErrBreakNotFound
	}
	b.End = &end
	r.s.breaks[id] = b
	return nil
}

func (r breakRepository) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.breaks[id]; !ok {
		return timeentry.ErrBreakNotFound
	}
	delete(r.s.breaks, id)
	delete(r.s.order, id)
	return nil
}

func (r breakRepository) ListByEntry(ctx context.Context, entryID string) ([]timeentry.BreakInterval, error) {
	defer r.s.lock(ctx)()

	var out []timeentry.BreakInterval
	for _, b := range r.s.breaks {
		if b.EntryID == entryID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return r.s.order[out[i].ID] < r.s.order[out[j].ID]
	})
	return out, nil
}

// =============================================================================
// REMINDER LOGS
// =============================================================================

type reminderRepository struct {
	s *Store
}

func (r reminderRepository) Insert(ctx context.Context, log timeentry.ReminderLog) (timeentry.ReminderLog, error) {
	defer r.s.lock(ctx)()

	if _, ok := r.s.entries[log.EntryID]; !ok {
		return timeentry.ReminderLog{}, timeentry.ErrEntryNotFound
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.Acknowledged = false
	log.AcknowledgedAt = nil
	r.s.reminders[log.ID] = log
	r.s.nextSeq(log.ID)
	return log, nil
}

func (r reminderRepository) withAck(log timeentry.ReminderLog) timeentry.ReminderLog {
	if at, ok := r.s.acks[log.ID]; ok {
		log.Acknowledged = true
		log.AcknowledgedAt = &at
	}
	return log
}

func (r reminderRepository) GetByID(ctx context.Context, id string) (timeentry.ReminderLog, error) {
	defer r.s.lock(ctx)()

	log, ok := r.s.reminders[id]
	if !ok {
		return timeentry.ReminderLog{}, timeentry.ErrReminderNotFound
	}
	return r.withAck(log), nil
}

func (r reminderRepository) ListByEntry(ctx context.Context, entryID string) ([]timeentry.ReminderLog, error) {
	defer r.s.lock(ctx)()

	var out []timeentry.ReminderLog
	for _, log := range r.s.reminders {
		if log.EntryID == entryID {
			out = append(out, r.withAck(log))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.order[out[i].ID] < r.s.order[out[j].ID]
	})
	return out, nil
}

func (r reminderRepository) Acknowledge(ctx context.Context, logID string, at time.Time) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.reminders[logID]; !ok {
		return timeentry.ErrReminderNotFound
	}
	if _, done := r.s.acks[logID]; !done {
		r.s.acks[logID] = at
	}
	return nil
}

// =============================================================================
// NOTES
// =============================================================================

type noteRepository struct {
	s *Store
}

func (r noteRepository) Append(ctx context.Context, note timeentry.Note) (timeentry.Note, error) {
	defer r.s.lock(ctx)()

	if _, ok := r.s.entries[note.EntryID]; !ok {
		return timeentry.Note{}, timeentry.ErrEntryNotFound
	}
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	r.s.notes[note.ID] = note
	r.s.nextSeq(note.ID)
	return note, nil
}

func (r noteRepository) ListByEntry(ctx context.Context, entryID string) ([]timeentry.Note, error) {
	defer r.s.lock(ctx)()

	var out []timeentry.Note
	for _, n := range r.s.notes {
		if n.EntryID == entryID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.s.order[out[i].ID] < r.s.order[out[j].ID]
	})
	return out, nil
}
