package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/google/uuid"
)

type entryRepository struct {
	s *Store
}

// activeFor returns the id of the employee's active, non-disabled entry.
func (r entryRepository) activeFor(employeeID, excludeID string) (string, bool) {
	for id, e := range r.s.entries {
		if id == excludeID {
			continue
		}
		if e.EmployeeID == employeeID && e.Status == timeentry.StatusActive && !e.IsDisabled() {
			return id, true
		}
	}
	return "", false
}

// Create implements timeentry.EntryRepository.
func (r entryRepository) Create(ctx context.Context, entry timeentry.TimeEntry) (timeentry.TimeEntry, error) {
	defer r.s.lock(ctx)()

	if entry.Status == timeentry.StatusActive && !entry.IsDisabled() {
		if _, exists := r.activeFor(entry.EmployeeID, ""); exists {
			return timeentry.TimeEntry{}, timeentry.ErrOverlappingActiveEntry
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = entry.CreatedAt
	entry.Version = 1
	entry.Breaks = nil
	entry.Notes = nil

	r.s.entries[entry.ID] = entry
	r.s.nextSeq(entry.ID)
	return entry, nil
}

// GetByID implements timeentry.EntryRepository.
func (r entryRepository) GetByID(ctx context.Context, id string) (timeentry.TimeEntry, error) {
	defer r.s.lock(ctx)()

	e, ok := r.s.entries[id]
	if !ok {
		return timeentry.TimeEntry{}, timeentry.ErrEntryNotFound
	}
	return e, nil
}

// GetForUpdate implements timeentry.EntryRepository. Inside WithinTx the store
// mutex is already held, which is stronger than a row lock.
func (r entryRepository) GetForUpdate(ctx context.Context, id string) (timeentry.TimeEntry, error) {
	return r.GetByID(ctx, id)
}

// GetActiveByEmployee implements timeentry.EntryRepository.
func (r entryRepository) GetActiveByEmployee(ctx context.Context, employeeID string) (timeentry.TimeEntry, error) {
	defer r.s.lock(ctx)()

	id, ok := r.activeFor(employeeID, "")
	if !ok {
		return timeentry.TimeEntry{}, timeentry.ErrEntryNotFound
	}
	return r.s.entries[id], nil
}

// Update implements timeentry.EntryRepository.
func (r entryRepository) Update(ctx context.Context, entry timeentry.TimeEntry) (timeentry.TimeEntry, error) {
	defer r.s.lock(ctx)()

	stored, ok := r.s.entries[entry.ID]
	if !ok {
		return timeentry.TimeEntry{}, timeentry.ErrEntryNotFound
	}
	if stored.Version != entry.Version {
		return timeentry.TimeEntry{}, timeentry.ErrConcurrencyConflict
	}
	if entry.Status == timeentry.StatusActive && !entry.IsDisabled() {
		if _, exists := r.activeFor(entry.EmployeeID, entry.ID); exists {
			return timeentry.TimeEntry{}, timeentry.ErrOverlappingActiveEntry
		}
	}

	entry.Version++
	entry.CreatedAt = stored.CreatedAt
	entry.UpdatedAt = time.Now().UTC()
	entry.Breaks = nil
	entry.Notes = nil
	r.s.entries[entry.ID] = entry
	return entry, nil
}

// ListActive implements timeentry.EntryRepository.
func (r entryRepository) ListActive(ctx context.Context) ([]timeentry.TimeEntry, error) {
	defer r.s.lock(ctx)()

	var out []timeentry.TimeEntry
	for _, e := range r.s.entries {
		if e.Status == timeentry.StatusActive && !e.IsDisabled() {
			out = append(out, e)
		}
	}
	r.sortByClockIn(out, false)
	return out, nil
}

// List implements timeentry.EntryRepository. Results are newest first.
func (r entryRepository) List(ctx context.Context, filter timeentry.EntryFilter) ([]timeentry.TimeEntry, int64, error) {
	defer r.s.lock(ctx)()

	var matched []timeentry.TimeEntry
	for _, e := range r.s.entries {
		if matchesFilter(e, filter) {
			matched = append(matched, e)
		}
	}
	r.sortByClockIn(matched, true)
	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

func matchesFilter(e timeentry.TimeEntry, f timeentry.EntryFilter) bool {
	if !f.IncludeDisabled && e.IsDisabled() {
		return false
	}
	if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.SiteID != nil && e.SiteID != *f.SiteID {
		return false
	}
	if f.Status != nil && string(e.Status) != *f.Status {
		return false
	}
	if f.Approval != nil && (e.Status != timeentry.StatusComplete || string(e.Approval) != *f.Approval) {
		return false
	}
	if f.FromTime != nil && e.ClockIn.Before(*f.FromTime) {
		return false
	}
	if f.ToTime != nil && !e.ClockIn.Before(*f.ToTime) {
		return false
	}
	return true
}

// NeedsReview reports whether a supervisor has to act on the entry.
func NeedsReview(e timeentry.TimeEntry) bool {
	if e.IsDisabled() {
		return false
	}
	switch {
	case e.RequiresSupervisorReview, e.RequiresManualVerification:
		return true
	case e.Status == timeentry.StatusDisputed:
		return true
	case e.Status == timeentry.StatusComplete && e.Approval == timeentry.ApprovalPending:
		return true
	}
	return false
}

// ListPendingReview implements timeentry.EntryRepository. Oldest first.
func (r entryRepository) ListPendingReview(ctx context.Context, filter timeentry.ReviewFilter) ([]timeentry.TimeEntry, int64, error) {
	defer r.s.lock(ctx)()

	var matched []timeentry.TimeEntry
	for _, e := range r.s.entries {
		if !NeedsReview(e) {
			continue
		}
		if filter.EmployeeID != nil && e.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.SiteID != nil && e.SiteID != *filter.SiteID {
			continue
		}
		matched = append(matched, e)
	}
	r.sortByClockIn(matched, false)
	return paginate(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

// HasOverlap implements timeentry.EntryRepository.
func (r entryRepository) HasOverlap(ctx context.Context, employeeID string, from, to time.Time, excludeID string) (bool, error) {
	defer r.s.lock(ctx)()

	for id, e := range r.s.entries {
		if id == excludeID || e.EmployeeID != employeeID || e.IsDisabled() {
			continue
		}
		if !e.ClockIn.Before(to) {
			continue
		}
		if e.ClockOut == nil || e.ClockOut.After(from) {
			return true, nil
		}
	}
	return false, nil
}

func (r entryRepository) sortByClockIn(entries []timeentry.TimeEntry, desc bool) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.ClockIn.Equal(b.ClockIn) {
			if desc {
				return a.ClockIn.After(b.ClockIn)
			}
			return a.ClockIn.Before(b.ClockIn)
		}
		if desc {
			return r.s.order[a.ID] > r.s.order[b.ID]
		}
		return r.s.order[a.ID] < r.s.order[b.ID]
	})
}
