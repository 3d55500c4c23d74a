package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type templateRepository struct {
	s *Store
}

func (r templateRepository) GetByID(ctx context.Context, id string) (schedule.Template, error) {
	defer r.s.lock(ctx)()

	t, ok := r.s.templates[id]
	if !ok {
		return schedule.Template{}, schedule.ErrTemplateNotFound
	}
	return t, nil
}

func (r templateRepository) Upsert(ctx context.Context, t schedule.Template) (schedule.Template, error) {
	defer r.s.lock(ctx)()

	now := time.Now().UTC()
	if existing, ok := r.s.templates[t.ID]; ok {
		t.CreatedAt = existing.CreatedAt
	} else if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	t.Source = ""
	t.HourlyRate = decimal.Zero
	r.s.templates[t.ID] = t
	return t, nil
}

// Delete removes a template. Assignments keep their snapshot.
func (r templateRepository) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.templates[id]; !ok {
		return schedule.ErrTemplateNotFound
	}
	delete(r.s.templates, id)
	return nil
}

func (r templateRepository) List(ctx context.Context) ([]schedule.Template, error) {
	defer r.s.lock(ctx)()

	out := make([]schedule.Template, 0, len(r.s.templates))
	for _, t := range r.s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type assignmentRepository struct {
	s *Store
}

// GetCurrent picks the covering assignment with the latest start date.
func (r assignmentRepository) GetCurrent(ctx context.Context, employeeID, siteID string, date time.Time) (schedule.Assignment, error) {
	defer r.s.lock(ctx)()

	var (
		best  schedule.Assignment
		found bool
	)
	for _, a := range r.s.assignments {
		if a.EmployeeID != employeeID || a.SiteID != siteID || !a.CoversDate(date) {
			continue
		}
		if !found || a.StartDate.After(best.StartDate) ||
			(a.StartDate.Equal(best.StartDate) && r.s.order[a.ID] > r.s.order[best.ID]) {
			best, found = a, true
		}
	}
	if !found {
		return schedule.Assignment{}, schedule.ErrAssignmentNotFound
	}
	return best, nil
}

func (r assignmentRepository) Upsert(ctx context.Context, a schedule.Assignment) (schedule.Assignment, error) {
	defer r.s.lock(ctx)()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	if _, exists := r.s.assignments[a.ID]; !exists {
		r.s.nextSeq(a.ID)
	}
	r.s.assignments[a.ID] = a
	return a, nil
}

func (r assignmentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]schedule.Assignment, error) {
	defer r.s.lock(ctx)()

	var out []schedule.Assignment
	for _, a := range r.s.assignments {
		if a.EmployeeID == employeeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

// PINRepository stores bcrypt pin hashes keyed by employee.
type PINRepository struct {
	s *Store
}

// GetPINHash implements verification.PINStore.
func (r *PINRepository) GetPINHash(ctx context.Context, employeeID string) ([]byte, error) {
	defer r.s.lock(ctx)()

	h, ok := r.s.pins[employeeID]
	if !ok {
		return nil, verification.ErrPINNotSet
	}
	return h, nil
}

func (r *PINRepository) SetPINHash(ctx context.Context, employeeID string, hash []byte) error {
	defer r.s.lock(ctx)()

	r.s.pins[employeeID] = hash
	return nil
}
