package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
)

// Resolver looks up the effective template on every call. Nothing is cached,
// so a template edit applies immediately to entries still under review.
type Resolver struct {
	templates   schedule.TemplateRepository
	assignments schedule.AssignmentRepository
}

func NewResolver(templates schedule.TemplateRepository, assignments schedule.AssignmentRepository) *Resolver {
	return &Resolver{templates: templates, assignments: assignments}
}

// Resolve implements schedule.Resolver.
func (r *Resolver) Resolve(ctx context.Context, employeeID, siteID string, date time.Time) (schedule.Template, error) {
	asg, err := r.assignments.GetCurrent(ctx, employeeID, siteID, date)
	if err != nil {
		if errors.Is(err, schedule.ErrAssignmentNotFound) {
			return schedule.Flexible(siteID), nil
		}
		return schedule.Template{}, fmt.Errorf("failed to get current assignment: %w", err)
	}

	tpl, err := r.templateFor(ctx, asg)
	if err != nil {
		return schedule.Template{}, err
	}
	tpl.HourlyRate = asg.HourlyRate

	if !tpl.WorksOn(date) {
		off := schedule.Flexible(siteID)
		off.Source = schedule.SourceOffDay
		off.HourlyRate = asg.HourlyRate
		return off, nil
	}
	return tpl, nil
}

// templateFor prefers the live template. The snapshot frozen on the assignment
// is only used once the referenced template has been removed.
func (r *Resolver) templateFor(ctx context.Context, asg schedule.Assignment) (schedule.Template, error) {
	if asg.TemplateID != nil {
		tpl, err := r.templates.GetByID(ctx, *asg.TemplateID)
		if err == nil {
			tpl.Source = schedule.SourceAssignment
			return tpl, nil
		}
		if !errors.Is(err, schedule.ErrTemplateNotFound) {
			return schedule.Template{}, fmt.Errorf("failed to get template %s: %w", *asg.TemplateID, err)
		}
	}

	if asg.Snapshot != nil {
		snap := *asg.Snapshot
		snap.Source = schedule.SourceSnapshot
		return snap, nil
	}

	return schedule.Flexible(asg.SiteID), nil
}
