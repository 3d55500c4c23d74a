package schedule

import (
	"context"
	"time"
)

type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (Template, error)
	Upsert(ctx context.Context, template Template) (Template, error)
	List(ctx context.Context) ([]Template, error)

	// Delete removes the template. Assignments that referenced it fall back
	// to their snapshot.
	Delete(ctx context.Context, id string) error
}

type AssignmentRepository interface {
	// GetCurrent returns the assignment in effect for the employee at the site on date.
	// Returns ErrAssignmentNotFound when none applies.
	GetCurrent(ctx context.Context, employeeID, siteID string, date time.Time) (Assignment, error)
	Upsert(ctx context.Context, assignment Assignment) (Assignment, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]Assignment, error)
}
