package schedule

import (
	"context"
	"time"
)

// Resolver returns the effective template for an employee at a site on a date.
// A missing assignment resolves to Flexible, never to an error.
type Resolver interface {
	Resolve(ctx context.Context, employeeID, siteID string, date time.Time) (Template, error)
}

// Service manages templates and assignments.
type Service interface {
	Resolver

	UpsertTemplate(ctx context.Context, req UpsertTemplateRequest) (Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	AssignTemplate(ctx context.Context, req AssignTemplateRequest) (Assignment, error)
	ListAssignments(ctx context.Context, employeeID string) ([]Assignment, error)
}
