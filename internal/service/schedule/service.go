package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ScheduleServiceImpl struct {
	*Resolver
	schedule.TemplateRepository
	schedule.AssignmentRepository
	now func() time.Time
}

func NewScheduleService(
	templateRepo schedule.TemplateRepository,
	assignmentRepo schedule.AssignmentRepository,
	now func() time.Time,
) *ScheduleServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &ScheduleServiceImpl{
		Resolver:             NewResolver(templateRepo, assignmentRepo),
		TemplateRepository:   templateRepo,
		AssignmentRepository: assignmentRepo,
		now:                  now,
	}
}

// UpsertTemplate implements schedule.Service.
func (s *ScheduleServiceImpl) UpsertTemplate(ctx context.Context, req schedule.UpsertTemplateRequest) (schedule.Template, error) {
	if err := req.Validate(); err != nil {
		return schedule.Template{}, err
	}

	tpl := req.ToTemplate()
	if err := tpl.Validate(); err != nil {
		return schedule.Template{}, err
	}

	tpl.UpdatedAt = s.now().UTC()
	saved, err := s.TemplateRepository.Upsert(ctx, tpl)
	if err != nil {
		return schedule.Template{}, fmt.Errorf("failed to upsert template: %w", err)
	}
	return saved, nil
}

// ListTemplates implements schedule.Service.
func (s *ScheduleServiceImpl) ListTemplates(ctx context.Context) ([]schedule.Template, error) {
	templates, err := s.TemplateRepository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// DeleteTemplate implements schedule.Service.
func (s *ScheduleServiceImpl) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.TemplateRepository.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// AssignTemplate implements schedule.Service. The template is copied onto the
// assignment as a snapshot for the case where it is later removed.
func (s *ScheduleServiceImpl) AssignTemplate(ctx context.Context, req schedule.AssignTemplateRequest) (schedule.Assignment, error) {
	if err := req.Validate(); err != nil {
		return schedule.Assignment{}, err
	}

	tpl, err := s.TemplateRepository.GetByID(ctx, req.TemplateID)
	if err != nil {
		return schedule.Assignment{}, err
	}

	start, _ := time.Parse("2006-01-02", req.StartDate)
	var end *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		e, _ := time.Parse("2006-01-02", *req.EndDate)
		end = &e
	}
	rate, _ := decimal.NewFromString(req.HourlyRate)

	now := s.now().UTC()
	snapshot := tpl
	templateID := tpl.ID
	asg := schedule.Assignment{
		ID:         uuid.NewString(),
		EmployeeID: req.EmployeeID,
		SiteID:     req.SiteID,
		TemplateID: &templateID,
		Snapshot:   &snapshot,
		HourlyRate: rate,
		StartDate:  start,
		EndDate:    end,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	saved, err := s.AssignmentRepository.Upsert(ctx, asg)
	if err != nil {
		return schedule.Assignment{}, fmt.Errorf("failed to save assignment: %w", err)
	}
	return saved, nil
}

// ListAssignments implements schedule.Service.
func (s *ScheduleServiceImpl) ListAssignments(ctx context.Context, employeeID string) ([]schedule.Assignment, error) {
	assignments, err := s.AssignmentRepository.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}
