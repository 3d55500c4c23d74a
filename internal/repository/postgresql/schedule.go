package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// =============================================================================
// TEMPLATES
// =============================================================================

type templateRepository struct {
	db *database.DB
}

func NewTemplateRepository(db *database.DB) schedule.TemplateRepository {
	return &templateRepository{db: db}
}

const templateColumns = `
	id, name, site_id, timezone, start_time, end_time, weekdays,
	early_punch_allowed_minutes, late_punch_grace_minutes, break_minutes,
	break_paid, require_face_verification, auto_close, created_at, updated_at`

func scanTemplate(row scanner) (schedule.Template, error) {
	var (
		t          schedule.Template
		start, end string
		weekdays   []int16
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.SiteID, &t.Timezone, &start, &end, &weekdays,
		&t.EarlyPunchAllowedMinutes, &t.LatePunchGraceMinutes, &t.BreakMinutes,
		&t.BreakPaid, &t.RequireFaceVerification, &t.AutoClose, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return schedule.Template{}, err
	}
	if t.StartTime, err = schedule.ParseTimeOfDay(start); err != nil {
		return schedule.Template{}, err
	}
	if t.EndTime, err = schedule.ParseTimeOfDay(end); err != nil {
		return schedule.Template{}, err
	}
	for _, d := range weekdays {
		t.Weekdays = append(t.Weekdays, time.Weekday(d))
	}
	return t, nil
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (schedule.Template, error) {
	q := GetQuerier(ctx, r.db)

	t, err := scanTemplate(q.QueryRow(ctx, `SELECT `+templateColumns+` FROM schedule_templates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Template{}, schedule.ErrTemplateNotFound
		}
		return schedule.Template{}, fmt.Errorf("failed to get schedule template: %w", err)
	}
	return t, nil
}

func (r *templateRepository) Upsert(ctx context.Context, t schedule.Template) (schedule.Template, error) {
	q := GetQuerier(ctx, r.db)

	weekdays := make([]int16, 0, len(t.Weekdays))
	for _, d := range t.Weekdays {
		weekdays = append(weekdays, int16(d))
	}

	query := `
		INSERT INTO schedule_templates (
			id, name, site_id, timezone, start_time, end_time, weekdays,
			early_punch_allowed_minutes, late_punch_grace_minutes, break_minutes,
			break_paid, require_face_verification, auto_close
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			site_id = EXCLUDED.site_id,
			timezone = EXCLUDED.timezone,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			weekdays = EXCLUDED.weekdays,
			early_punch_allowed_minutes = EXCLUDED.early_punch_allowed_minutes,
			late_punch_grace_minutes = EXCLUDED.late_punch_grace_minutes,
			break_minutes = EXCLUDED.break_minutes,
			break_paid = EXCLUDED.break_paid,
			require_face_verification = EXCLUDED.require_face_verification,
			auto_close = EXCLUDED.auto_close,
			updated_at = NOW()
		RETURNING ` + templateColumns

	saved, err := scanTemplate(q.QueryRow(ctx, query,
		t.ID, t.Name, t.SiteID, t.Timezone, t.StartTime.String(), t.EndTime.String(), weekdays,
		t.EarlyPunchAllowedMinutes, t.LatePunchGraceMinutes, t.BreakMinutes,
		t.BreakPaid, t.RequireFaceVerification, t.AutoClose,
	))
	if err != nil {
		return schedule.Template{}, fmt.Errorf("failed to upsert schedule template: %w", err)
	}
	return saved, nil
}

func (r *templateRepository) List(ctx context.Context) ([]schedule.Template, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+templateColumns+` FROM schedule_templates ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule templates: %w", err)
	}
	defer rows.Close()

	var templates []schedule.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule templates: %w", err)
	}
	return templates, nil
}

// Delete removes a template. Assignments keep their snapshot.
func (r *templateRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM schedule_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return schedule.ErrTemplateNotFound
	}
	return nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

type assignmentRepository struct {
	db *database.DB
}

func NewAssignmentRepository(db *database.DB) schedule.AssignmentRepository {
	return &assignmentRepository{db: db}
}

const assignmentColumns = `
	id, employee_id, site_id, template_id, snapshot, hourly_rate,
	start_date, end_date, created_at, updated_at`

func scanAssignment(row scanner) (schedule.Assignment, error) {
	var a schedule.Assignment
	err := row.Scan(
		&a.ID, &a.EmployeeID, &a.SiteID, &a.TemplateID, &a.Snapshot, &a.HourlyRate,
		&a.StartDate, &a.EndDate, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// GetCurrent picks the covering assignment with the latest start date.
func (r *assignmentRepository) GetCurrent(ctx context.Context, employeeID, siteID string, date time.Time) (schedule.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + assignmentColumns + `
		FROM schedule_assignments
		WHERE employee_id = $1 AND site_id = $2
			AND start_date <= $3::date
			AND (end_date IS NULL OR end_date >= $3::date)
		ORDER BY start_date DESC, created_at DESC
		LIMIT 1`

	day := date.Format("2006-01-02")
	a, err := scanAssignment(q.QueryRow(ctx, query, employeeID, siteID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Assignment{}, schedule.ErrAssignmentNotFound
		}
		return schedule.Assignment{}, fmt.Errorf("failed to get schedule assignment: %w", err)
	}
	return a, nil
}

func (r *assignmentRepository) Upsert(ctx context.Context, a schedule.Assignment) (schedule.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	var endDate *string
	if a.EndDate != nil {
		d := a.EndDate.Format("2006-01-02")
		endDate = &d
	}

	query := `
		INSERT INTO schedule_assignments (
			id, employee_id, site_id, template_id, snapshot, hourly_rate, start_date, end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8::date)
		ON CONFLICT (id) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			site_id = EXCLUDED.site_id,
			template_id = EXCLUDED.template_id,
			snapshot = EXCLUDED.snapshot,
			hourly_rate = EXCLUDED.hourly_rate,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = NOW()
		RETURNING ` + assignmentColumns

	saved, err := scanAssignment(q.QueryRow(ctx, query,
		a.ID, a.EmployeeID, a.SiteID, a.TemplateID, a.Snapshot, a.HourlyRate,
		a.StartDate.Format("2006-01-02"), endDate,
	))
	if err != nil {
		return schedule.Assignment{}, fmt.Errorf("failed to upsert schedule assignment: %w", err)
	}
	return saved, nil
}

func (r *assignmentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]schedule.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + assignmentColumns + `
		FROM schedule_assignments
		WHERE employee_id = $1
		ORDER BY start_date ASC, created_at ASC`

	rows, err := q.Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule assignments: %w", err)
	}
	defer rows.Close()

	var assignments []schedule.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule assignments: %w", err)
	}
	return assignments, nil
}

// =============================================================================
// PINS
// =============================================================================

// PINRepository stores bcrypt pin hashes keyed by employee.
type PINRepository struct {
	db *database.DB
}

func NewPINRepository(db *database.DB) *PINRepository {
	return &PINRepository{db: db}
}

// GetPINHash implements verification.PINStore.
func (r *PINRepository) GetPINHash(ctx context.Context, employeeID string) ([]byte, error) {
	q := GetQuerier(ctx, r.db)

	var hash []byte
	err := q.QueryRow(ctx, `SELECT pin_hash FROM employee_pins WHERE employee_id = $1`, employeeID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, verification.ErrPINNotSet
		}
		return nil, fmt.Errorf("failed to get pin hash: %w", err)
	}
	return hash, nil
}

func (r *PINRepository) SetPINHash(ctx context.Context, employeeID string, hash []byte) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employee_pins (employee_id, pin_hash)
		VALUES ($1, $2)
		ON CONFLICT (employee_id) DO UPDATE SET pin_hash = EXCLUDED.pin_hash, updated_at = NOW()`

	if _, err := q.Exec(ctx, query, employeeID, hash); err != nil {
		return fmt.Errorf("failed to set pin hash: %w", err)
	}
	return nil
}
