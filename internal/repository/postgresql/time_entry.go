package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type entryRepository struct {
	db *database.DB
}

func NewTimeEntryRepository(db *database.DB) timeentry.EntryRepository {
	return &entryRepository{db: db}
}

const entryColumns = `
	id, employee_id, site_id, clock_in, clock_out, punch_in_method, punch_out_method,
	status, approval, regular_hours, overtime_hours, break_minutes,
	punch_in_offset_minutes, is_late, punch_out_offset_minutes, requires_manual_verification,
	requires_supervisor_review, auto_close_reason, auto_close_rule, auto_closed_at,
	rejection_reason, verified_by, verified_at, disabled_by, disabled_at,
	version, created_at, updated_at`

func scanEntry(row scanner) (timeentry.TimeEntry, error) {
	var e timeentry.TimeEntry
	err := row.Scan(
		&e.ID, &e.EmployeeID, &e.SiteID, &e.ClockIn, &e.ClockOut, &e.PunchInMethod, &e.PunchOutMethod,
		&e.Status, &e.Approval, &e.RegularHours, &e.OvertimeHours, &e.BreakMinutes,
		&e.PunchInOffsetMinutes, &e.IsLate, &e.PunchOutOffsetMinutes, &e.RequiresManualVerification,
		&e.RequiresSupervisorReview, &e.AutoCloseReason, &e.AutoCloseRule, &e.AutoClosedAt,
		&e.RejectionReason, &e.VerifiedBy, &e.VerifiedAt, &e.DisabledBy, &e.DisabledAt,
		&e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func collectEntries(rows pgx.Rows) ([]timeentry.TimeEntry, error) {
	defer rows.Close()

	var entries []timeentry.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time entries: %w", err)
	}
	return entries, nil
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(err error) error {
	code, constraint := pgErrorCode(err)
	switch {
	case code == codeUniqueViolation && constraint == "time_entries_one_active":
		return timeentry.ErrOverlappingActiveEntry
	case code == codeCheckViolation && constraint == "time_entries_clock_out_after_in":
		return timeentry.ErrClockOutNotAfterClockIn
	}
	return err
}

// Create implements timeentry.EntryRepository.
func (r *entryRepository) Create(ctx context.Context, entry timeentry.TimeEntry) (timeentry.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO time_entries (
			id, employee_id, site_id, clock_in, clock_out, punch_in_method, punch_out_method,
			status, approval, regular_hours, overtime_hours, break_minutes,
			punch_in_offset_minutes, is_late, punch_out_offset_minutes, requires_manual_verification,
			requires_supervisor_review, auto_close_reason, auto_close_rule, auto_closed_at,
			rejection_reason, verified_by, verified_at, disabled_by, disabled_at,
			version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, 1, $26, $26
		)
		RETURNING ` + entryColumns

	created, err := scanEntry(q.QueryRow(ctx, query,
		entry.ID, entry.EmployeeID, entry.SiteID, entry.ClockIn, entry.ClockOut, entry.PunchInMethod, entry.PunchOutMethod,
		entry.Status, entry.Approval, entry.RegularHours, entry.OvertimeHours, entry.BreakMinutes,
		entry.PunchInOffsetMinutes, entry.IsLate, entry.PunchOutOffsetMinutes, entry.RequiresManualVerification,
		entry.RequiresSupervisorReview, entry.AutoCloseReason, entry.AutoCloseRule, entry.AutoClosedAt,
		entry.RejectionReason, entry.VerifiedBy, entry.VerifiedAt, entry.DisabledBy, entry.DisabledAt,
		entry.CreatedAt,
	))
	if err != nil {
		if mapped := mapWriteError(err); mapped != err {
			return timeentry.TimeEntry{}, mapped
		}
		return timeentry.TimeEntry{}, fmt.Errorf("failed to create time entry: %w", err)
	}
	return created, nil
}

func (r *entryRepository) getOne(ctx context.Context, query string, args ...any) (timeentry.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	e, err := scanEntry(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeentry.TimeEntry{}, timeentry.ErrEntryNotFound
		}
		return timeentry.TimeEntry{}, fmt.Errorf("failed to get time entry: %w", err)
	}
	return e, nil
}

// GetByID implements timeentry.EntryRepository.
func (r *entryRepository) GetByID(ctx context.Context, id string) (timeentry.TimeEntry, error) {
	return r.getOne(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = $1`, id)
}

// GetForUpdate implements timeentry.EntryRepository. Outside a transaction the
// row lock is released as soon as the statement finishes.
func (r *entryRepository) GetForUpdate(ctx context.Context, id string) (timeentry.TimeEntry, error) {
	return r.getOne(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = $1 FOR UPDATE`, id)
}

// GetActiveByEmployee implements timeentry.EntryRepository.
func (r *entryRepository) GetActiveByEmployee(ctx context.Context, employeeID string) (timeentry.TimeEntry, error) {
	query := `SELECT ` + entryColumns + `
		FROM time_entries
		WHERE employee_id = $1 AND status = 'active' AND disabled_at IS NULL`
	return r.getOne(ctx, query, employeeID)
}

// Update implements timeentry.EntryRepository.
func (r *entryRepository) Update(ctx context.Context, entry timeentry.TimeEntry) (timeentry.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE time_entries SET
			clock_out = $3, punch_out_method = $4, status = $5, approval = $6,
			regular_hours = $7, overtime_hours = $8, break_minutes = $9,
			punch_in_offset_minutes = $10, is_late = $11, punch_out_offset_minutes = $12,
			requires_manual_verification = $13, requires_supervisor_review = $14,
			auto_close_reason = $15, auto_close_rule = $16, auto_closed_at = $17,
			rejection_reason = $18, verified_by = $19, verified_at = $20,
			disabled_by = $21, disabled_at = $22,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + entryColumns

	updated, err := scanEntry(q.QueryRow(ctx, query,
		entry.ID, entry.Version,
		entry.ClockOut, entry.PunchOutMethod, entry.Status, entry.Approval,
		entry.RegularHours, entry.OvertimeHours, entry.BreakMinutes,
		entry.PunchInOffsetMinutes, entry.IsLate, entry.PunchOutOffsetMinutes,
		entry.RequiresManualVerification, entry.RequiresSupervisorReview,
		entry.AutoCloseReason, entry.AutoCloseRule, entry.AutoClosedAt,
		entry.RejectionReason, entry.VerifiedBy, entry.VerifiedAt,
		entry.DisabledBy, entry.DisabledAt,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if mapped := mapWriteError(err); mapped != err {
			return timeentry.TimeEntry{}, mapped
		}
		return timeentry.TimeEntry{}, fmt.Errorf("failed to update time entry: %w", err)
	}

	// no row matched: either the entry is gone or the version moved on
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM time_entries WHERE id = $1)`, entry.ID).Scan(&exists); err != nil {
		return timeentry.TimeEntry{}, fmt.Errorf("failed to check time entry: %w", err)
	}
	if !exists {
		return timeentry.TimeEntry{}, timeentry.ErrEntryNotFound
	}
	return timeentry.TimeEntry{}, timeentry.ErrConcurrencyConflict
}

// ListActive implements timeentry.EntryRepository.
func (r *entryRepository) ListActive(ctx context.Context) ([]timeentry.TimeEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + entryColumns + `
		FROM time_entries
		WHERE status = 'active' AND disabled_at IS NULL
		ORDER BY clock_in ASC, created_at ASC`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active time entries: %w", err)
	}
	return collectEntries(rows)
}

// List implements timeentry.EntryRepository. Newest first.
func (r *entryRepository) List(ctx context.Context, filter timeentry.EntryFilter) ([]timeentry.TimeEntry, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "WHERE 1=1"
	args := []any{}
	argIdx := 1

	if !filter.IncludeDisabled {
		baseWhere += " AND disabled_at IS NULL"
	}
	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.SiteID != nil && *filter.SiteID != "" {
		baseWhere += fmt.Sprintf(" AND site_id = $%d", argIdx)
		args = append(args, *filter.SiteID)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Approval != nil && *filter.Approval != "" {
		// approval is only meaningful on complete entries
		baseWhere += fmt.Sprintf(" AND status = 'complete' AND approval = $%d", argIdx)
		args = append(args, *filter.Approval)
		argIdx++
	}
	if filter.FromTime != nil {
		baseWhere += fmt.Sprintf(" AND clock_in >= $%d", argIdx)
		args = append(args, *filter.FromTime)
		argIdx++
	}
	if filter.ToTime != nil {
		baseWhere += fmt.Sprintf(" AND clock_in < $%d", argIdx)
		args = append(args, *filter.ToTime)
		argIdx++
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM time_entries " + baseWhere
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count time entries: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	dataQuery := fmt.Sprintf(`SELECT %s FROM time_entries %s
		ORDER BY clock_in DESC, created_at DESC
		LIMIT $%d OFFSET $%d`, entryColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list time entries: %w", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListPendingReview implements timeentry.EntryRepository. Oldest first.
func (r *entryRepository) ListPendingReview(ctx context.Context, filter timeentry.ReviewFilter) ([]timeentry.TimeEntry, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := `WHERE disabled_at IS NULL AND (
		requires_supervisor_review OR requires_manual_verification
		OR status = 'disputed'
		OR (status = 'complete' AND approval = 'pending'))`
	args := []any{}
	argIdx := 1

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.SiteID != nil && *filter.SiteID != "" {
		baseWhere += fmt.Sprintf(" AND site_id = $%d", argIdx)
		args = append(args, *filter.SiteID)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM time_entries "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count entries pending review: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	dataQuery := fmt.Sprintf(`SELECT %s FROM time_entries %s
		ORDER BY clock_in ASC, created_at ASC
		LIMIT $%d OFFSET $%d`, entryColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list entries pending review: %w", err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// HasOverlap implements timeentry.EntryRepository.
func (r *entryRepository) HasOverlap(ctx context.Context, employeeID string, from, to time.Time, excludeID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS(
			SELECT 1 FROM time_entries
			WHERE employee_id = $1
				AND id <> $4
				AND disabled_at IS NULL
				AND clock_in < $3
				AND (clock_out IS NULL OR clock_out > $2)
		)`

	var overlap bool
	if err := q.QueryRow(ctx, query, employeeID, from, to, excludeID).Scan(&overlap); err != nil {
		return false, fmt.Errorf("failed to check overlapping entries: %w", err)
	}
	return overlap, nil
}
