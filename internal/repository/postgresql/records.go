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

// =============================================================================
// BREAKS
// =============================================================================

type breakRepository struct {
	db *database.DB
}

func NewBreakRepository(db *database.DB) timeentry.BreakRepository {
	return &breakRepository{db: db}
}

func (r *breakRepository) Create(ctx context.Context, b timeentry.BreakInterval) (timeentry.BreakInterval, error) {
	q := GetQuerier(ctx, r.db)

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO time_entry_breaks (id, entry_id, start_at, end_at, type, manual, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := q.Exec(ctx, query, b.ID, b.EntryID, b.Start, b.End, b.Type, b.Manual, b.CreatedAt); err != nil {
		if code, _ := pgErrorCode(err); code == codeForeignKeyViolation {
			return timeentry.BreakInterval{}, timeentry.ErrEntryNotFound
		}
		return timeentry.BreakInterval{}, fmt.Errorf("failed to create break: %w", err)
	}
	return b, nil
}

func (r *breakRepository) Close(ctx context.Context, id string, end time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE time_entry_breaks SET end_at = $2 WHERE id = $1`, id, end)
	if err != nil {
		return fmt.Errorf("failed to close break: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return timeentry.ErrBreakNotFound
	}
	return nil
}

func (r *breakRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM time_entry_breaks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete break: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return timeentry.ErrBreakNotFound
	}
	return nil
}

func (r *breakRepository) ListByEntry(ctx context.Context, entryID string) ([]timeentry.BreakInterval, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, entry_id, start_at, end_at, type, manual, created_at
		FROM time_entry_breaks
		WHERE entry_id = $1
		ORDER BY start_at ASC, created_at ASC`

	rows, err := q.Query(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list breaks: %w", err)
	}
	defer rows.Close()

	var breaks []timeentry.BreakInterval
	for rows.Next() {
		var b timeentry.BreakInterval
		if err := rows.Scan(&b.ID, &b.EntryID, &b.Start, &b.End, &b.Type, &b.Manual, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan break: %w", err)
		}
		breaks = append(breaks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating breaks: %w", err)
	}
	return breaks, nil
}

// =============================================================================
// REMINDER LOGS
// =============================================================================

type reminderRepository struct {
	db *database.DB
}

func NewReminderLogRepository(db *database.DB) timeentry.ReminderLogRepository {
	return &reminderRepository{db: db}
}

const reminderSelect = `
	SELECT l.id, l.entry_id, l.employee_id, l.type, l.sent_at, l.sms_sent, l.push_sent,
		l.minutes_overdue, l.delivery_error, a.acknowledged_at
	FROM reminder_logs l
	LEFT JOIN reminder_acknowledgements a ON a.reminder_id = l.id`

func scanReminder(row scanner) (timeentry.ReminderLog, error) {
	var l timeentry.ReminderLog
	err := row.Scan(
		&l.ID, &l.EntryID, &l.EmployeeID, &l.Type, &l.SentAt, &l.SMSSent, &l.PushSent,
		&l.MinutesOverdue, &l.DeliveryError, &l.AcknowledgedAt,
	)
	l.Acknowledged = l.AcknowledgedAt != nil
	return l, err
}

func (r *reminderRepository) Insert(ctx context.Context, log timeentry.ReminderLog) (timeentry.ReminderLog, error) {
	q := GetQuerier(ctx, r.db)

	if log.ID == "" {
		log.ID = uuid.NewString()
	}

	query := `
		INSERT INTO reminder_logs (
			id, entry_id, employee_id, type, sent_at, sms_sent, push_sent, minutes_overdue, delivery_error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := q.Exec(ctx, query,
		log.ID, log.EntryID, log.EmployeeID, log.Type, log.SentAt,
		log.SMSSent, log.PushSent, log.MinutesOverdue, log.DeliveryError,
	)
	if err != nil {
		switch code, _ := pgErrorCode(err); code {
		case codeForeignKeyViolation:
			return timeentry.ReminderLog{}, timeentry.ErrEntryNotFound
		case codeUniqueViolation:
			// a second auto-close notice lost the race
			return timeentry.ReminderLog{}, timeentry.ErrConcurrencyConflict
		}
		return timeentry.ReminderLog{}, fmt.Errorf("failed to insert reminder log: %w", err)
	}

	log.Acknowledged = false
	log.AcknowledgedAt = nil
	return log, nil
}

func (r *reminderRepository) GetByID(ctx context.Context, id string) (timeentry.ReminderLog, error) {
	q := GetQuerier(ctx, r.db)

	l, err := scanReminder(q.QueryRow(ctx, reminderSelect+` WHERE l.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timeentry.ReminderLog{}, timeentry.ErrReminderNotFound
		}
		return timeentry.ReminderLog{}, fmt.Errorf("failed to get reminder log: %w", err)
	}
	return l, nil
}

func (r *reminderRepository) ListByEntry(ctx context.Context, entryID string) ([]timeentry.ReminderLog, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, reminderSelect+` WHERE l.entry_id = $1 ORDER BY l.seq ASC`, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder logs: %w", err)
	}
	defer rows.Close()

	var logs []timeentry.ReminderLog
	for rows.Next() {
		l, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder logs: %w", err)
	}
	return logs, nil
}

func (r *reminderRepository) Acknowledge(ctx context.Context, logID string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO reminder_acknowledgements (reminder_id, acknowledged_at)
		VALUES ($1, $2)
		ON CONFLICT (reminder_id) DO NOTHING`

	if _, err := q.Exec(ctx, query, logID, at); err != nil {
		if code, _ := pgErrorCode(err); code == codeForeignKeyViolation {
			return timeentry.ErrReminderNotFound
		}
		return fmt.Errorf("failed to acknowledge reminder: %w", err)
	}
	return nil
}

// =============================================================================
// NOTES
// =============================================================================

type noteRepository struct {
	db *database.DB
}

func NewNoteRepository(db *database.DB) timeentry.NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Append(ctx context.Context, note timeentry.Note) (timeentry.Note, error) {
	q := GetQuerier(ctx, r.db)

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO time_entry_notes (id, entry_id, author, kind, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := q.Exec(ctx, query, note.ID, note.EntryID, note.Author, note.Kind, note.Text, note.CreatedAt); err != nil {
		if code, _ := pgErrorCode(err); code == codeForeignKeyViolation {
			return timeentry.Note{}, timeentry.ErrEntryNotFound
		}
		return timeentry.Note{}, fmt.Errorf("failed to append note: %w", err)
	}
	return note, nil
}

func (r *noteRepository) ListByEntry(ctx context.Context, entryID string) ([]timeentry.Note, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, entry_id, author, kind, text, created_at
		FROM time_entry_notes
		WHERE entry_id = $1
		ORDER BY seq ASC`

	rows, err := q.Query(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []timeentry.Note
	for rows.Next() {
		var n timeentry.Note
		if err := rows.Scan(&n.ID, &n.EntryID, &n.Author, &n.Kind, &n.Text, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}
