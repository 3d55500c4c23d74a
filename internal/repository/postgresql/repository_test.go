package postgresql_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
	"github.com/cmlabs-hris/timecard-backend-go/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// every table. Tests are skipped when the variable is unset.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn, database.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	require.NoError(t, postgresql.Migrate(ctx, db))

	_, err = db.Exec(ctx, `TRUNCATE TABLE
		time_entry_notes, reminder_acknowledgements, reminder_logs, time_entry_breaks,
		time_entries, schedule_assignments, schedule_templates, employee_pins CASCADE`)
	require.NoError(t, err)
	return db
}

func at(h, m int) time.Time {
	return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC)
}

func newActive(employeeID string, clockIn time.Time) timeentry.TimeEntry {
	return timeentry.TimeEntry{
		EmployeeID:    employeeID,
		SiteID:        "site-1",
		ClockIn:       clockIn,
		PunchInMethod: timeentry.MethodBiometric,
		Status:        timeentry.StatusActive,
		Approval:      timeentry.ApprovalPending,
	}
}

// ===== TIME ENTRY TESTS =====

func TestEntryRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := postgresql.NewTimeEntryRepository(db)
	ctx := context.Background()

	// Act
	created, err := repo.Create(ctx, newActive("emp-1", at(8, 0)))

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.ClockIn.Equal(at(8, 0)))
	assert.Nil(t, got.ClockOut)
	assert.Nil(t, got.RegularHours)
	assert.Equal(t, timeentry.MethodBiometric, got.PunchInMethod)

	active, err := repo.GetActiveByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, active.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, timeentry.ErrEntryNotFound)
}

func TestEntryRepository_OneActivePerEmployee(t *testing.T) {
	db := openTestDB(t)
	repo := postgresql.NewTimeEntryRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, newActive("emp-1", at(8, 0)))
	require.NoError(t, err)

	// Act
	_, err = repo.Create(ctx, newActive("emp-1", at(9, 0)))

	// Assert
	assert.ErrorIs(t, err, timeentry.ErrOverlappingActiveEntry)

	_, err = repo.Create(ctx, newActive("emp-2", at(9, 0)))
	assert.NoError(t, err)
}

func TestEntryRepository_ConcurrentCreate(t *testing.T) {
	db := openTestDB(t)
	repo := postgresql.NewTimeEntryRepository(db)
	ctx := context.Background()

	const n = 8
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Create(ctx, newActive("emp-1", at(8, 0))); err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
}

func TestEntryRepository_UpdateVersionCheck(t *testing.T) {
	db := openTestDB(t)
	repo := postgresql.NewTimeEntryRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newActive("emp-1", at(8, 0)))
	require.NoError(t, err)

	out := at(17, 0)
	method := timeentry.MethodPIN
	regular := decimal.RequireFromString("8.00")
	overtime := decimal.Zero
	breakMins := 60

	next := created
	next.ClockOut = &out
	next.PunchOutMethod = &method
	next.Status = timeentry.StatusComplete
	next.RegularHours = &regular
	next.OvertimeHours = &overtime
	next.BreakMinutes = &breakMins

	// Act
	updated, err := repo.Update(ctx, next)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	require.NotNil(t, updated.RegularHours)
	assert.True(t, updated.RegularHours.Equal(regular))
	assert.Equal(t, timeentry.MethodPIN, *updated.PunchOutMethod)

	// the stale copy still carries version 1
	_, err = repo.Update(ctx, next)
	assert.ErrorIs(t, err, timeentry.ErrConcurrencyConflict)

	missing := next
	missing.ID = "missing"
	_, err = repo.Update(ctx, missing)
	assert.ErrorIs(t, err, timeentry.ErrEntryNotFound)
}

func TestEntryRepository_HasOverlap(t *testing.T) {
	db := openTestDB(t)
	repo := postgresql.NewTimeEntryRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newActive("emp-1", at(8, 0)))
	require.NoError(t, err)
	out := at(12, 0)
	created.ClockOut = &out
	created.Status = timeentry.StatusComplete
	_, err = repo.Update(ctx, created)
	require.NoError(t, err)

	tests := []struct {
		name     string
		from, to time.Time
		exclude  string
		want     bool
	}{
		{"inside", at(9, 0), at(10, 0), "", true},
		{"touching end", at(12, 0), at(13, 0), "", false},
		{"before", at(6, 0), at(8, 0), "", false},
		{"excluded", at(9, 0), at(10, 0), created.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.HasOverlap(ctx, "emp-1", tt.from, tt.to, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntryRepository_ListAndReview(t *testing.T) {
	db := openTestDB(t)
	repo := postgresql.NewTimeEntryRepository(db)
	ctx := context.Background()

	first, err := repo.Create(ctx, newActive("emp-1", at(8, 0)))
	require.NoError(t, err)
	out := at(16, 0)
	first.ClockOut = &out
	first.Status = timeentry.StatusComplete
	_, err = repo.Update(ctx, first)
	require.NoError(t, err)

	_, err = repo.Create(ctx, newActive("emp-1", at(18, 0)))
	require.NoError(t, err)

	employee := "emp-1"
	entries, total, err := repo.List(ctx, timeentry.EntryFilter{EmployeeID: &employee, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].ClockIn.Equal(at(18, 0)), "newest first")

	pending, total, err := repo.ListPendingReview(ctx, timeentry.ReviewFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestTxManager_RollsBack(t *testing.T) {
	db := openTestDB(t)
	tx := postgresql.NewTxManager(db)
	repo := postgresql.NewTimeEntryRepository(db)
	ctx := context.Background()

	// Act
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, newActive("emp-1", at(8, 0))); err != nil {
			return err
		}
		return timeentry.ErrForbidden
	})

	// Assert
	assert.ErrorIs(t, err, timeentry.ErrForbidden)
	_, err = repo.GetActiveByEmployee(ctx, "emp-1")
	assert.ErrorIs(t, err, timeentry.ErrEntryNotFound)
}

// ===== RECORD TESTS =====

func TestReminderRepository_Acknowledge(t *testing.T) {
	db := openTestDB(t)
	entries := postgresql.NewTimeEntryRepository(db)
	reminders := postgresql.NewReminderLogRepository(db)
	ctx := context.Background()

	e, err := entries.Create(ctx, newActive("emp-1", at(8, 0)))
	require.NoError(t, err)

	log, err := reminders.Insert(ctx, timeentry.ReminderLog{
		EntryID: e.ID, EmployeeID: "emp-1", Type: timeentry.ReminderFirst,
		SentAt: at(17, 30), PushSent: true, MinutesOverdue: 30,
	})
	require.NoError(t, err)

	// Act
	require.NoError(t, reminders.Acknowledge(ctx, log.ID, at(17, 35)))
	require.NoError(t, reminders.Acknowledge(ctx, log.ID, at(17, 50)))

	// Assert
	got, err := reminders.GetByID(ctx, log.ID)
	require.NoError(t, err)
	assert.True(t, got.Acknowledged)
	assert.True(t, got.AcknowledgedAt.Equal(at(17, 35)), "first acknowledgement wins")

	assert.ErrorIs(t, reminders.Acknowledge(ctx, "missing", at(18, 0)), timeentry.ErrReminderNotFound)

	list, err := reminders.ListByEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBreakAndNoteRepositories(t *testing.T) {
	db := openTestDB(t)
	entries := postgresql.NewTimeEntryRepository(db)
	breaks := postgresql.NewBreakRepository(db)
	notes := postgresql.NewNoteRepository(db)
	ctx := context.Background()

	e, err := entries.Create(ctx, newActive("emp-1", at(8, 0)))
	require.NoError(t, err)

	b, err := breaks.Create(ctx, timeentry.BreakInterval{EntryID: e.ID, Start: at(12, 0), Type: timeentry.BreakLunch})
	require.NoError(t, err)
	require.NoError(t, breaks.Close(ctx, b.ID, at(12, 30)))
	assert.ErrorIs(t, breaks.Close(ctx, "missing", at(12, 30)), timeentry.ErrBreakNotFound)

	list, err := breaks.ListByEntry(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].End)
	assert.True(t, list[0].End.Equal(at(12, 30)))

	late, err := breaks.Create(ctx, timeentry.BreakInterval{EntryID: e.ID, Start: at(18, 10), Type: timeentry.BreakRest})
	require.NoError(t, err)
	require.NoError(t, breaks.Delete(ctx, late.ID))
	assert.ErrorIs(t, breaks.Delete(ctx, late.ID), timeentry.ErrBreakNotFound)
	list, err = breaks.ListByEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	for _, text := range []string{"first", "second"} {
		_, err := notes.Append(ctx, timeentry.Note{EntryID: e.ID, Author: "sup-1", Kind: timeentry.NoteSupervisor, Text: text})
		require.NoError(t, err)
	}
	got, err := notes.ListByEntry(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)

	_, err = notes.Append(ctx, timeentry.Note{EntryID: "missing", Author: "x", Kind: timeentry.NoteSystem, Text: "y"})
	assert.ErrorIs(t, err, timeentry.ErrEntryNotFound)
}

// ===== SCHEDULE TESTS =====

func TestScheduleRepositories(t *testing.T) {
	db := openTestDB(t)
	templates := postgresql.NewTemplateRepository(db)
	assignments := postgresql.NewAssignmentRepository(db)
	ctx := context.Background()

	tpl := schedule.Template{
		ID:                       "day",
		Name:                     "Day shift",
		SiteID:                   "site-1",
		Timezone:                 "Asia/Jakarta",
		StartTime:                schedule.MustParseTimeOfDay("08:00"),
		EndTime:                  schedule.MustParseTimeOfDay("17:00"),
		Weekdays:                 []time.Weekday{time.Monday, time.Friday},
		EarlyPunchAllowedMinutes: schedule.IntPtr(5),
		AutoClose: schedule.AutoClosePolicy{
			Enabled:              true,
			FirstReminderMinutes: schedule.IntPtr(30),
			WindowMinutes:        schedule.IntPtr(60),
		},
	}
	saved, err := templates.Upsert(ctx, tpl)
	require.NoError(t, err)
	assert.Equal(t, tpl.StartTime, saved.StartTime)
	assert.Equal(t, tpl.Weekdays, saved.Weekdays)
	assert.Nil(t, saved.LatePunchGraceMinutes)
	require.NotNil(t, saved.AutoClose.WindowMinutes)
	assert.Equal(t, 60, *saved.AutoClose.WindowMinutes)

	templateID := tpl.ID
	_, err = assignments.Upsert(ctx, schedule.Assignment{
		EmployeeID: "emp-1",
		SiteID:     "site-1",
		TemplateID: &templateID,
		Snapshot:   &saved,
		HourlyRate: decimal.NewFromInt(20),
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	current, err := assignments.GetCurrent(ctx, "emp-1", "site-1", at(9, 0))
	require.NoError(t, err)
	assert.True(t, current.HourlyRate.Equal(decimal.NewFromInt(20)))
	require.NotNil(t, current.Snapshot)
	assert.Equal(t, "Day shift", current.Snapshot.Name)

	_, err = assignments.GetCurrent(ctx, "emp-1", "site-1", time.Date(2023, 12, 31, 9, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, schedule.ErrAssignmentNotFound)

	require.NoError(t, templates.Delete(ctx, "day"))
	assert.ErrorIs(t, templates.Delete(ctx, "day"), schedule.ErrTemplateNotFound)
}

func TestPINRepository(t *testing.T) {
	db := openTestDB(t)
	pins := postgresql.NewPINRepository(db)
	ctx := context.Background()

	_, err := pins.GetPINHash(ctx, "emp-1")
	assert.ErrorIs(t, err, verification.ErrPINNotSet)

	require.NoError(t, pins.SetPINHash(ctx, "emp-1", []byte("hash")))
	got, err := pins.GetPINHash(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), got)
}
