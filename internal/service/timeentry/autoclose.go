package timeentry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/notify"
)

// errStale marks an entry that was closed or escalated by someone else
// between the scan read and the locked re-read.
var errStale = errors.New("entry changed since scan")

// ScanOverdue walks every active entry once and escalates those still open
// past their scheduled end: a first reminder, a second reminder, then a
// forced punch-out once the auto-close window has passed. Each step is
// recorded in the reminder log, which is what makes repeated scans safe.
func (s *TimeEntryServiceImpl) ScanOverdue(ctx context.Context, now time.Time) (timeentry.ScanResult, error) {
	var res timeentry.ScanResult
	now = now.UTC()

	active, err := s.EntryRepository.ListActive(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list active entries: %w", err)
	}

	for _, e := range active {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++
		s.escalate(ctx, e, now, &res)
	}

	slog.InfoContext(ctx, "overdue scan finished",
		"scanned", res.Scanned,
		"reminders_sent", res.RemindersSent,
		"delivery_failed", res.DeliveryFailed,
		"auto_closed", res.AutoClosed,
		"conflicts", res.Conflicts,
		"errors", res.Errors,
	)
	return res, nil
}

func (s *TimeEntryServiceImpl) escalate(ctx context.Context, e timeentry.TimeEntry, now time.Time, res *timeentry.ScanResult) {
	tpl, err := s.resolver.Resolve(ctx, e.EmployeeID, e.SiteID, e.ClockIn)
	if err != nil {
		slog.ErrorContext(ctx, "failed to resolve schedule for overdue check", "entry_id", e.ID, "error", err)
		res.ResolveFailures++
		return
	}
	policy := tpl.AutoClose
	if !policy.Enabled || tpl.IsFlexible() {
		res.Skipped++
		return
	}

	ref := tpl.ScheduledEnd(e.ClockIn)
	if e.ClockIn.After(ref) {
		ref = e.ClockIn
	}
	if now.Before(ref) {
		res.Skipped++
		return
	}
	overdue := int(now.Sub(ref) / time.Minute)

	logs, err := s.reminders.ListByEntry(ctx, e.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list reminders", "entry_id", e.ID, "error", err)
		res.Errors++
		return
	}

	if w := policy.WindowMinutes; w != nil && overdue >= *w && !hasReminder(logs, timeentry.ReminderAutoClose) {
		s.record(ctx, res, e.ID, s.forceClose(ctx, e, tpl, ref, *w, overdue, now), func() { res.AutoClosed++ })
		return
	}

	if acknowledged(logs) {
		res.Skipped++
		return
	}

	var stage timeentry.ReminderType
	switch {
	case policy.SecondReminderMinutes != nil && overdue >= *policy.SecondReminderMinutes:
		// once the second stage is due the first is never re-sent
		if !s.stageDone(logs, timeentry.ReminderSecond) {
			stage = timeentry.ReminderSecond
		}
	case policy.FirstReminderMinutes != nil && overdue >= *policy.FirstReminderMinutes:
		if !s.stageDone(logs, timeentry.ReminderFirst) {
			stage = timeentry.ReminderFirst
		}
	}
	if stage == "" {
		res.Skipped++
		return
	}

	delivered, err := s.sendReminder(ctx, e, stage, overdue, now)
	s.record(ctx, res, e.ID, err, func() {
		if delivered {
			res.RemindersSent++
		} else {
			res.DeliveryFailed++
		}
	})
}

// record classifies the outcome of one escalation step.
func (s *TimeEntryServiceImpl) record(ctx context.Context, res *timeentry.ScanResult, entryID string, err error, ok func()) {
	switch {
	case err == nil:
		ok()
	case errors.Is(err, errStale), errors.Is(err, timeentry.ErrConcurrencyConflict):
		slog.DebugContext(ctx, "entry changed during escalation", "entry_id", entryID)
		res.Conflicts++
	default:
		slog.ErrorContext(ctx, "escalation step failed", "entry_id", entryID, "error", err)
		res.Errors++
	}
}

// stageDone reports whether a stage was delivered or has used up its attempts.
func (s *TimeEntryServiceImpl) stageDone(logs []timeentry.ReminderLog, stage timeentry.ReminderType) bool {
	attempts := 0
	for _, l := range logs {
		if l.Type != stage {
			continue
		}
		if l.Delivered() {
			return true
		}
		attempts++
	}
	return attempts >= s.cfg.ReminderMaxAttempts
}

func hasReminder(logs []timeentry.ReminderLog, stage timeentry.ReminderType) bool {
	for _, l := range logs {
		if l.Type == stage {
			return true
		}
	}
	return false
}

func acknowledged(logs []timeentry.ReminderLog) bool {
	for _, l := range logs {
		if l.Acknowledged {
			return true
		}
	}
	return false
}

// deliver sends one notice and converts the outcome into log fields.
func (s *TimeEntryServiceImpl) deliver(ctx context.Context, employeeID, message string) (notify.Delivery, *string) {
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	d, err := s.sender.SendReminder(sendCtx, employeeID, notify.ChannelAll, message)
	if err == nil && !d.SMSSent && !d.PushSent {
		err = errors.New("no channel accepted the message")
	}
	if err != nil {
		msg := fmt.Errorf("%w: %v", timeentry.ErrDeliveryFailure, err).Error()
		slog.WarnContext(ctx, "reminder delivery failed", "employee_id", employeeID, "error", err)
		return notify.Delivery{}, &msg
	}
	return d, nil
}

func (s *TimeEntryServiceImpl) sendReminder(ctx context.Context, e timeentry.TimeEntry, stage timeentry.ReminderType, overdue int, now time.Time) (bool, error) {
	message := fmt.Sprintf("You are still clocked in %d minutes after your shift ended. Please punch out.", overdue)
	if stage == timeentry.ReminderSecond {
		message = fmt.Sprintf("Second reminder: you are still clocked in %d minutes after your shift ended. Your shift may be closed automatically.", overdue)
	}
	d, deliveryErr := s.deliver(ctx, e.EmployeeID, message)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.EntryRepository.GetForUpdate(ctx, e.ID)
		if err != nil {
			return err
		}
		if cur.Status != timeentry.StatusActive || cur.IsDisabled() {
			return errStale
		}
		_, err = s.reminders.Insert(ctx, timeentry.ReminderLog{
			EntryID:        e.ID,
			EmployeeID:     e.EmployeeID,
			Type:           stage,
			SentAt:         now,
			SMSSent:        d.SMSSent,
			PushSent:       d.PushSent,
			MinutesOverdue: overdue,
			DeliveryError:  deliveryErr,
		})
		return err
	})
	if err != nil {
		return false, err
	}

	slog.InfoContext(ctx, "overdue reminder recorded",
		"entry_id", e.ID,
		"stage", stage,
		"minutes_overdue", overdue,
		"delivered", deliveryErr == nil,
	)
	return deliveryErr == nil, nil
}

// forceClose punches the entry out at the end of the auto-close window. The
// notice goes out before the transaction so no row lock is held across the
// network call.
func (s *TimeEntryServiceImpl) forceClose(ctx context.Context, e timeentry.TimeEntry, tpl schedule.Template, ref time.Time, window, overdue int, now time.Time) error {
	cur, err := s.EntryRepository.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	if cur.Status != timeentry.StatusActive || cur.IsDisabled() {
		return errStale
	}

	closeAt := ref.Add(time.Duration(window) * time.Minute)
	loc := tpl.Location()
	message := fmt.Sprintf("Your shift was closed automatically at %s. A supervisor will review it.",
		closeAt.In(loc).Format("15:04"))
	d, deliveryErr := s.deliver(ctx, e.EmployeeID, message)

	rule := fmt.Sprintf("auto_close_window:%d", window)
	reason := fmt.Sprintf("no punch-out within %d minutes of scheduled end %s", window,
		tpl.ScheduledEnd(e.ClockIn).In(loc).Format("2006-01-02 15:04"))

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.EntryRepository.GetForUpdate(ctx, e.ID)
		if err != nil {
			return err
		}
		if locked.Status != timeentry.StatusActive || locked.IsDisabled() {
			return errStale
		}
		logs, err := s.reminders.ListByEntry(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("failed to list reminders: %w", err)
		}
		if hasReminder(logs, timeentry.ReminderAutoClose) {
			return errStale
		}
		if err := s.loadBreaks(ctx, &locked); err != nil {
			return err
		}

		var openID string
		if b := locked.OpenBreak(); b != nil {
			openID = b.ID
		}
		fix, err := locked.AutoClose(closeAt, now, rule, reason, s.cfg.DailyOvertimeThreshold)
		if err != nil {
			return err
		}
		offset := offsetMinutes(closeAt, tpl.ScheduledEnd(locked.ClockIn))
		locked.PunchOutOffsetMinutes = &offset

		if openID != "" {
			for _, b := range locked.Breaks {
				if b.ID == openID {
					if err := s.breaks.Close(ctx, openID, *b.End); err != nil {
						return fmt.Errorf("failed to close open break: %w", err)
					}
				}
			}
		}
		if err := s.applyBreakCorrection(ctx, fix); err != nil {
			return err
		}

		if _, err := s.EntryRepository.Update(ctx, locked); err != nil {
			return err
		}
		if err := s.appendNote(ctx, locked.ID, timeentry.SystemActor, timeentry.NoteSystem, "auto-closed: "+reason); err != nil {
			return err
		}
		if !fix.Empty() {
			if err := s.appendNote(ctx, locked.ID, timeentry.SystemActor, timeentry.NoteSystem, breakCorrectionNote(fix, loc)); err != nil {
				return err
			}
		}
		_, err = s.reminders.Insert(ctx, timeentry.ReminderLog{
			EntryID:        locked.ID,
			EmployeeID:     locked.EmployeeID,
			Type:           timeentry.ReminderAutoClose,
			SentAt:         now,
			SMSSent:        d.SMSSent,
			PushSent:       d.PushSent,
			MinutesOverdue: overdue,
			DeliveryError:  deliveryErr,
		})
		if err != nil {
			return err
		}

		slog.InfoContext(ctx, "time entry auto-closed",
			"entry_id", locked.ID,
			"employee_id", locked.EmployeeID,
			"clock_out", closeAt,
			"rule", rule,
		)
		return nil
	})
}

// applyBreakCorrection persists the breaks an auto-close trimmed or dropped.
func (s *TimeEntryServiceImpl) applyBreakCorrection(ctx context.Context, fix timeentry.BreakCorrection) error {
	for _, b := range fix.Trimmed {
		if err := s.breaks.Close(ctx, b.ID, *b.End); err != nil {
			return fmt.Errorf("failed to trim break: %w", err)
		}
	}
	for _, b := range fix.Dropped {
		if err := s.breaks.Delete(ctx, b.ID); err != nil {
			return fmt.Errorf("failed to drop break: %w", err)
		}
	}
	return nil
}

func breakCorrectionNote(fix timeentry.BreakCorrection, loc *time.Location) string {
	parts := make([]string, 0, len(fix.Trimmed)+len(fix.Dropped))
	for _, b := range fix.Trimmed {
		parts = append(parts, fmt.Sprintf("break from %s trimmed to end at %s",
			b.Start.In(loc).Format("15:04"), b.End.In(loc).Format("15:04")))
	}
	for _, b := range fix.Dropped {
		parts = append(parts, fmt.Sprintf("break from %s dropped, it started after the forced clock-out",
			b.Start.In(loc).Format("15:04")))
	}
	return "auto-close adjusted breaks: " + strings.Join(parts, "; ")
}
