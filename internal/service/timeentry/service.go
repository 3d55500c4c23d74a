package timeentry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/notify"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
	"github.com/shopspring/decimal"
)

// Verifier is the identity check consumed at punch time.
type Verifier interface {
	Verify(ctx context.Context, employeeID string, sample verification.Sample) (verification.Result, error)
}

// Config holds the payroll and escalation rules.
type Config struct {
	DailyOvertimeThreshold  time.Duration
	WeeklyOvertimeThreshold time.Duration
	OvertimeMultiplier      decimal.Decimal
	MinManualBreak          time.Duration
	ReminderMaxAttempts     int
	SendTimeout             time.Duration
	// ClockSkew is how far in the future a punch timestamp may be.
	ClockSkew time.Duration
}

func DefaultConfig() Config {
	return Config{
		DailyOvertimeThreshold: timeentry.DefaultDailyThreshold,
		OvertimeMultiplier:     decimal.RequireFromString("1.5"),
		MinManualBreak:         30 * time.Minute,
		ReminderMaxAttempts:    3,
		SendTimeout:            10 * time.Second,
		ClockSkew:              2 * time.Minute,
	}
}

type Deps struct {
	Tx        timeentry.TxManager
	Entries   timeentry.EntryRepository
	Breaks    timeentry.BreakRepository
	Reminders timeentry.ReminderLogRepository
	Notes     timeentry.NoteRepository
	Resolver  schedule.Resolver
	Verifier  Verifier
	Sender    notify.Sender
	Now       func() time.Time
}

type TimeEntryServiceImpl struct {
	tx timeentry.TxManager
	timeentry.EntryRepository
	breaks    timeentry.BreakRepository
	reminders timeentry.ReminderLogRepository
	notes     timeentry.NoteRepository
	resolver  schedule.Resolver
	verifier  Verifier
	sender    notify.Sender
	cfg       Config
	now       func() time.Time
}

func NewTimeEntryService(deps Deps, cfg Config) *TimeEntryServiceImpl {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.DailyOvertimeThreshold <= 0 {
		cfg.DailyOvertimeThreshold = timeentry.DefaultDailyThreshold
	}
	if cfg.OvertimeMultiplier.IsZero() {
		cfg.OvertimeMultiplier = decimal.RequireFromString("1.5")
	}
	if cfg.ReminderMaxAttempts <= 0 {
		cfg.ReminderMaxAttempts = 3
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &TimeEntryServiceImpl{
		tx:              deps.Tx,
		EntryRepository: deps.Entries,
		breaks:          deps.Breaks,
		reminders:       deps.Reminders,
		notes:           deps.Notes,
		resolver:        deps.Resolver,
		verifier:        deps.Verifier,
		sender:          deps.Sender,
		cfg:             cfg,
		now:             deps.Now,
	}
}

// farFuture bounds the span of an open entry in overlap checks.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func (s *TimeEntryServiceImpl) clock() time.Time {
	return s.now().UTC()
}

// punchTime resolves an optional client timestamp against the server clock.
func (s *TimeEntryServiceImpl) punchTime(at time.Time) (time.Time, error) {
	now := s.clock()
	if at.IsZero() {
		return now, nil
	}
	if at.After(now.Add(s.cfg.ClockSkew)) {
		return time.Time{}, timeentry.ErrFutureTimestamp
	}
	return at, nil
}

// verify never fails a punch on infrastructure errors; the punch is treated
// as unverified and routed to photo review when the template requires it.
func (s *TimeEntryServiceImpl) verify(ctx context.Context, employeeID, method string, v timeentry.Verification) verification.Result {
	if s.verifier == nil {
		return verification.Result{}
	}
	res, err := s.verifier.Verify(ctx, employeeID, verification.Sample{
		Method:          method,
		PIN:             v.PIN,
		BiometricPassed: v.BiometricPassed,
	})
	if err != nil {
		slog.WarnContext(ctx, "identity verification failed", "employee_id", employeeID, "method", method, "error", err)
		return verification.Result{}
	}
	return res
}

// hydrate loads breaks and notes onto e.
func (s *TimeEntryServiceImpl) hydrate(ctx context.Context, e *timeentry.TimeEntry) error {
	breaks, err := s.breaks.ListByEntry(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("failed to list breaks: %w", err)
	}
	notes, err := s.notes.ListByEntry(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}
	e.Breaks = breaks
	e.Notes = notes
	return nil
}

func (s *TimeEntryServiceImpl) loadBreaks(ctx context.Context, e *timeentry.TimeEntry) error {
	breaks, err := s.breaks.ListByEntry(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("failed to list breaks: %w", err)
	}
	e.Breaks = breaks
	return nil
}

func (s *TimeEntryServiceImpl) appendNote(ctx context.Context, entryID, author string, kind timeentry.NoteKind, text string) error {
	_, err := s.notes.Append(ctx, timeentry.Note{
		EntryID:   entryID,
		Author:    author,
		Kind:      kind,
		Text:      text,
		CreatedAt: s.clock(),
	})
	if err != nil {
		return fmt.Errorf("failed to append note: %w", err)
	}
	return nil
}

// respond reloads children and maps the entry for callers.
func (s *TimeEntryServiceImpl) respond(ctx context.Context, e timeentry.TimeEntry) (timeentry.EntryResponse, error) {
	if err := s.hydrate(ctx, &e); err != nil {
		return timeentry.EntryResponse{}, err
	}
	resp := timeentry.NewEntryResponse(e)
	if pay, ok := s.entryPay(ctx, e, nil); ok {
		resp.Pay = &pay
	}
	return resp, nil
}

// PunchIn implements timeentry.PunchService.
func (s *TimeEntryServiceImpl) PunchIn(ctx context.Context, req timeentry.PunchInRequest) (timeentry.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	at, err := s.punchTime(req.At)
	if err != nil {
		return timeentry.EntryResponse{}, err
	}

	tpl, err := s.resolver.Resolve(ctx, req.EmployeeID, req.SiteID, at)
	if err != nil {
		return timeentry.EntryResponse{}, fmt.Errorf("failed to resolve schedule: %w", err)
	}

	vres := s.verify(ctx, req.EmployeeID, req.Method, req.Verification)
	decision := ValidatePunch(tpl, PunchCheck{At: at, Type: PunchIn, Verification: vres})
	if decision.Outcome == OutcomeReject {
		return timeentry.EntryResponse{}, timeentry.Violation(timeentry.ErrPunchTooEarly.Rule, "%s", decision.Reason)
	}

	entry := timeentry.TimeEntry{
		EmployeeID:                 req.EmployeeID,
		SiteID:                     req.SiteID,
		ClockIn:                    at,
		PunchInMethod:              timeentry.Method(req.Method),
		Status:                     timeentry.StatusActive,
		Approval:                   timeentry.ApprovalPending,
		PunchInOffsetMinutes:       decision.OffsetMinutes,
		IsLate:                     decision.Late,
		RequiresManualVerification: decision.RequiresManualVerification,
		CreatedAt:                  s.clock(),
	}

	var created timeentry.TimeEntry
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.EntryRepository.Create(ctx, entry)
		if err != nil {
			return err
		}
		overlap, err := s.EntryRepository.HasOverlap(ctx, created.EmployeeID, created.ClockIn, farFuture, created.ID)
		if err != nil {
			return fmt.Errorf("failed to check overlap: %w", err)
		}
		if overlap {
			return timeentry.ErrOverlappingEntry
		}
		if decision.RequiresManualVerification {
			return s.appendNote(ctx, created.ID, timeentry.SystemActor, timeentry.NoteSystem,
				"punch-in "+decision.Reason)
		}
		return nil
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}

	slog.InfoContext(ctx, "punch in accepted",
		"entry_id", created.ID,
		"employee_id", created.EmployeeID,
		"offset_minutes", created.PunchInOffsetMinutes,
		"late", created.IsLate,
	)
	return s.respond(ctx, created)
}

// PunchOut implements timeentry.PunchService.
func (s *TimeEntryServiceImpl) PunchOut(ctx context.Context, req timeentry.PunchOutRequest) (timeentry.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	at, err := s.punchTime(req.At)
	if err != nil {
		return timeentry.EntryResponse{}, err
	}

	var seen timeentry.TimeEntry
	if req.EntryID != "" {
		seen, err = s.EntryRepository.GetByID(ctx, req.EntryID)
	} else {
		seen, err = s.EntryRepository.GetActiveByEmployee(ctx, req.EmployeeID)
		if errors.Is(err, timeentry.ErrEntryNotFound) {
			return timeentry.EntryResponse{}, timeentry.ErrNoActiveEntry
		}
	}
	if err != nil {
		return timeentry.EntryResponse{}, err
	}

	tpl, err := s.resolver.Resolve(ctx, seen.EmployeeID, seen.SiteID, seen.ClockIn)
	if err != nil {
		return timeentry.EntryResponse{}, fmt.Errorf("failed to resolve schedule: %w", err)
	}
	vres := s.verify(ctx, seen.EmployeeID, req.Method, req.Verification)
	decision := ValidatePunch(tpl, PunchCheck{At: at, Type: PunchOut, ShiftDate: seen.ClockIn, Verification: vres})

	var updated timeentry.TimeEntry
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		e, err := s.EntryRepository.GetForUpdate(ctx, seen.ID)
		if err != nil {
			return err
		}
		if seen.Status == timeentry.StatusActive && e.Status != timeentry.StatusActive {
			return timeentry.ErrConcurrencyConflict
		}
		if err := s.loadBreaks(ctx, &e); err != nil {
			return err
		}
		open := e.OpenBreak()
		var openID string
		if open != nil {
			openID = open.ID
		}

		if err := e.Complete(at, timeentry.Method(req.Method), s.cfg.DailyOvertimeThreshold); err != nil {
			return err
		}
		offset := decision.OffsetMinutes
		e.PunchOutOffsetMinutes = &offset
		flagged := decision.RequiresManualVerification && !e.RequiresManualVerification
		e.RequiresManualVerification = e.RequiresManualVerification || decision.RequiresManualVerification

		if openID != "" {
			for _, b := range e.Breaks {
				if b.ID == openID {
					if err := s.breaks.Close(ctx, openID, *b.End); err != nil {
						return fmt.Errorf("failed to close open break: %w", err)
					}
				}
			}
		}

		updated, err = s.EntryRepository.Update(ctx, e)
		if err != nil {
			return err
		}
		if flagged {
			return s.appendNote(ctx, e.ID, timeentry.SystemActor, timeentry.NoteSystem, "punch-out "+decision.Reason)
		}
		return nil
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}

	return s.respond(ctx, updated)
}

// StartBreak implements timeentry.PunchService.
func (s *TimeEntryServiceImpl) StartBreak(ctx context.Context, req timeentry.StartBreakRequest) (timeentry.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	at, err := s.punchTime(req.At)
	if err != nil {
		return timeentry.EntryResponse{}, err
	}

	var updated timeentry.TimeEntry
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		e, err := s.EntryRepository.GetForUpdate(ctx, req.EntryID)
		if err != nil {
			return err
		}
		if err := timeentry.CheckTransition(e, timeentry.EventBreak); err != nil {
			return err
		}
		if err := s.loadBreaks(ctx, &e); err != nil {
			return err
		}
		if e.OpenBreak() != nil {
			return timeentry.ErrBreakAlreadyOpen
		}
		if at.Before(e.ClockIn) {
			return timeentry.ErrBreakOutsideEntry
		}
		for _, b := range e.Breaks {
			if b.End != nil && at.Before(*b.End) {
				return timeentry.ErrBreakOverlap
			}
		}

		if _, err := s.breaks.Create(ctx, timeentry.BreakInterval{
			EntryID:   e.ID,
			Start:     at,
			Type:      timeentry.BreakType(req.Type),
			CreatedAt: s.clock(),
		}); err != nil {
			return fmt.Errorf("failed to create break: %w", err)
		}

		// bump the version so concurrent break edits serialize on the entry
		updated, err = s.EntryRepository.Update(ctx, e)
		return err
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, updated)
}

// EndBreak implements timeentry.PunchService.
func (s *TimeEntryServiceImpl) EndBreak(ctx context.Context, req timeentry.EndBreakRequest) (timeentry.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	at, err := s.punchTime(req.At)
	if err != nil {
		return timeentry.EntryResponse{}, err
	}

	var updated timeentry.TimeEntry
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		e, err := s.EntryRepository.GetForUpdate(ctx, req.EntryID)
		if err != nil {
			return err
		}
		if err := timeentry.CheckTransition(e, timeentry.EventBreak); err != nil {
			return err
		}
		if err := s.loadBreaks(ctx, &e); err != nil {
			return err
		}
		open := e.OpenBreak()
		if open == nil {
			return timeentry.ErrNoOpenBreak
		}
		if !at.After(open.Start) {
			return timeentry.Violation(timeentry.ErrBreakOutsideEntry.Rule, "break end must be after its start")
		}
		if err := s.breaks.Close(ctx, open.ID, at); err != nil {
			return fmt.Errorf("failed to close break: %w", err)
		}
		updated, err = s.EntryRepository.Update(ctx, e)
		return err
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, updated)
}

// CreateManualEntry implements timeentry.PunchService. Manual entries follow
// the same overlap and break rules as live punches.
func (s *TimeEntryServiceImpl) CreateManualEntry(ctx context.Context, req timeentry.ManualEntryRequest) (timeentry.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	now := s.clock()
	if req.ClockInAt.After(now.Add(s.cfg.ClockSkew)) {
		return timeentry.EntryResponse{}, timeentry.ErrFutureTimestamp
	}
	if req.ClockOutAt != nil {
		if !req.ClockOutAt.After(req.ClockInAt) {
			return timeentry.EntryResponse{}, timeentry.ErrClockOutNotAfterClockIn
		}
		if req.ClockOutAt.After(now.Add(s.cfg.ClockSkew)) {
			return timeentry.EntryResponse{}, timeentry.ErrFutureTimestamp
		}
	}
	if err := s.checkManualBreaks(req.ClockInAt, req.ClockOutAt, req.BreakPeriod, now); err != nil {
		return timeentry.EntryResponse{}, err
	}

	tpl, err := s.resolver.Resolve(ctx, req.EmployeeID, req.SiteID, req.ClockInAt)
	if err != nil {
		return timeentry.EntryResponse{}, fmt.Errorf("failed to resolve schedule: %w", err)
	}
	in := ValidatePunch(tpl, PunchCheck{At: req.ClockInAt, Type: PunchIn})

	entry := timeentry.TimeEntry{
		EmployeeID:                 req.EmployeeID,
		SiteID:                     req.SiteID,
		ClockIn:                    req.ClockInAt,
		PunchInMethod:              timeentry.MethodManual,
		Status:                     timeentry.StatusActive,
		Approval:                   timeentry.ApprovalPending,
		PunchInOffsetMinutes:       in.OffsetMinutes,
		IsLate:                     in.Late,
		RequiresManualVerification: in.RequiresManualVerification,
		CreatedAt:                  now,
	}
	spanEnd := farFuture
	if req.ClockOutAt != nil {
		h, err := timeentry.CalculateHours(req.ClockInAt, *req.ClockOutAt, req.BreakPeriod, s.cfg.DailyOvertimeThreshold)
		if err != nil {
			return timeentry.EntryResponse{}, err
		}
		out := ValidatePunch(tpl, PunchCheck{At: *req.ClockOutAt, Type: PunchOut, ShiftDate: req.ClockInAt})
		method := timeentry.MethodManual
		offset := out.OffsetMinutes
		entry.ClockOut = req.ClockOutAt
		entry.PunchOutMethod = &method
		entry.PunchOutOffsetMinutes = &offset
		entry.Status = timeentry.StatusComplete
		entry.SetHours(h)
		spanEnd = *req.ClockOutAt
	}

	author := req.CreatedBy
	if author == "" {
		author = req.EmployeeID
	}

	var created timeentry.TimeEntry
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.EntryRepository.Create(ctx, entry)
		if err != nil {
			return err
		}
		overlap, err := s.EntryRepository.HasOverlap(ctx, created.EmployeeID, created.ClockIn, spanEnd, created.ID)
		if err != nil {
			return fmt.Errorf("failed to check overlap: %w", err)
		}
		if overlap {
			return timeentry.ErrOverlappingEntry
		}
		for _, b := range req.BreakPeriod {
			b.EntryID = created.ID
			b.CreatedAt = now
			if _, err := s.breaks.Create(ctx, b); err != nil {
				return fmt.Errorf("failed to create break: %w", err)
			}
		}
		if err := s.appendNote(ctx, created.ID, author, timeentry.NoteSystem, "manual entry recorded by "+author); err != nil {
			return err
		}
		if req.Note != "" {
			return s.appendNote(ctx, created.ID, author, timeentry.NoteSupervisor, req.Note)
		}
		return nil
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, created)
}

// checkManualBreaks enforces span, ordering and minimum length. Open entries
// bound breaks by now.
func (s *TimeEntryServiceImpl) checkManualBreaks(in time.Time, out *time.Time, breaks []timeentry.BreakInterval, now time.Time) error {
	upper := now
	if out != nil {
		upper = *out
	}
	slices.SortFunc(breaks, func(a, b timeentry.BreakInterval) int {
		return a.Start.Compare(b.Start)
	})
	var prevEnd time.Time
	for i, b := range breaks {
		if !b.End.After(b.Start) {
			return timeentry.Violation(timeentry.ErrBreakOutsideEntry.Rule, "break %d must end after it starts", i+1)
		}
		if b.Start.Before(in) || b.End.After(upper) {
			return timeentry.ErrBreakOutsideEntry
		}
		if s.cfg.MinManualBreak > 0 && b.End.Sub(b.Start) < s.cfg.MinManualBreak {
			return timeentry.Violation(timeentry.ErrBreakTooShort.Rule,
				"break %d is shorter than the %d minute minimum", i+1, int(s.cfg.MinManualBreak/time.Minute))
		}
		if i > 0 && b.Start.Before(prevEnd) {
			return timeentry.ErrBreakOverlap
		}
		prevEnd = *b.End
	}
	return nil
}

// AcknowledgeReminder implements timeentry.PunchService.
func (s *TimeEntryServiceImpl) AcknowledgeReminder(ctx context.Context, req timeentry.AcknowledgeReminderRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	log, err := s.reminders.GetByID(ctx, req.ReminderID)
	if err != nil {
		return err
	}
	if log.EmployeeID != req.EmployeeID {
		return timeentry.ErrReminderNotOwned
	}
	if err := s.reminders.Acknowledge(ctx, log.ID, s.clock()); err != nil {
		return fmt.Errorf("failed to acknowledge reminder: %w", err)
	}
	return nil
}

// pageInfo mirrors the pagination summary used across list endpoints.
func pageInfo(total int64, page, limit int) (int, string) {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	showing := fmt.Sprintf("%d-%d of %d", (page-1)*limit+1, min(page*limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}
	return totalPages, showing
}
