package timeentry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
)

type pendingNote struct {
	kind timeentry.NoteKind
	text string
}

// mutate locks the entry, applies fn and persists the result with any notes
// fn returned, all in one transaction. A non-nil expected version must match
// the locked row, otherwise the caller acted on a stale view.
func (s *TimeEntryServiceImpl) mutate(ctx context.Context, actor timeentry.Actor, entryID string, expected *int, fn func(e *timeentry.TimeEntry) ([]pendingNote, error)) (timeentry.TimeEntry, error) {
	var updated timeentry.TimeEntry
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		e, err := s.EntryRepository.GetForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if expected != nil && *expected != e.Version {
			return fmt.Errorf("%w: expected version %d, found %d", timeentry.ErrConcurrencyConflict, *expected, e.Version)
		}
		if err := s.loadBreaks(ctx, &e); err != nil {
			return err
		}
		notes, err := fn(&e)
		if err != nil {
			return err
		}
		updated, err = s.EntryRepository.Update(ctx, e)
		if err != nil {
			return err
		}
		for _, n := range notes {
			if err := s.appendNote(ctx, e.ID, actor.ID, n.kind, n.text); err != nil {
				return err
			}
		}
		return nil
	})
	return updated, err
}

func supervisorNote(text string) []pendingNote {
	if text == "" {
		return nil
	}
	return []pendingNote{{kind: timeentry.NoteSupervisor, text: text}}
}

// Approve implements timeentry.ReviewService.
func (s *TimeEntryServiceImpl) Approve(ctx context.Context, actor timeentry.Actor, req timeentry.EntryActionRequest) (timeentry.EntryResponse, error) {
	if !actor.CanReview {
		return timeentry.EntryResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	e, err := s.mutate(ctx, actor, req.EntryID, req.ExpectedVersion, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
		return nil, e.Approve(actor.ID, s.clock())
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	slog.InfoContext(ctx, "time entry approved", "entry_id", e.ID, "actor_id", actor.ID)
	return s.respond(ctx, e)
}

// Reject implements timeentry.ReviewService.
func (s *TimeEntryServiceImpl) Reject(ctx context.Context, actor timeentry.Actor, req timeentry.RejectRequest) (timeentry.EntryResponse, error) {
	if !actor.CanReview {
		return timeentry.EntryResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	e, err := s.mutate(ctx, actor, req.EntryID, req.ExpectedVersion, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
		if err := e.Reject(actor.ID, req.Reason, s.clock()); err != nil {
			return nil, err
		}
		return supervisorNote("rejected: " + req.Reason), nil
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	slog.InfoContext(ctx, "time entry rejected", "entry_id", e.ID, "actor_id", actor.ID)
	return s.respond(ctx, e)
}

// Unapprove implements timeentry.ReviewService.
func (s *TimeEntryServiceImpl) Unapprove(ctx context.Context, actor timeentry.Actor, req timeentry.EntryActionRequest) (timeentry.EntryResponse, error) {
	if !actor.CanReview {
		return timeentry.EntryResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	e, err := s.mutate(ctx, actor, req.EntryID, req.ExpectedVersion, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
		return nil, e.Unapprove()
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, e)
}

// editClockOut applies a supervisor correction. The punch-out offset is
// recomputed against the template in effect on the clock-in date.
func (s *TimeEntryServiceImpl) editClockOut(ctx context.Context, e *timeentry.TimeEntry, req timeentry.EditClockOutRequest) ([]pendingNote, error) {
	var before string
	if e.ClockOut != nil {
		before = e.ClockOut.UTC().Format("2006-01-02 15:04")
	}
	if err := e.EditClockOut(req.ClockOutAt, s.cfg.DailyOvertimeThreshold); err != nil {
		return nil, err
	}
	tpl, err := s.resolver.Resolve(ctx, e.EmployeeID, e.SiteID, e.ClockIn)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schedule: %w", err)
	}
	offset := ValidatePunch(tpl, PunchCheck{At: req.ClockOutAt, Type: PunchOut, ShiftDate: e.ClockIn}).OffsetMinutes
	e.PunchOutOffsetMinutes = &offset

	notes := []pendingNote{{
		kind: timeentry.NoteSystem,
		text: fmt.Sprintf("clock-out changed from %s to %s", before, req.ClockOutAt.UTC().Format("2006-01-02 15:04")),
	}}
	return append(notes, supervisorNote(req.Note)...), nil
}

// EditClockOut implements timeentry.ReviewService.
func (s *TimeEntryServiceImpl) EditClockOut(ctx context.Context, actor timeentry.Actor, req timeentry.EditClockOutRequest) (timeentry.EntryResponse, error) {
	if !actor.CanReview {
		return timeentry.EntryResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	e, err := s.mutate(ctx, actor, req.EntryID, req.ExpectedVersion, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
		return s.editClockOut(ctx, e, req)
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, e)
}

// Dispute implements timeentry.ReviewService.
func (s *TimeEntryServiceImpl) Dispute(ctx context.Context, actor timeentry.Actor, req timeentry.DisputeRequest) (timeentry.EntryResponse, error) {
	if !actor.CanReview {
		return timeentry.EntryResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	e, err := s.mutate(ctx, actor, req.EntryID, req.ExpectedVersion, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
		if err := e.Dispute(); err != nil {
			return nil, err
		}
		return supervisorNote("disputed: " + req.Note), nil
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, e)
}

// Disable implements timeentry.ReviewService.
func (s *TimeEntryServiceImpl) Disable(ctx context.Context, actor timeentry.Actor, req timeentry.NoteRequest) (timeentry.EntryResponse, error) {
	if !actor.CanReview {
		return timeentry.EntryResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	e, err := s.mutate(ctx, actor, req.EntryID, req.ExpectedVersion, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
		if err := e.Disable(actor.ID, s.clock()); err != nil {
			return nil, err
		}
		notes := []pendingNote{{kind: timeentry.NoteSystem, text: "entry disabled"}}
		return append(notes, supervisorNote(req.Note)...), nil
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, e)
}

// Enable implements timeentry.ReviewService. Re-enabling an active entry can
// collide with a newer active entry for the same employee.
func (s *TimeEntryServiceImpl) Enable(ctx context.Context, actor timeentry.Actor, req timeentry.NoteRequest) (timeentry.EntryResponse, error) {
	if !actor.CanReview {
		return timeentry.EntryResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	e, err := s.mutate(ctx, actor, req.EntryID, req.ExpectedVersion, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
		if err := e.Enable(); err != nil {
			return nil, err
		}
		notes := []pendingNote{{kind: timeentry.NoteSystem, text: "entry enabled"}}
		return append(notes, supervisorNote(req.Note)...), nil
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, e)
}

// ClearManualVerification implements timeentry.ReviewService.
func (s *TimeEntryServiceImpl) ClearManualVerification(ctx context.Context, actor timeentry.Actor, req timeentry.NoteRequest) (timeentry.EntryResponse, error) {
	if !actor.CanReview {
		return timeentry.EntryResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}
	e, err := s.mutate(ctx, actor, req.EntryID, req.ExpectedVersion, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
		if err := e.ClearManualVerification(); err != nil {
			return nil, err
		}
		notes := []pendingNote{{kind: timeentry.NoteSystem, text: "photo verification cleared"}}
		return append(notes, supervisorNote(req.Note)...), nil
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, e)
}

// BulkApprove approves each entry in its own transaction. One failure does
// not affect the others.
func (s *TimeEntryServiceImpl) BulkApprove(ctx context.Context, actor timeentry.Actor, req timeentry.BulkApproveRequest) (timeentry.BulkApproveResponse, error) {
	if !actor.CanReview {
		return timeentry.BulkApproveResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.BulkApproveResponse{}, err
	}

	resp := timeentry.BulkApproveResponse{Results: make([]timeentry.BulkResult, 0, len(req.EntryIDs))}
	for _, id := range req.EntryIDs {
		_, err := s.mutate(ctx, actor, id, nil, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
			return nil, e.Approve(actor.ID, s.clock())
		})
		if err != nil {
			msg := err.Error()
			resp.Failed++
			resp.Results = append(resp.Results, timeentry.BulkResult{EntryID: id, Error: &msg})
			continue
		}
		resp.Succeeded++
		resp.Results = append(resp.Results, timeentry.BulkResult{EntryID: id, OK: true})
	}

	slog.InfoContext(ctx, "bulk approve finished",
		"actor_id", actor.ID,
		"succeeded", resp.Succeeded,
		"failed", resp.Failed,
	)
	return resp, nil
}

// GetAutoCloseReview implements timeentry.ReviewService.
func (s *TimeEntryServiceImpl) GetAutoCloseReview(ctx context.Context, actor timeentry.Actor, entryID string) (timeentry.AutoCloseReviewResponse, error) {
	if !actor.CanReview {
		return timeentry.AutoCloseReviewResponse{}, timeentry.ErrForbidden
	}
	e, err := s.EntryRepository.GetByID(ctx, entryID)
	if err != nil {
		return timeentry.AutoCloseReviewResponse{}, err
	}
	entry, err := s.respond(ctx, e)
	if err != nil {
		return timeentry.AutoCloseReviewResponse{}, err
	}
	logs, err := s.reminders.ListByEntry(ctx, entryID)
	if err != nil {
		return timeentry.AutoCloseReviewResponse{}, fmt.Errorf("failed to list reminders: %w", err)
	}

	resp := timeentry.AutoCloseReviewResponse{Entry: entry, Reminders: make([]timeentry.ReminderResponse, 0, len(logs))}
	for _, l := range logs {
		resp.Reminders = append(resp.Reminders, timeentry.NewReminderResponse(l))
	}
	return resp, nil
}

// ResolveAutoClose applies the supervisor's decision on a force-closed entry.
func (s *TimeEntryServiceImpl) ResolveAutoClose(ctx context.Context, actor timeentry.Actor, req timeentry.ResolveAutoCloseRequest) (timeentry.EntryResponse, error) {
	if !actor.CanReview {
		return timeentry.EntryResponse{}, timeentry.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return timeentry.EntryResponse{}, err
	}

	e, err := s.mutate(ctx, actor, req.EntryID, req.ExpectedVersion, func(e *timeentry.TimeEntry) ([]pendingNote, error) {
		if e.AutoClosedAt == nil {
			return nil, timeentry.ErrNotAutoClosed
		}
		now := s.clock()

		switch timeentry.ResolveDecision(req.Decision) {
		case timeentry.DecisionApproveAsIs:
			if err := e.ResolveReview(); err != nil {
				return nil, err
			}
			if err := e.Approve(actor.ID, now); err != nil {
				return nil, err
			}
			notes := []pendingNote{{kind: timeentry.NoteSystem, text: "auto-close approved as is"}}
			return append(notes, supervisorNote(req.Note)...), nil

		case timeentry.DecisionEditAndApprove:
			notes, err := s.editClockOut(ctx, e, timeentry.EditClockOutRequest{
				EntryID:    req.EntryID,
				ClockOutAt: req.ClockOutAt,
				Note:       req.Note,
			})
			if err != nil {
				return nil, err
			}
			if err := e.Approve(actor.ID, now); err != nil {
				return nil, err
			}
			return notes, nil

		default:
			if err := e.Dispute(); err != nil {
				return nil, err
			}
			return supervisorNote("disputed: " + req.Note), nil
		}
	})
	if err != nil {
		return timeentry.EntryResponse{}, err
	}

	slog.InfoContext(ctx, "auto-close resolved",
		"entry_id", e.ID,
		"actor_id", actor.ID,
		"decision", req.Decision,
	)
	return s.respond(ctx, e)
}
