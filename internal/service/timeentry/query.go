package timeentry

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
)

// GetEntry implements timeentry.QueryService.
func (s *TimeEntryServiceImpl) GetEntry(ctx context.Context, id string) (timeentry.EntryResponse, error) {
	e, err := s.EntryRepository.GetByID(ctx, id)
	if err != nil {
		return timeentry.EntryResponse{}, err
	}
	return s.respond(ctx, e)
}

// ListEntries implements timeentry.QueryService.
func (s *TimeEntryServiceImpl) ListEntries(ctx context.Context, filter timeentry.EntryFilter) (timeentry.ListEntriesResponse, error) {
	if err := filter.Validate(); err != nil {
		return timeentry.ListEntriesResponse{}, err
	}
	entries, total, err := s.EntryRepository.List(ctx, filter)
	if err != nil {
		return timeentry.ListEntriesResponse{}, fmt.Errorf("failed to list entries: %w", err)
	}
	return s.listResponse(ctx, entries, total, filter.Page, filter.Limit)
}

// ListPendingReview implements timeentry.QueryService.
func (s *TimeEntryServiceImpl) ListPendingReview(ctx context.Context, filter timeentry.ReviewFilter) (timeentry.ListEntriesResponse, error) {
	if err := filter.Validate(); err != nil {
		return timeentry.ListEntriesResponse{}, err
	}
	entries, total, err := s.EntryRepository.ListPendingReview(ctx, filter)
	if err != nil {
		return timeentry.ListEntriesResponse{}, fmt.Errorf("failed to list pending review: %w", err)
	}
	return s.listResponse(ctx, entries, total, filter.Page, filter.Limit)
}

func (s *TimeEntryServiceImpl) listResponse(ctx context.Context, entries []timeentry.TimeEntry, total int64, page, limit int) (timeentry.ListEntriesResponse, error) {
	cache := templateCache{}
	items := make([]timeentry.EntryResponse, 0, len(entries))
	for _, e := range entries {
		if err := s.loadBreaks(ctx, &e); err != nil {
			return timeentry.ListEntriesResponse{}, err
		}
		item := timeentry.NewEntryResponse(e)
		if pay, ok := s.entryPay(ctx, e, cache); ok {
			item.Pay = &pay
		}
		items = append(items, item)
	}

	totalPages, showing := pageInfo(total, page, limit)
	return timeentry.ListEntriesResponse{
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Showing:    showing,
		Entries:    items,
	}, nil
}

// payableEntries returns the employee's complete, enabled, not rejected
// entries clocked in within [from, to), oldest first.
func (s *TimeEntryServiceImpl) payableEntries(ctx context.Context, employeeID string, from, to time.Time) ([]timeentry.TimeEntry, error) {
	status := string(timeentry.StatusComplete)
	filter := timeentry.EntryFilter{
		EmployeeID: &employeeID,
		Status:     &status,
		FromTime:   &from,
		ToTime:     &to,
		Page:       1,
		Limit:      100,
	}

	var out []timeentry.TimeEntry
	for {
		page, total, err := s.EntryRepository.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list entries: %w", err)
		}
		for _, e := range page {
			if e.Approval != timeentry.ApprovalRejected {
				out = append(out, e)
			}
		}
		if len(page) == 0 || int64(filter.Page*filter.Limit) >= total {
			break
		}
		filter.Page++
	}

	slices.SortFunc(out, func(a, b timeentry.TimeEntry) int {
		return a.ClockIn.Compare(b.ClockIn)
	})
	return out, nil
}

// weekStart returns the Monday 00:00 UTC of t's ISO week.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// PaySummary totals hours and gross pay for an employee over a date range.
// Hours are recomputed from the breaks, weekly overtime is applied per ISO
// week, and each entry is priced at the rate in effect on its own date.
func (s *TimeEntryServiceImpl) PaySummary(ctx context.Context, req timeentry.PaySummaryRequest) (timeentry.PaySummaryResponse, error) {
	if err := req.Validate(); err != nil {
		return timeentry.PaySummaryResponse{}, err
	}
	entries, err := s.payableEntries(ctx, req.EmployeeID, req.FromTime, req.ToTime)
	if err != nil {
		return timeentry.PaySummaryResponse{}, err
	}

	type weekBucket struct {
		start   time.Time
		entries []timeentry.TimeEntry
		hours   []timeentry.Hours
	}
	var weeks []*weekBucket
	byStart := map[time.Time]*weekBucket{}

	for _, e := range entries {
		if err := s.loadBreaks(ctx, &e); err != nil {
			return timeentry.PaySummaryResponse{}, err
		}
		h, err := timeentry.CalculateHours(e.ClockIn, *e.ClockOut, e.Breaks, s.cfg.DailyOvertimeThreshold)
		if err != nil {
			return timeentry.PaySummaryResponse{}, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		ws := weekStart(e.ClockIn)
		b, ok := byStart[ws]
		if !ok {
			b = &weekBucket{start: ws}
			byStart[ws] = b
			weeks = append(weeks, b)
		}
		b.entries = append(b.entries, e)
		b.hours = append(b.hours, h)
	}

	cache := templateCache{}
	var total payBreakdown
	var all []timeentry.Hours
	resp := timeentry.PaySummaryResponse{
		EmployeeID: req.EmployeeID,
		From:       req.From,
		To:         req.To,
		Entries:    len(entries),
		Weeks:      make([]timeentry.WeekSummary, 0, len(weeks)),
	}

	for _, w := range weeks {
		adjusted := timeentry.ReallocateWeekly(w.hours, s.cfg.WeeklyOvertimeThreshold)
		var weekPay payBreakdown
		for i, e := range w.entries {
			tpl, err := s.templateFor(ctx, e, cache)
			if err != nil {
				return timeentry.PaySummaryResponse{}, fmt.Errorf("failed to resolve pay rate: %w", err)
			}
			weekPay = weekPay.add(computePay(adjusted[i], tpl.HourlyRate, s.cfg.OvertimeMultiplier, tpl.BreakPaid))
		}
		sum := timeentry.SumHours(adjusted)
		resp.Weeks = append(resp.Weeks, timeentry.WeekSummary{
			WeekStart:     w.start.Format("2006-01-02"),
			RegularHours:  sum.RegularHours().StringFixed(2),
			OvertimeHours: sum.OvertimeHours().StringFixed(2),
			Pay:           weekPay.Total().StringFixed(2),
		})
		total = total.add(weekPay)
		all = append(all, adjusted...)
	}

	sum := timeentry.SumHours(all)
	resp.WorkedHours = sum.WorkedHours().StringFixed(2)
	resp.RegularHours = sum.RegularHours().StringFixed(2)
	resp.OvertimeHours = sum.OvertimeHours().StringFixed(2)
	resp.BreakHours = timeentry.MinutesToHours(sum.BreakMinutes).StringFixed(2)
	resp.RegularPay = total.Regular.StringFixed(2)
	resp.OvertimePay = total.Overtime.StringFixed(2)
	resp.BreakPay = total.Break.StringFixed(2)
	resp.TotalPay = total.Total().StringFixed(2)
	return resp, nil
}
