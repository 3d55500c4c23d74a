package timeentry

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/shopspring/decimal"
)

// payBreakdown is gross pay for a block of hours at one rate.
type payBreakdown struct {
	Rate     decimal.Decimal
	Regular  decimal.Decimal
	Overtime decimal.Decimal
	Break    decimal.Decimal
}

func (p payBreakdown) Total() decimal.Decimal {
	return p.Regular.Add(p.Overtime).Add(p.Break)
}

func (p payBreakdown) add(o payBreakdown) payBreakdown {
	return payBreakdown{
		Rate:     p.Rate,
		Regular:  p.Regular.Add(o.Regular),
		Overtime: p.Overtime.Add(o.Overtime),
		Break:    p.Break.Add(o.Break),
	}
}

func (p payBreakdown) response() timeentry.PayResponse {
	return timeentry.PayResponse{
		HourlyRate:  p.Rate.StringFixed(2),
		RegularPay:  p.Regular.StringFixed(2),
		OvertimePay: p.Overtime.StringFixed(2),
		BreakPay:    p.Break.StringFixed(2),
		Total:       p.Total().StringFixed(2),
	}
}

// computePay prices regular, overtime and break time. Break time is only paid
// when the template marks breaks as paid.
func computePay(h timeentry.Hours, rate, multiplier decimal.Decimal, breakPaid bool) payBreakdown {
	p := payBreakdown{
		Rate:     rate,
		Regular:  h.RegularHours().Mul(rate).Round(2),
		Overtime: h.OvertimeHours().Mul(rate).Mul(multiplier).Round(2),
		Break:    decimal.Zero,
	}
	if breakPaid {
		p.Break = timeentry.MinutesToHours(h.BreakMinutes).Mul(rate).Round(2)
	}
	return p
}

type templateCache map[string]schedule.Template

// templateFor resolves the template in effect on the entry's clock-in date.
// cache may be nil.
func (s *TimeEntryServiceImpl) templateFor(ctx context.Context, e timeentry.TimeEntry, cache templateCache) (schedule.Template, error) {
	key := e.EmployeeID + "|" + e.SiteID + "|" + e.ClockIn.UTC().Format("2006-01-02")
	if tpl, ok := cache[key]; ok {
		return tpl, nil
	}
	tpl, err := s.resolver.Resolve(ctx, e.EmployeeID, e.SiteID, e.ClockIn)
	if err != nil {
		return schedule.Template{}, err
	}
	if cache != nil {
		cache[key] = tpl
	}
	return tpl, nil
}

// entryPay prices a complete entry from its stored hours. Pay is omitted for
// entries without hours and when the rate cannot be resolved.
func (s *TimeEntryServiceImpl) entryPay(ctx context.Context, e timeentry.TimeEntry, cache templateCache) (timeentry.PayResponse, bool) {
	if e.Status != timeentry.StatusComplete || e.RegularHours == nil {
		return timeentry.PayResponse{}, false
	}
	tpl, err := s.templateFor(ctx, e, cache)
	if err != nil {
		slog.WarnContext(ctx, "failed to resolve pay rate", "entry_id", e.ID, "error", err)
		return timeentry.PayResponse{}, false
	}

	h := timeentry.Hours{}
	if e.BreakMinutes != nil {
		h.BreakMinutes = *e.BreakMinutes
	}
	h.RegularMinutes = int(e.RegularHours.Mul(decimal.NewFromInt(60)).Round(0).IntPart())
	if e.OvertimeHours != nil {
		h.OvertimeMinutes = int(e.OvertimeHours.Mul(decimal.NewFromInt(60)).Round(0).IntPart())
	}
	return computePay(h, tpl.HourlyRate, s.cfg.OvertimeMultiplier, tpl.BreakPaid).response(), true
}
