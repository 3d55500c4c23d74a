package timeentry

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDailyThreshold is the regular-hour limit per entry.
const DefaultDailyThreshold = 8 * time.Hour

var sixty = decimal.NewFromInt(60)

// Hours is the output of CalculateHours. All values are whole minutes.
type Hours struct {
	SpanMinutes     int
	BreakMinutes    int
	WorkedMinutes   int
	RegularMinutes  int
	OvertimeMinutes int
}

func (h Hours) RegularHours() decimal.Decimal  { return MinutesToHours(h.RegularMinutes) }
func (h Hours) OvertimeHours() decimal.Decimal { return MinutesToHours(h.OvertimeMinutes) }
func (h Hours) WorkedHours() decimal.Decimal   { return MinutesToHours(h.WorkedMinutes) }

// MinutesToHours converts minutes to hours rounded to two places.
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(sixty).Round(2)
}

// CalculateHours splits a completed shift into regular and overtime minutes.
//
// Breaks are clipped to [clockIn, clockOut] and overlapping breaks are merged,
// so the result depends only on the covered time. An open break ends at
// clockOut. Every break is subtracted from the worked duration; the template's
// paid-break flag only matters for pay rates downstream.
func CalculateHours(clockIn, clockOut time.Time, breaks []BreakInterval, threshold time.Duration) (Hours, error) {
	if !clockOut.After(clockIn) {
		return Hours{}, ErrClockOutNotAfterClockIn
	}
	if threshold <= 0 {
		threshold = DefaultDailyThreshold
	}

	span := clockOut.Sub(clockIn)
	breakDur := coveredBreakTime(clockIn, clockOut, breaks)
	worked := span - breakDur
	if worked < 0 {
		worked = 0
	}

	workedMins := int(worked / time.Minute)
	thresholdMins := int(threshold / time.Minute)

	regular := workedMins
	overtime := 0
	if workedMins > thresholdMins {
		regular = thresholdMins
		overtime = workedMins - thresholdMins
	}

	return Hours{
		SpanMinutes:     int(span / time.Minute),
		BreakMinutes:    int(breakDur / time.Minute),
		WorkedMinutes:   workedMins,
		RegularMinutes:  regular,
		OvertimeMinutes: overtime,
	}, nil
}

type interval struct {
	start, end time.Time
}

func coveredBreakTime(clockIn, clockOut time.Time, breaks []BreakInterval) time.Duration {
	clipped := make([]interval, 0, len(breaks))
	for _, b := range breaks {
		start := b.Start
		end := clockOut
		if b.End != nil {
			end = *b.End
		}
		if start.Before(clockIn) {
			start = clockIn
		}
		if end.After(clockOut) {
			end = clockOut
		}
		if end.After(start) {
			clipped = append(clipped, interval{start: start, end: end})
		}
	}
	if len(clipped) == 0 {
		return 0
	}

	sort.Slice(clipped, func(i, j int) bool {
		return clipped[i].start.Before(clipped[j].start)
	})

	var total time.Duration
	cur := clipped[0]
	for _, iv := range clipped[1:] {
		if !iv.start.After(cur.end) {
			if iv.end.After(cur.end) {
				cur.end = iv.end
			}
			continue
		}
		total += cur.end.Sub(cur.start)
		cur = iv
	}
	total += cur.end.Sub(cur.start)
	return total
}

// ReallocateWeekly moves regular minutes beyond weeklyThreshold into
// overtime. days must be in chronological order; the returned slice is
// parallel to days. A non-positive threshold returns the input unchanged.
func ReallocateWeekly(days []Hours, weeklyThreshold time.Duration) []Hours {
	out := make([]Hours, len(days))
	copy(out, days)
	if weeklyThreshold <= 0 {
		return out
	}

	limit := int(weeklyThreshold / time.Minute)
	used := 0
	for i := range out {
		allowed := limit - used
		if allowed < 0 {
			allowed = 0
		}
		if out[i].RegularMinutes > allowed {
			out[i].OvertimeMinutes += out[i].RegularMinutes - allowed
			out[i].RegularMinutes = allowed
		}
		used += out[i].RegularMinutes
	}
	return out
}

// SumHours adds up per-entry results.
func SumHours(hours []Hours) Hours {
	var total Hours
	for _, h := range hours {
		total.SpanMinutes += h.SpanMinutes
		total.BreakMinutes += h.BreakMinutes
		total.WorkedMinutes += h.WorkedMinutes
		total.RegularMinutes += h.RegularMinutes
		total.OvertimeMinutes += h.OvertimeMinutes
	}
	return total
}
