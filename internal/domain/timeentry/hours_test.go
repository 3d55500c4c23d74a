package timeentry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hhmm string) time.Time {
	t, err := time.Parse(time.RFC3339, "2024-03-04T"+hhmm+":00Z")
	if err != nil {
		panic(err)
	}
	return t
}

func brk(start, end string) BreakInterval {
	b := BreakInterval{Start: at(start)}
	if end != "" {
		e := at(end)
		b.End = &e
	}
	return b
}

func TestCalculateHours(t *testing.T) {
	tests := []struct {
		name     string
		in, out  string
		breaks   []BreakInterval
		regular  string
		overtime string
		breakMin int
	}{
		{
			name: "unpaid lunch and overtime", in: "08:30", out: "17:30",
			breaks:  []BreakInterval{brk("12:00", "12:30")},
			regular: "8.00", overtime: "0.50", breakMin: 30,
		},
		{
			name: "short shift", in: "09:00", out: "13:20",
			regular: "4.33", overtime: "0.00",
		},
		{
			name: "overlapping breaks counted once", in: "08:00", out: "17:00",
			breaks:  []BreakInterval{brk("12:00", "12:30"), brk("12:15", "12:45")},
			regular: "8.00", overtime: "0.25", breakMin: 45,
		},
		{
			name: "break clipped to the shift", in: "08:00", out: "12:00",
			breaks:  []BreakInterval{brk("07:30", "08:30"), brk("11:45", "")},
			regular: "3.25", overtime: "0.00", breakMin: 45,
		},
		{
			name: "seconds are floored", in: "08:00", out: "08:00",
			regular: "0.00", overtime: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := at(tt.out)
			if tt.in == tt.out {
				out = out.Add(59 * time.Second)
			}
			h, err := CalculateHours(at(tt.in), out, tt.breaks, DefaultDailyThreshold)
			require.NoError(t, err)
			assert.Equal(t, tt.regular, h.RegularHours().StringFixed(2))
			assert.Equal(t, tt.overtime, h.OvertimeHours().StringFixed(2))
			assert.Equal(t, tt.breakMin, h.BreakMinutes)
		})
	}
}

func TestCalculateHours_ClockOutNotAfterClockIn(t *testing.T) {
	_, err := CalculateHours(at("10:00"), at("10:00"), nil, DefaultDailyThreshold)
	assert.ErrorIs(t, err, ErrClockOutNotAfterClockIn)

	_, err = CalculateHours(at("10:00"), at("09:00"), nil, DefaultDailyThreshold)
	assert.ErrorIs(t, err, ErrClockOutNotAfterClockIn)
}

func TestCalculateHours_IndependentOfBreakOrder(t *testing.T) {
	a := []BreakInterval{brk("10:00", "10:15"), brk("12:00", "12:40"), brk("15:00", "15:10")}
	b := []BreakInterval{a[2], a[0], a[1]}

	h1, err := CalculateHours(at("07:00"), at("18:00"), a, DefaultDailyThreshold)
	require.NoError(t, err)
	h2, err := CalculateHours(at("07:00"), at("18:00"), b, DefaultDailyThreshold)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, h1.WorkedMinutes, h1.RegularMinutes+h1.OvertimeMinutes)
}

func TestReallocateWeekly(t *testing.T) {
	day := Hours{WorkedMinutes: 540, RegularMinutes: 480, OvertimeMinutes: 60}
	days := []Hours{day, day, day, day, day, day}

	out := ReallocateWeekly(days, 40*time.Hour)
	total := SumHours(out)

	assert.Equal(t, 40*60, total.RegularMinutes)
	assert.Equal(t, 6*60+8*60, total.OvertimeMinutes)
	assert.Equal(t, 0, out[5].RegularMinutes)
	assert.Equal(t, 480, days[5].RegularMinutes, "input is not modified")

	assert.Equal(t, days, ReallocateWeekly(days, 0))
}
