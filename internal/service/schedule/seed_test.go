package schedule

import (
	"context"
	"strings"
	"testing"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
templates:
  - id: day-shift
    name: Day shift
    site_id: site-1
    timezone: UTC
    start_time: "08:00"
    end_time: "17:00"
    weekdays: [1, 2, 3, 4, 5]
    early_punch_allowed_minutes: 5
    auto_close:
      enabled: true
      first_reminder_minutes: 30
      window_minutes: 120
assignments:
  - employee_id: emp-1
    site_id: site-1
    template_id: day-shift
    hourly_rate: "20.00"
    start_date: "2024-01-01"
pins:
  - employee_id: emp-1
    pin: "4821"
`

func TestApplySeed(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	seed, err := DecodeSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, seed.Templates, 1)
	assert.Equal(t, schedule.MustParseTimeOfDay("08:00"), seed.Templates[0].StartTime)

	// Act
	err = ApplySeed(ctx, svc, store.PINs(), seed)

	// Assert
	require.NoError(t, err)

	tpl, err := svc.Resolve(ctx, "emp-1", "site-1", monday)
	require.NoError(t, err)
	assert.Equal(t, schedule.SourceAssignment, tpl.Source)
	assert.Equal(t, "20.00", tpl.HourlyRate.StringFixed(2))
	require.NotNil(t, tpl.AutoClose.WindowMinutes)
	assert.Equal(t, 120, *tpl.AutoClose.WindowMinutes)

	res, err := verification.NewVerifier(store.PINs()).Verify(ctx, "emp-1", verification.Sample{Method: "pin", PIN: "4821"})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestApplySeed_InvalidTemplate(t *testing.T) {
	svc, store := newService(t)

	seed, err := DecodeSeed(strings.NewReader(`
templates:
  - id: broken
    name: Broken
    site_id: site-1
    start_time: "17:00"
    end_time: "08:00"
`))
	require.NoError(t, err)

	err = ApplySeed(context.Background(), svc, store.PINs(), seed)
	assert.ErrorIs(t, err, schedule.ErrInvalidShiftWindow)
}

func TestDecodeSeed_UnknownField(t *testing.T) {
	_, err := DecodeSeed(strings.NewReader("templates:\n  - id: x\n    colour: red\n"))
	assert.Error(t, err)
}
