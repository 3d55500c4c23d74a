package timeentry

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
	"github.com/stretchr/testify/assert"
)

func TestValidatePunch(t *testing.T) {
	jakarta := dayShift()
	jakarta.Timezone = "Asia/Jakarta"
	jakarta.LatePunchGraceMinutes = schedule.IntPtr(0)

	noEarly := dayShift()
	noEarly.EarlyPunchAllowedMinutes = nil

	zeroEarly := dayShift()
	zeroEarly.EarlyPunchAllowedMinutes = schedule.IntPtr(0)

	tests := []struct {
		name    string
		tpl     schedule.Template
		chk     PunchCheck
		outcome Outcome
		offset  int
		late    bool
	}{
		{
			name:    "within early allowance",
			tpl:     dayShift(),
			chk:     PunchCheck{At: ts("07:56"), Type: PunchIn},
			outcome: OutcomeAccept, offset: -4,
		},
		{
			name:    "beyond early allowance",
			tpl:     dayShift(),
			chk:     PunchCheck{At: ts("07:50"), Type: PunchIn},
			outcome: OutcomeReject, offset: -10,
		},
		{
			name:    "unset allowance accepts any early punch",
			tpl:     noEarly,
			chk:     PunchCheck{At: ts("05:00"), Type: PunchIn},
			outcome: OutcomeAccept, offset: -180,
		},
		{
			name:    "zero allowance rejects one minute early",
			tpl:     zeroEarly,
			chk:     PunchCheck{At: ts("07:59"), Type: PunchIn},
			outcome: OutcomeReject, offset: -1,
		},
		{
			name:    "unset grace never marks late",
			tpl:     dayShift(),
			chk:     PunchCheck{At: ts("10:00"), Type: PunchIn},
			outcome: OutcomeAccept, offset: 120,
		},
		{
			name:    "zero grace in template timezone",
			tpl:     jakarta,
			chk:     PunchCheck{At: ts("01:01"), Type: PunchIn}, // 08:01 WIB
			outcome: OutcomeAccept, offset: 1, late: true,
		},
		{
			name:    "punch-out measured from shift end of clock-in date",
			tpl:     dayShift(),
			chk:     PunchCheck{At: ts("17:20"), Type: PunchOut, ShiftDate: ts("08:00")},
			outcome: OutcomeAccept, offset: 20,
		},
		{
			name:    "flexible has no offsets",
			tpl:     schedule.Flexible("site-1"),
			chk:     PunchCheck{At: ts("03:00"), Type: PunchIn},
			outcome: OutcomeAccept,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ValidatePunch(tt.tpl, tt.chk)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.offset, d.OffsetMinutes)
			assert.Equal(t, tt.late, d.Late)
			if tt.outcome == OutcomeReject {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestValidatePunch_FaceVerification(t *testing.T) {
	tpl := dayShift()
	tpl.RequireFaceVerification = true

	unverified := ValidatePunch(tpl, PunchCheck{At: ts("08:00"), Type: PunchIn})
	assert.Equal(t, OutcomeAcceptWithReview, unverified.Outcome)
	assert.True(t, unverified.RequiresManualVerification)

	failed := ValidatePunch(tpl, PunchCheck{
		At:           ts("08:00"),
		Type:         PunchIn,
		Verification: verification.Result{Attempted: true, Passed: false},
	})
	assert.True(t, failed.RequiresManualVerification)

	passed := ValidatePunch(tpl, PunchCheck{
		At:           ts("08:00"),
		Type:         PunchIn,
		Verification: verification.Result{Attempted: true, Passed: true},
	})
	assert.Equal(t, OutcomeAccept, passed.Outcome)
	assert.False(t, passed.RequiresManualVerification)
}

func TestOffsetMinutes_TruncatesTowardZero(t *testing.T) {
	ref := ts("08:00")
	assert.Equal(t, -3, offsetMinutes(ref.Add(-3*time.Minute-59*time.Second), ref))
	assert.Equal(t, 3, offsetMinutes(ref.Add(3*time.Minute+59*time.Second), ref))
}
