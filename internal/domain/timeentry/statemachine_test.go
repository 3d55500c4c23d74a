package timeentry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeEntry() TimeEntry {
	return TimeEntry{
		ID:         "entry-1",
		EmployeeID: "emp-1",
		ClockIn:    at("08:00"),
		Status:     StatusActive,
		Approval:   ApprovalPending,
		Version:    1,
	}
}

func completeEntry(t *testing.T) TimeEntry {
	t.Helper()
	e := activeEntry()
	require.NoError(t, e.Complete(at("17:00"), MethodBiometric, DefaultDailyThreshold))
	return e
}

func TestCheckTransition(t *testing.T) {
	active := activeEntry()
	complete := completeEntry(t)
	approved := completeEntry(t)
	require.NoError(t, approved.Approve("sup-1", at("18:00")))
	disputed := completeEntry(t)
	require.NoError(t, disputed.Dispute())
	disabled := completeEntry(t)
	require.NoError(t, disabled.Disable("sup-1", at("18:00")))

	tests := []struct {
		name  string
		entry TimeEntry
		event Event
		want  error
	}{
		{"punch out active", active, EventPunchOut, nil},
		{"punch out complete", complete, EventPunchOut, ErrInvalidTransition},
		{"break on active", active, EventBreak, nil},
		{"break on complete", complete, EventBreak, ErrInvalidTransition},
		{"approve active", active, EventApprove, ErrInvalidTransition},
		{"approve pending", complete, EventApprove, nil},
		{"approve approved", approved, EventApprove, ErrInvalidTransition},
		{"unapprove pending", complete, EventUnapprove, ErrInvalidTransition},
		{"unapprove approved", approved, EventUnapprove, nil},
		{"edit disputed", disputed, EventEdit, nil},
		{"edit active", active, EventEdit, ErrInvalidTransition},
		{"dispute disputed", disputed, EventDispute, ErrInvalidTransition},
		{"approve disabled", disabled, EventApprove, ErrEntryDisabled},
		{"enable disabled", disabled, EventEnable, nil},
		{"enable enabled", complete, EventEnable, ErrEntryNotDisabled},
		{"clear verification when not flagged", complete, EventClearVerification, ErrNoManualVerification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.entry, tt.event)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrPolicyViolation)
		})
	}
}

func TestComplete_ClosesOpenBreak(t *testing.T) {
	e := activeEntry()
	e.Breaks = []BreakInterval{{ID: "b1", Start: at("12:00")}}

	require.NoError(t, e.Complete(at("17:00"), MethodPIN, DefaultDailyThreshold))

	assert.Equal(t, StatusComplete, e.Status)
	assert.Equal(t, at("17:00"), *e.Breaks[0].End)
	assert.Equal(t, 300, *e.BreakMinutes)
	assert.Equal(t, "4.00", e.RegularHours.StringFixed(2))
	assert.Equal(t, MethodPIN, *e.PunchOutMethod)
}

func TestAutoClose_FlagsReview(t *testing.T) {
	e := activeEntry()
	now := at("18:05")

	fix, err := e.AutoClose(at("18:00"), now, "auto_close_window:60", "no punch-out", DefaultDailyThreshold)
	require.NoError(t, err)
	assert.True(t, fix.Empty())

	assert.True(t, e.RequiresSupervisorReview)
	assert.Equal(t, MethodAutoClose, *e.PunchOutMethod)
	assert.Equal(t, now, *e.AutoClosedAt)
	assert.ErrorIs(t, e.Approve("sup-1", now), ErrReviewRequired)

	require.NoError(t, e.ResolveReview())
	assert.NoError(t, e.Approve("sup-1", now))
}

func TestComplete_RejectsBreakOutsideEntry(t *testing.T) {
	lunchEnd := at("12:30")

	tests := []struct {
		name   string
		breaks []BreakInterval
		out    string
		want   error
	}{
		{"closed break ends after clock-out", []BreakInterval{{ID: "b1", Start: at("12:00"), End: &lunchEnd}}, "12:15", ErrBreakOutsideEntry},
		{"open break starts at clock-out", []BreakInterval{{ID: "b1", Start: at("12:00")}}, "12:00", ErrBreakOutsideEntry},
		{"open break starts after clock-out", []BreakInterval{{ID: "b1", Start: at("12:00")}}, "11:00", ErrBreakOutsideEntry},
		{"closed break ends at clock-out", []BreakInterval{{ID: "b1", Start: at("12:00"), End: &lunchEnd}}, "12:30", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := activeEntry()
			e.Breaks = tt.breaks

			err := e.Complete(at(tt.out), MethodBiometric, DefaultDailyThreshold)

			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, StatusComplete, e.Status)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, StatusActive, e.Status)
			assert.Nil(t, e.ClockOut)
		})
	}
}

func TestAutoClose_ClipsBreaksToForcedSpan(t *testing.T) {
	e := activeEntry()
	lunchEnd := at("12:30")
	lateEnd := at("18:20")
	e.Breaks = []BreakInterval{
		{ID: "lunch", Start: at("12:00"), End: &lunchEnd},
		{ID: "late", Start: at("17:45"), End: &lateEnd},
		{ID: "after", Start: at("18:10")},
	}

	fix, err := e.AutoClose(at("18:00"), at("18:30"), "auto_close_window:60", "no punch-out", DefaultDailyThreshold)

	require.NoError(t, err)
	require.Len(t, fix.Trimmed, 1)
	assert.Equal(t, "late", fix.Trimmed[0].ID)
	assert.Equal(t, at("18:00"), *fix.Trimmed[0].End)
	require.Len(t, fix.Dropped, 1)
	assert.Equal(t, "after", fix.Dropped[0].ID)

	require.Len(t, e.Breaks, 2)
	for _, b := range e.Breaks {
		assert.False(t, b.Start.Before(e.ClockIn))
		assert.False(t, b.End.After(*e.ClockOut))
	}
	assert.Equal(t, 45, *e.BreakMinutes)
}

func TestDispute_ClearsHoursUntilEdited(t *testing.T) {
	e := completeEntry(t)
	require.NoError(t, e.Dispute())

	assert.Equal(t, StatusDisputed, e.Status)
	assert.Nil(t, e.RegularHours)
	assert.Nil(t, e.OvertimeHours)

	require.NoError(t, e.EditClockOut(at("16:00"), DefaultDailyThreshold))
	assert.Equal(t, StatusComplete, e.Status)
	assert.Equal(t, ApprovalPending, e.Approval)
	assert.Equal(t, "8.00", e.RegularHours.StringFixed(2))
}

func TestEditClockOut_Rules(t *testing.T) {
	e := completeEntry(t)
	end := at("16:30")
	e.Breaks = []BreakInterval{{ID: "b1", Start: at("16:00"), End: &end}}

	assert.ErrorIs(t, e.EditClockOut(at("07:00"), DefaultDailyThreshold), ErrClockOutNotAfterClockIn)
	assert.ErrorIs(t, e.EditClockOut(at("16:15"), DefaultDailyThreshold), ErrBreakOutsideEntry)
	assert.NoError(t, e.EditClockOut(at("16:30"), DefaultDailyThreshold))
}

func TestReject_ThenUnapproveIsInvalid(t *testing.T) {
	e := completeEntry(t)
	require.NoError(t, e.Reject("sup-1", "wrong site", time.Now()))

	assert.Equal(t, ApprovalRejected, e.Approval)
	assert.Equal(t, "wrong site", *e.RejectionReason)
	assert.ErrorIs(t, e.Unapprove(), ErrInvalidTransition)
}
