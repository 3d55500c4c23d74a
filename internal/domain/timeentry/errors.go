package timeentry

import (
	"errors"
	"fmt"
)

// ErrPolicyViolation matches every *PolicyViolation through errors.Is.
var ErrPolicyViolation = errors.New("policy violation")

// PolicyViolation is a business-rule refusal surfaced to the caller as-is.
type PolicyViolation struct {
	Rule    string
	Message string
}

func (e *PolicyViolation) Error() string {
	return e.Message
}

// Is matches ErrPolicyViolation and any violation with the same rule.
func (e *PolicyViolation) Is(target error) bool {
	if target == ErrPolicyViolation {
		return true
	}
	t, ok := target.(*PolicyViolation)
	return ok && t.Rule == e.Rule
}

// Violation builds a rule-scoped violation with a formatted message.
func Violation(rule, format string, args ...any) *PolicyViolation {
	return &PolicyViolation{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

var (
	// Punch errors
	ErrOverlappingActiveEntry  = &PolicyViolation{Rule: "overlapping_active_entry", Message: "employee already has an active time entry"}
	ErrOverlappingEntry        = &PolicyViolation{Rule: "overlapping_entry", Message: "entry overlaps an existing entry for this employee"}
	ErrPunchTooEarly           = &PolicyViolation{Rule: "punch_too_early", Message: "punch is earlier than the allowed window"}
	ErrClockOutNotAfterClockIn = &PolicyViolation{Rule: "clock_out_after_clock_in", Message: "clock-out must be after clock-in"}
	ErrNoActiveEntry           = &PolicyViolation{Rule: "no_active_entry", Message: "employee has no active time entry"}
	ErrFutureTimestamp         = &PolicyViolation{Rule: "future_timestamp", Message: "timestamp is in the future"}

	// Break errors
	ErrBreakAlreadyOpen  = &PolicyViolation{Rule: "break_already_open", Message: "a break is already in progress"}
	ErrNoOpenBreak       = &PolicyViolation{Rule: "no_open_break", Message: "no break is in progress"}
	ErrBreakOutsideEntry = &PolicyViolation{Rule: "break_outside_shift", Message: "break must fall within the shift"}
	ErrBreakTooShort     = &PolicyViolation{Rule: "break_too_short", Message: "break is shorter than the required minimum"}
	ErrBreakOverlap      = &PolicyViolation{Rule: "break_overlap", Message: "breaks must not overlap"}

	// Lifecycle errors
	ErrInvalidTransition    = &PolicyViolation{Rule: "invalid_transition", Message: "transition is not allowed from the current state"}
	ErrEntryDisabled        = &PolicyViolation{Rule: "entry_disabled", Message: "entry is disabled"}
	ErrEntryNotDisabled     = &PolicyViolation{Rule: "entry_not_disabled", Message: "entry is not disabled"}
	ErrReviewRequired       = &PolicyViolation{Rule: "supervisor_review_required", Message: "auto-closed entry must be resolved through auto-close review"}
	ErrVerificationRequired = &PolicyViolation{Rule: "manual_verification_required", Message: "punch photo must be verified before approval"}
	ErrNotAutoClosed        = &PolicyViolation{Rule: "not_auto_closed", Message: "entry was not auto-closed"}
	ErrNoManualVerification = &PolicyViolation{Rule: "no_manual_verification", Message: "entry is not awaiting manual verification"}
	ErrReminderNotOwned     = &PolicyViolation{Rule: "reminder_not_owned", Message: "reminder belongs to another employee"}
)

var (
	ErrConcurrencyConflict = errors.New("entry was modified concurrently, reload and retry")
	ErrDeliveryFailure     = errors.New("reminder delivery failed")
	ErrForbidden           = errors.New("actor is not allowed to review time entries")

	ErrEntryNotFound    = errors.New("time entry not found")
	ErrBreakNotFound    = errors.New("break not found")
	ErrReminderNotFound = errors.New("reminder log not found")
)
