package timeentry

import "time"

// Event is a lifecycle trigger applied to a TimeEntry.
type Event string

const (
	EventPunchOut          Event = "punch_out"
	EventAutoClose         Event = "auto_close"
	EventBreak             Event = "break"
	EventApprove           Event = "approve"
	EventUnapprove         Event = "unapprove"
	EventReject            Event = "reject"
	EventEdit              Event = "edit"
	EventDispute           Event = "dispute"
	EventDisable           Event = "disable"
	EventEnable            Event = "enable"
	EventClearVerification Event = "clear_verification"
)

// CheckTransition reports whether ev may be applied to e in its current state.
// A disabled entry accepts only EventEnable.
func CheckTransition(e TimeEntry, ev Event) error {
	if e.IsDisabled() {
		if ev == EventEnable {
			return nil
		}
		return ErrEntryDisabled
	}

	ok := false
	switch ev {
	case EventPunchOut, EventAutoClose, EventBreak:
		ok = e.Status == StatusActive
	case EventApprove, EventReject:
		ok = e.Status == StatusComplete && e.Approval == ApprovalPending
	case EventUnapprove:
		ok = e.Status == StatusComplete && e.Approval == ApprovalApproved
	case EventEdit:
		ok = e.Status == StatusComplete || e.Status == StatusDisputed
	case EventDispute:
		ok = e.Status == StatusComplete
	case EventDisable:
		ok = true
	case EventEnable:
		return ErrEntryNotDisabled
	case EventClearVerification:
		if !e.RequiresManualVerification {
			return ErrNoManualVerification
		}
		ok = true
	}
	if !ok {
		return Violation(ErrInvalidTransition.Rule, "cannot %s an entry in state %s", ev, e.State())
	}
	return nil
}

// State renders status and approval for messages, e.g. "complete/pending".
func (e TimeEntry) State() string {
	if e.Status == StatusComplete {
		return string(e.Status) + "/" + string(e.Approval)
	}
	return string(e.Status)
}

// Complete records a punch-out and derives hours from the entry's breaks.
// Every break must lie inside [ClockIn, out]; an open break is closed at out.
func (e *TimeEntry) Complete(out time.Time, method Method, threshold time.Duration) error {
	ev := EventPunchOut
	if method == MethodAutoClose {
		ev = EventAutoClose
	}
	if err := CheckTransition(*e, ev); err != nil {
		return err
	}
	for _, b := range e.Breaks {
		if b.End == nil && !b.Start.Before(out) {
			return Violation(ErrBreakOutsideEntry.Rule, "break %s starts at or after the clock-out", b.ID)
		}
		if b.End != nil && b.End.After(out) {
			return Violation(ErrBreakOutsideEntry.Rule, "break %s ends after the clock-out", b.ID)
		}
	}
	h, err := CalculateHours(e.ClockIn, out, e.Breaks, threshold)
	if err != nil {
		return err
	}
	for i := range e.Breaks {
		if e.Breaks[i].End == nil {
			end := out
			e.Breaks[i].End = &end
		}
	}

	e.ClockOut = &out
	e.PunchOutMethod = &method
	e.Status = StatusComplete
	e.Approval = ApprovalPending
	e.SetHours(h)
	return nil
}

// BreakCorrection lists the breaks AutoClose changed to fit the forced span.
type BreakCorrection struct {
	// Trimmed holds closed breaks whose end was moved back to the clock-out.
	Trimmed []BreakInterval
	// Dropped holds breaks that started at or after the clock-out.
	Dropped []BreakInterval
}

func (c BreakCorrection) Empty() bool {
	return len(c.Trimmed) == 0 && len(c.Dropped) == 0
}

// AutoClose force-closes the entry at out and flags it for supervisor review.
// The scanner cannot refuse a close, so breaks reaching past out are trimmed
// to it and breaks starting at or after out are dropped. The caller persists
// the returned correction.
func (e *TimeEntry) AutoClose(out, at time.Time, rule, reason string, threshold time.Duration) (BreakCorrection, error) {
	if err := CheckTransition(*e, EventAutoClose); err != nil {
		return BreakCorrection{}, err
	}

	var fix BreakCorrection
	kept := make([]BreakInterval, 0, len(e.Breaks))
	for _, b := range e.Breaks {
		if !b.Start.Before(out) {
			fix.Dropped = append(fix.Dropped, b)
			continue
		}
		if b.End != nil && b.End.After(out) {
			end := out
			b.End = &end
			fix.Trimmed = append(fix.Trimmed, b)
		}
		kept = append(kept, b)
	}
	e.Breaks = kept

	if err := e.Complete(out, MethodAutoClose, threshold); err != nil {
		return BreakCorrection{}, err
	}
	e.RequiresSupervisorReview = true
	e.AutoCloseRule = &rule
	e.AutoCloseReason = &reason
	e.AutoClosedAt = &at
	return fix, nil
}

// Approve stamps the verifier. Entries still flagged for auto-close review or
// photo verification are refused until those flags are resolved.
func (e *TimeEntry) Approve(actorID string, at time.Time) error {
	if err := CheckTransition(*e, EventApprove); err != nil {
		return err
	}
	if e.RequiresSupervisorReview {
		return ErrReviewRequired
	}
	if e.RequiresManualVerification {
		return ErrVerificationRequired
	}
	e.Approval = ApprovalApproved
	e.VerifiedBy = &actorID
	e.VerifiedAt = &at
	return nil
}

// Unapprove reverts to pending. Stored hours are left untouched.
func (e *TimeEntry) Unapprove() error {
	if err := CheckTransition(*e, EventUnapprove); err != nil {
		return err
	}
	e.Approval = ApprovalPending
	e.VerifiedBy = nil
	e.VerifiedAt = nil
	return nil
}

func (e *TimeEntry) Reject(actorID, reason string, at time.Time) error {
	if err := CheckTransition(*e, EventReject); err != nil {
		return err
	}
	e.Approval = ApprovalRejected
	e.RejectionReason = &reason
	e.VerifiedBy = &actorID
	e.VerifiedAt = &at
	return nil
}

// EditClockOut moves the clock-out and re-derives hours. The entry returns to
// complete/pending; a dispute is resolved and the review flag cleared.
func (e *TimeEntry) EditClockOut(out time.Time, threshold time.Duration) error {
	if err := CheckTransition(*e, EventEdit); err != nil {
		return err
	}
	if !out.After(e.ClockIn) {
		return ErrClockOutNotAfterClockIn
	}
	for _, b := range e.Breaks {
		if b.End != nil && b.End.After(out) {
			return Violation(ErrBreakOutsideEntry.Rule, "break %s ends after the new clock-out", b.ID)
		}
	}
	h, err := CalculateHours(e.ClockIn, out, e.Breaks, threshold)
	if err != nil {
		return err
	}

	e.ClockOut = &out
	e.Status = StatusComplete
	e.Approval = ApprovalPending
	e.RequiresSupervisorReview = false
	e.RejectionReason = nil
	e.VerifiedBy = nil
	e.VerifiedAt = nil
	e.SetHours(h)
	return nil
}

// Dispute freezes approval actions. Hours are dropped until the entry is edited.
func (e *TimeEntry) Dispute() error {
	if err := CheckTransition(*e, EventDispute); err != nil {
		return err
	}
	e.Status = StatusDisputed
	e.Approval = ApprovalPending
	e.VerifiedBy = nil
	e.VerifiedAt = nil
	e.clearHours()
	return nil
}

func (e *TimeEntry) Disable(actorID string, at time.Time) error {
	if err := CheckTransition(*e, EventDisable); err != nil {
		return err
	}
	e.DisabledBy = &actorID
	e.DisabledAt = &at
	return nil
}

func (e *TimeEntry) Enable() error {
	if err := CheckTransition(*e, EventEnable); err != nil {
		return err
	}
	e.DisabledBy = nil
	e.DisabledAt = nil
	return nil
}

// ClearManualVerification marks a photo-fallback punch as checked.
func (e *TimeEntry) ClearManualVerification() error {
	if err := CheckTransition(*e, EventClearVerification); err != nil {
		return err
	}
	e.RequiresManualVerification = false
	return nil
}

// ResolveReview clears the auto-close review flag without touching hours.
func (e *TimeEntry) ResolveReview() error {
	if e.AutoClosedAt == nil {
		return ErrNotAutoClosed
	}
	if err := CheckTransition(*e, EventEdit); err != nil {
		return err
	}
	e.RequiresSupervisorReview = false
	return nil
}
