package timeentry

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
)

type PunchType string

const (
	PunchIn  PunchType = "in"
	PunchOut PunchType = "out"
)

type Outcome string

const (
	OutcomeAccept           Outcome = "accept"
	OutcomeAcceptWithReview Outcome = "accept_with_review"
	OutcomeReject           Outcome = "reject"
)

// PunchCheck is a proposed punch. ShiftDate anchors the scheduled start/end
// and defaults to At; punch-outs pass the entry's clock-in.
type PunchCheck struct {
	At           time.Time
	Type         PunchType
	ShiftDate    time.Time
	Verification verification.Result
}

type PunchDecision struct {
	Outcome                    Outcome
	OffsetMinutes              int // negative when early
	Late                       bool
	RequiresManualVerification bool
	Reason                     string
}

// ValidatePunch decides whether a punch is within the template's policy.
//
// An unset early allowance accepts any early punch-in. The late grace never
// blocks a punch, it only marks it late, and an unset grace never marks it.
// Punch-outs are never rejected; their offset is measured against the
// scheduled end.
func ValidatePunch(tpl schedule.Template, chk PunchCheck) PunchDecision {
	var d PunchDecision

	if tpl.RequireFaceVerification && !(chk.Verification.Attempted && chk.Verification.Passed) {
		d.RequiresManualVerification = true
		d.Reason = "identity not verified, queued for photo review"
	}

	if tpl.IsFlexible() {
		d.Outcome = outcomeFor(d)
		return d
	}

	shiftDate := chk.ShiftDate
	if shiftDate.IsZero() {
		shiftDate = chk.At
	}

	switch chk.Type {
	case PunchIn:
		start := tpl.ScheduledStart(shiftDate)
		d.OffsetMinutes = offsetMinutes(chk.At, start)

		if early := tpl.EarlyPunchAllowedMinutes; early != nil {
			earliest := start.Add(-time.Duration(*early) * time.Minute)
			if chk.At.Before(earliest) {
				return PunchDecision{
					Outcome:       OutcomeReject,
					OffsetMinutes: d.OffsetMinutes,
					Reason: fmt.Sprintf("punch-in at %s is more than %d minutes before the %s shift start",
						chk.At.In(tpl.Location()).Format("15:04"), *early, tpl.StartTime),
				}
			}
		}
		if grace := tpl.LatePunchGraceMinutes; grace != nil {
			d.Late = chk.At.After(start.Add(time.Duration(*grace) * time.Minute))
		}

	case PunchOut:
		d.OffsetMinutes = offsetMinutes(chk.At, tpl.ScheduledEnd(shiftDate))
	}

	d.Outcome = outcomeFor(d)
	return d
}

func outcomeFor(d PunchDecision) Outcome {
	if d.RequiresManualVerification {
		return OutcomeAcceptWithReview
	}
	return OutcomeAccept
}

// offsetMinutes truncates toward zero so 3m59s early reads as -3.
func offsetMinutes(at, ref time.Time) int {
	return int(at.Sub(ref) / time.Minute)
}
