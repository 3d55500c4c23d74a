package timeentry

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
	StatusDisputed Status = "disputed"
)

type Approval string

const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
)

// Method is how a punch was captured.
type Method string

const (
	MethodBiometric     Method = "biometric"
	MethodPIN           Method = "pin"
	MethodManual        Method = "manual"
	MethodPhotoFallback Method = "photo_fallback"
	MethodAutoClose     Method = "auto_close"
)

var PunchMethodValues = []string{
	string(MethodBiometric),
	string(MethodPIN),
	string(MethodManual),
	string(MethodPhotoFallback),
}

type BreakType string

const (
	BreakLunch BreakType = "lunch"
	BreakRest  BreakType = "rest"
	BreakOther BreakType = "other"
)

var BreakTypeValues = []string{string(BreakLunch), string(BreakRest), string(BreakOther)}

type ReminderType string

const (
	ReminderFirst     ReminderType = "first"
	ReminderSecond    ReminderType = "second"
	ReminderAutoClose ReminderType = "auto_close"
)

type NoteKind string

const (
	NoteSystem     NoteKind = "system"
	NoteSupervisor NoteKind = "supervisor"
)

// TimeEntry is one shift instance and the unit of truth for payroll.
type TimeEntry struct {
	ID             string
	EmployeeID     string
	SiteID         string
	ClockIn        time.Time
	ClockOut       *time.Time
	PunchInMethod  Method
	PunchOutMethod *Method
	Status         Status
	Approval       Approval

	// Populated only while Status is complete.
	RegularHours  *decimal.Decimal
	OvertimeHours *decimal.Decimal
	BreakMinutes  *int

	PunchInOffsetMinutes       int
	IsLate                     bool
	PunchOutOffsetMinutes      *int
	RequiresManualVerification bool

	RequiresSupervisorReview bool
	AutoCloseReason          *string
	AutoCloseRule            *string
	AutoClosedAt             *time.Time

	RejectionReason *string
	VerifiedBy      *string
	VerifiedAt      *time.Time

	DisabledBy *string
	DisabledAt *time.Time

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	Breaks []BreakInterval
	Notes  []Note
}

// IsOpen reports whether the shift has no clock-out yet.
func (e TimeEntry) IsOpen() bool {
	return e.Status == StatusActive
}

// IsDisabled reports whether the entry is administratively excluded.
func (e TimeEntry) IsDisabled() bool {
	return e.DisabledAt != nil
}

// OpenBreak returns the break currently in progress, if any.
func (e TimeEntry) OpenBreak() *BreakInterval {
	for i := range e.Breaks {
		if e.Breaks[i].End == nil {
			return &e.Breaks[i]
		}
	}
	return nil
}

// clearHours drops derived totals; used whenever the entry leaves complete.
func (e *TimeEntry) clearHours() {
	e.RegularHours = nil
	e.OvertimeHours = nil
	e.BreakMinutes = nil
}

// SetHours stores calculator output on a complete entry.
func (e *TimeEntry) SetHours(h Hours) {
	regular := h.RegularHours()
	overtime := h.OvertimeHours()
	breakMins := h.BreakMinutes
	e.RegularHours = &regular
	e.OvertimeHours = &overtime
	e.BreakMinutes = &breakMins
}

// BreakInterval is a break taken during an entry.
type BreakInterval struct {
	ID        string
	EntryID   string
	Start     time.Time
	End       *time.Time
	Type      BreakType
	Manual    bool
	CreatedAt time.Time
}

// Duration returns the break length, treating an open break as ending at openEnd.
func (b BreakInterval) Duration(openEnd time.Time) time.Duration {
	end := openEnd
	if b.End != nil {
		end = *b.End
	}
	if end.Before(b.Start) {
		return 0
	}
	return end.Sub(b.Start)
}

// ReminderLog is an escalation notice sent for an entry. Rows are insert-only.
// Acknowledged/AcknowledgedAt are read from the acknowledgement table.
type ReminderLog struct {
	ID             string
	EntryID        string
	EmployeeID     string
	Type           ReminderType
	SentAt         time.Time
	SMSSent        bool
	PushSent       bool
	MinutesOverdue int
	DeliveryError  *string
	Acknowledged   bool
	AcknowledgedAt *time.Time
}

// Delivered reports whether at least one channel accepted the notice.
func (r ReminderLog) Delivered() bool {
	return r.DeliveryError == nil && (r.SMSSent || r.PushSent)
}

// Note is an append-only annotation on an entry.
type Note struct {
	ID        string
	EntryID   string
	Author    string
	Kind      NoteKind
	Text      string
	CreatedAt time.Time
}

// Actor is the caller of a review operation. CanReview is decided by the
// caller's authorization layer and is not evaluated here.
type Actor struct {
	ID        string
	CanReview bool
}

// SystemActor is the author recorded for scheduler-driven changes.
const SystemActor = "system:auto-close"
