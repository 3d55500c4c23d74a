package timeentry

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/validator"
)

// ========================================
// PUNCH DTOs
// ========================================

// Verification carries what the kiosk captured. A nil BiometricPassed means
// no biometric match was attempted.
type Verification struct {
	PIN             string `json:"pin,omitempty"`
	BiometricPassed *bool  `json:"biometric_passed,omitempty"`
}

type PunchInRequest struct {
	EmployeeID   string       `json:"employee_id"`
	SiteID       string       `json:"site_id"`
	Timestamp    string       `json:"timestamp"` // RFC3339, defaults to now
	Method       string       `json:"method"`
	Verification Verification `json:"verification"`

	At time.Time `json:"-"`
}

func (r *PunchInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if validator.IsEmpty(r.SiteID) {
		errs.Add("site_id", "site_id is required")
	}
	if !validator.IsInSlice(r.Method, PunchMethodValues) {
		errs.Add("method", "method must be one of: "+strings.Join(PunchMethodValues, ", "))
	}
	if r.Method == string(MethodPIN) && validator.IsEmpty(r.Verification.PIN) {
		errs.Add("verification.pin", "pin is required for pin punches")
	}
	parseOptionalTimestamp(&errs, "timestamp", r.Timestamp, &r.At)

	return errs.Err()
}

// PunchOutRequest closes the employee's active entry. EntryID takes precedence
// over EmployeeID when both are set.
type PunchOutRequest struct {
	EntryID      string       `json:"entry_id"`
	EmployeeID   string       `json:"employee_id"`
	Timestamp    string       `json:"timestamp"`
	Method       string       `json:"method"`
	Verification Verification `json:"verification"`

	At time.Time `json:"-"`
}

func (r *PunchOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) && validator.IsEmpty(r.EmployeeID) {
		errs.Add("entry_id", "entry_id or employee_id is required")
	}
	if !validator.IsInSlice(r.Method, PunchMethodValues) {
		errs.Add("method", "method must be one of: "+strings.Join(PunchMethodValues, ", "))
	}
	if r.Method == string(MethodPIN) && validator.IsEmpty(r.Verification.PIN) {
		errs.Add("verification.pin", "pin is required for pin punches")
	}
	parseOptionalTimestamp(&errs, "timestamp", r.Timestamp, &r.At)

	return errs.Err()
}

type StartBreakRequest struct {
	EntryID   string `json:"-"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`

	At time.Time `json:"-"`
}

func (r *StartBreakRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	if r.Type == "" {
		r.Type = string(BreakRest)
	}
	if !validator.IsInSlice(r.Type, BreakTypeValues) {
		errs.Add("type", "type must be one of: "+strings.Join(BreakTypeValues, ", "))
	}
	parseOptionalTimestamp(&errs, "timestamp", r.Timestamp, &r.At)

	return errs.Err()
}

type EndBreakRequest struct {
	EntryID   string `json:"-"`
	Timestamp string `json:"timestamp"`

	At time.Time `json:"-"`
}

func (r *EndBreakRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	parseOptionalTimestamp(&errs, "timestamp", r.Timestamp, &r.At)

	return errs.Err()
}

type ManualBreak struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Type  string `json:"type"`
}

// ManualEntryRequest records a shift entered by hand. Without ClockOut the
// entry stays active and counts against the one-active-entry rule.
type ManualEntryRequest struct {
	EmployeeID string        `json:"employee_id"`
	SiteID     string        `json:"site_id"`
	ClockIn    string        `json:"clock_in"`
	ClockOut   *string       `json:"clock_out,omitempty"`
	Breaks     []ManualBreak `json:"breaks,omitempty"`
	Note       string        `json:"note,omitempty"`
	CreatedBy  string        `json:"-"`

	ClockInAt   time.Time       `json:"-"`
	ClockOutAt  *time.Time      `json:"-"`
	BreakPeriod []BreakInterval `json:"-"`
}

func (r *ManualEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if validator.IsEmpty(r.SiteID) {
		errs.Add("site_id", "site_id is required")
	}
	if in, ok := validator.IsValidDateTime(r.ClockIn); ok {
		r.ClockInAt = in.UTC()
	} else {
		errs.Add("clock_in", "clock_in must be an RFC3339 timestamp")
	}
	if r.ClockOut != nil && *r.ClockOut != "" {
		if out, ok := validator.IsValidDateTime(*r.ClockOut); ok {
			out = out.UTC()
			r.ClockOutAt = &out
		} else {
			errs.Add("clock_out", "clock_out must be an RFC3339 timestamp")
		}
	}

	r.BreakPeriod = r.BreakPeriod[:0]
	for _, b := range r.Breaks {
		start, okStart := validator.IsValidDateTime(b.Start)
		end, okEnd := validator.IsValidDateTime(b.End)
		if !okStart || !okEnd {
			errs.Add("breaks", "break start and end must be RFC3339 timestamps")
			continue
		}
		if b.Type == "" {
			b.Type = string(BreakOther)
		}
		if !validator.IsInSlice(b.Type, BreakTypeValues) {
			errs.Add("breaks", "break type must be one of: "+strings.Join(BreakTypeValues, ", "))
			continue
		}
		end = end.UTC()
		r.BreakPeriod = append(r.BreakPeriod, BreakInterval{
			Start:  start.UTC(),
			End:    &end,
			Type:   BreakType(b.Type),
			Manual: true,
		})
	}

	return errs.Err()
}

type AcknowledgeReminderRequest struct {
	ReminderID string `json:"-"`
	EmployeeID string `json:"employee_id"`
}

func (r *AcknowledgeReminderRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ReminderID) {
		errs.Add("reminder_id", "reminder_id is required")
	}
	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}

	return errs.Err()
}

// ========================================
// REVIEW DTOs
// ========================================

// ExpectedVersion on review requests is optional. When set, the action only
// applies if the entry still carries that version.
func validateExpectedVersion(errs *validator.ValidationErrors, v *int) {
	if v != nil && *v < 1 {
		errs.Add("expected_version", "expected_version must be a positive integer")
	}
}

// EntryActionRequest targets one entry with no payload, e.g. approve.
type EntryActionRequest struct {
	EntryID         string `json:"-"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

func (r *EntryActionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	validateExpectedVersion(&errs, r.ExpectedVersion)

	return errs.Err()
}

type RejectRequest struct {
	EntryID         string `json:"-"`
	Reason          string `json:"reason"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

func (r *RejectRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	validateExpectedVersion(&errs, r.ExpectedVersion)
	if validator.IsEmpty(r.Reason) {
		errs.Add("reason", "reason is required")
	}

	return errs.Err()
}

type EditClockOutRequest struct {
	EntryID         string `json:"-"`
	ClockOut        string `json:"clock_out"`
	Note            string `json:"note"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`

	ClockOutAt time.Time `json:"-"`
}

func (r *EditClockOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	validateExpectedVersion(&errs, r.ExpectedVersion)
	if out, ok := validator.IsValidDateTime(r.ClockOut); ok {
		r.ClockOutAt = out.UTC()
	} else {
		errs.Add("clock_out", "clock_out must be an RFC3339 timestamp")
	}

	return errs.Err()
}

type DisputeRequest struct {
	EntryID         string `json:"-"`
	Note            string `json:"note"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

func (r *DisputeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	validateExpectedVersion(&errs, r.ExpectedVersion)
	if validator.IsEmpty(r.Note) {
		errs.Add("note", "note is required when disputing an entry")
	}

	return errs.Err()
}

// NoteRequest is used by review actions where the note is optional.
type NoteRequest struct {
	EntryID         string `json:"-"`
	Note            string `json:"note"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

func (r *NoteRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	validateExpectedVersion(&errs, r.ExpectedVersion)

	return errs.Err()
}

const maxBulkApprove = 500

type BulkApproveRequest struct {
	EntryIDs []string `json:"entry_ids"`
}

func (r *BulkApproveRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.EntryIDs) == 0 {
		errs.Add("entry_ids", "entry_ids must not be empty")
	}
	if len(r.EntryIDs) > maxBulkApprove {
		errs.Add("entry_ids", "entry_ids must not exceed 500 items")
	}
	for _, id := range r.EntryIDs {
		if validator.IsEmpty(id) {
			errs.Add("entry_ids", "entry_ids must not contain empty values")
			break
		}
	}

	return errs.Err()
}

type BulkResult struct {
	EntryID string  `json:"entry_id"`
	OK      bool    `json:"ok"`
	Error   *string `json:"error,omitempty"`
}

type BulkApproveResponse struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []BulkResult `json:"results"`
}

type ResolveDecision string

const (
	DecisionApproveAsIs    ResolveDecision = "approve_as_is"
	DecisionEditAndApprove ResolveDecision = "edit_and_approve"
	DecisionDispute        ResolveDecision = "dispute"
)

var ResolveDecisionValues = []string{
	string(DecisionApproveAsIs),
	string(DecisionEditAndApprove),
	string(DecisionDispute),
}

type ResolveAutoCloseRequest struct {
	EntryID         string  `json:"-"`
	Decision        string  `json:"decision"`
	ClockOut        *string `json:"clock_out,omitempty"`
	Note            string  `json:"note"`
	ExpectedVersion *int    `json:"expected_version,omitempty"`

	ClockOutAt time.Time `json:"-"`
}

func (r *ResolveAutoCloseRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	validateExpectedVersion(&errs, r.ExpectedVersion)
	if !validator.IsInSlice(r.Decision, ResolveDecisionValues) {
		errs.Add("decision", "decision must be one of: "+strings.Join(ResolveDecisionValues, ", "))
	}

	switch ResolveDecision(r.Decision) {
	case DecisionEditAndApprove:
		if r.ClockOut == nil {
			errs.Add("clock_out", "clock_out is required for edit_and_approve")
		} else if out, ok := validator.IsValidDateTime(*r.ClockOut); ok {
			r.ClockOutAt = out.UTC()
		} else {
			errs.Add("clock_out", "clock_out must be an RFC3339 timestamp")
		}
	case DecisionDispute:
		if validator.IsEmpty(r.Note) {
			errs.Add("note", "note is required when disputing an entry")
		}
	}

	return errs.Err()
}

// ========================================
// QUERY DTOs
// ========================================

type EntryFilter struct {
	EmployeeID      *string `json:"employee_id,omitempty"`
	SiteID          *string `json:"site_id,omitempty"`
	From            *string `json:"from,omitempty"` // YYYY-MM-DD, inclusive
	To              *string `json:"to,omitempty"`   // YYYY-MM-DD, inclusive
	Status          *string `json:"status,omitempty"`
	Approval        *string `json:"approval,omitempty"`
	IncludeDisabled bool    `json:"include_disabled"`

	Page  int `json:"page"`
	Limit int `json:"limit"`

	FromTime *time.Time `json:"-"`
	ToTime   *time.Time `json:"-"` // exclusive upper bound
}

func (f *EntryFilter) Validate() error {
	var errs validator.ValidationErrors

	validatePagination(&errs, &f.Page, &f.Limit)

	if f.Status != nil {
		valid := []string{string(StatusActive), string(StatusComplete), string(StatusDisputed)}
		if !validator.IsInSlice(*f.Status, valid) {
			errs.Add("status", "status must be one of: active, complete, disputed")
		}
	}
	if f.Approval != nil {
		valid := []string{string(ApprovalPending), string(ApprovalApproved), string(ApprovalRejected)}
		if !validator.IsInSlice(*f.Approval, valid) {
			errs.Add("approval", "approval must be one of: pending, approved, rejected")
		}
	}

	if f.From != nil && *f.From != "" {
		if d, ok := validator.IsValidDate(*f.From); ok {
			f.FromTime = &d
		} else {
			errs.Add("from", "from must be in YYYY-MM-DD format")
		}
	}
	if f.To != nil && *f.To != "" {
		if d, ok := validator.IsValidDate(*f.To); ok {
			end := d.AddDate(0, 0, 1)
			f.ToTime = &end
		} else {
			errs.Add("to", "to must be in YYYY-MM-DD format")
		}
	}
	if f.FromTime != nil && f.ToTime != nil && !f.ToTime.After(*f.FromTime) {
		errs.Add("to", "to must not be before from")
	}

	return errs.Err()
}

// ReviewFilter selects entries that need a supervisor: pending approval,
// flagged by auto-close, awaiting photo verification, or disputed.
type ReviewFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	SiteID     *string `json:"site_id,omitempty"`

	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *ReviewFilter) Validate() error {
	var errs validator.ValidationErrors
	validatePagination(&errs, &f.Page, &f.Limit)
	return errs.Err()
}

type PaySummaryRequest struct {
	EmployeeID string `json:"employee_id"`
	From       string `json:"from"`
	To         string `json:"to"`

	FromTime time.Time `json:"-"`
	ToTime   time.Time `json:"-"` // exclusive
}

func (r *PaySummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	from, okFrom := validator.IsValidDate(r.From)
	if !okFrom {
		errs.Add("from", "from must be in YYYY-MM-DD format")
	}
	to, okTo := validator.IsValidDate(r.To)
	if !okTo {
		errs.Add("to", "to must be in YYYY-MM-DD format")
	}
	if okFrom && okTo {
		if to.Before(from) {
			errs.Add("to", "to must not be before from")
		} else if to.Sub(from) > 366*24*time.Hour {
			errs.Add("to", "range must not exceed one year")
		}
		r.FromTime = from
		r.ToTime = to.AddDate(0, 0, 1)
	}

	return errs.Err()
}

// ========================================
// RESPONSES
// ========================================

type BreakResponse struct {
	ID     string  `json:"id"`
	Start  string  `json:"start"`
	End    *string `json:"end,omitempty"`
	Type   string  `json:"type"`
	Manual bool    `json:"manual"`
}

type NoteResponse struct {
	Author    string `json:"author"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type PayResponse struct {
	HourlyRate  string `json:"hourly_rate"`
	RegularPay  string `json:"regular_pay"`
	OvertimePay string `json:"overtime_pay"`
	BreakPay    string `json:"break_pay"`
	Total       string `json:"total"`
}

type EntryResponse struct {
	ID             string  `json:"id"`
	EmployeeID     string  `json:"employee_id"`
	SiteID         string  `json:"site_id"`
	ClockIn        string  `json:"clock_in"`
	ClockOut       *string `json:"clock_out,omitempty"`
	PunchInMethod  string  `json:"punch_in_method"`
	PunchOutMethod *string `json:"punch_out_method,omitempty"`
	Status         string  `json:"status"`
	Approval       *string `json:"approval,omitempty"`

	RegularHours  *string `json:"regular_hours,omitempty"`
	OvertimeHours *string `json:"overtime_hours,omitempty"`
	BreakMinutes  *int    `json:"break_minutes,omitempty"`

	PunchInOffsetMinutes       int  `json:"punch_in_offset_minutes"`
	IsLate                     bool `json:"is_late"`
	PunchOutOffsetMinutes      *int `json:"punch_out_offset_minutes,omitempty"`
	RequiresManualVerification bool `json:"requires_manual_verification"`
	RequiresSupervisorReview   bool `json:"requires_supervisor_review"`

	AutoCloseReason *string `json:"auto_close_reason,omitempty"`
	AutoCloseRule   *string `json:"auto_close_rule,omitempty"`
	AutoClosedAt    *string `json:"auto_closed_at,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	VerifiedBy      *string `json:"verified_by,omitempty"`
	VerifiedAt      *string `json:"verified_at,omitempty"`

	Disabled   bool    `json:"disabled"`
	DisabledBy *string `json:"disabled_by,omitempty"`
	DisabledAt *string `json:"disabled_at,omitempty"`

	Pay    *PayResponse    `json:"pay,omitempty"`
	Breaks []BreakResponse `json:"breaks,omitempty"`
	Notes  []NoteResponse  `json:"notes,omitempty"`

	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NewEntryResponse maps an entity. Approval is omitted unless the entry is
// complete, since it carries no meaning in other states.
func NewEntryResponse(e TimeEntry) EntryResponse {
	resp := EntryResponse{
		ID:                         e.ID,
		EmployeeID:                 e.EmployeeID,
		SiteID:                     e.SiteID,
		ClockIn:                    e.ClockIn.UTC().Format(time.RFC3339),
		ClockOut:                   formatTimePtr(e.ClockOut),
		PunchInMethod:              string(e.PunchInMethod),
		Status:                     string(e.Status),
		BreakMinutes:               e.BreakMinutes,
		PunchInOffsetMinutes:       e.PunchInOffsetMinutes,
		IsLate:                     e.IsLate,
		PunchOutOffsetMinutes:      e.PunchOutOffsetMinutes,
		RequiresManualVerification: e.RequiresManualVerification,
		RequiresSupervisorReview:   e.RequiresSupervisorReview,
		AutoCloseReason:            e.AutoCloseReason,
		AutoCloseRule:              e.AutoCloseRule,
		AutoClosedAt:               formatTimePtr(e.AutoClosedAt),
		RejectionReason:            e.RejectionReason,
		VerifiedBy:                 e.VerifiedBy,
		VerifiedAt:                 formatTimePtr(e.VerifiedAt),
		Disabled:                   e.IsDisabled(),
		DisabledBy:                 e.DisabledBy,
		DisabledAt:                 formatTimePtr(e.DisabledAt),
		Version:                    e.Version,
		CreatedAt:                  e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:                  e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if e.PunchOutMethod != nil {
		m := string(*e.PunchOutMethod)
		resp.PunchOutMethod = &m
	}
	if e.Status == StatusComplete {
		a := string(e.Approval)
		resp.Approval = &a
	}
	if e.RegularHours != nil {
		s := e.RegularHours.StringFixed(2)
		resp.RegularHours = &s
	}
	if e.OvertimeHours != nil {
		s := e.OvertimeHours.StringFixed(2)
		resp.OvertimeHours = &s
	}
	for _, b := range e.Breaks {
		resp.Breaks = append(resp.Breaks, BreakResponse{
			ID:     b.ID,
			Start:  b.Start.UTC().Format(time.RFC3339),
			End:    formatTimePtr(b.End),
			Type:   string(b.Type),
			Manual: b.Manual,
		})
	}
	for _, n := range e.Notes {
		resp.Notes = append(resp.Notes, NoteResponse{
			Author:    n.Author,
			Kind:      string(n.Kind),
			Text:      n.Text,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}

type ListEntriesResponse struct {
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
	Showing    string          `json:"showing"`
	Entries    []EntryResponse `json:"entries"`
}

type ReminderResponse struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	SentAt         string  `json:"sent_at"`
	SMSSent        bool    `json:"sms_sent"`
	PushSent       bool    `json:"push_sent"`
	MinutesOverdue int     `json:"minutes_overdue"`
	DeliveryError  *string `json:"delivery_error,omitempty"`
	Acknowledged   bool    `json:"acknowledged"`
	AcknowledgedAt *string `json:"acknowledged_at,omitempty"`
}

func NewReminderResponse(r ReminderLog) ReminderResponse {
	return ReminderResponse{
		ID:             r.ID,
		Type:           string(r.Type),
		SentAt:         r.SentAt.UTC().Format(time.RFC3339),
		SMSSent:        r.SMSSent,
		PushSent:       r.PushSent,
		MinutesOverdue: r.MinutesOverdue,
		DeliveryError:  r.DeliveryError,
		Acknowledged:   r.Acknowledged,
		AcknowledgedAt: formatTimePtr(r.AcknowledgedAt),
	}
}

type AutoCloseReviewResponse struct {
	Entry     EntryResponse      `json:"entry"`
	Reminders []ReminderResponse `json:"reminders"`
}

type WeekSummary struct {
	WeekStart     string `json:"week_start"`
	RegularHours  string `json:"regular_hours"`
	OvertimeHours string `json:"overtime_hours"`
	Pay           string `json:"pay"`
}

type PaySummaryResponse struct {
	EmployeeID    string        `json:"employee_id"`
	From          string        `json:"from"`
	To            string        `json:"to"`
	Entries       int           `json:"entries"`
	WorkedHours   string        `json:"worked_hours"`
	RegularHours  string        `json:"regular_hours"`
	OvertimeHours string        `json:"overtime_hours"`
	BreakHours    string        `json:"break_hours"`
	RegularPay    string        `json:"regular_pay"`
	OvertimePay   string        `json:"overtime_pay"`
	BreakPay      string        `json:"break_pay"`
	TotalPay      string        `json:"total_pay"`
	Weeks         []WeekSummary `json:"weeks"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func parseOptionalTimestamp(errs *validator.ValidationErrors, field, value string, dst *time.Time) {
	if value == "" {
		return
	}
	t, ok := validator.IsValidDateTime(value)
	if !ok {
		errs.Add(field, field+" must be an RFC3339 timestamp")
		return
	}
	*dst = t.UTC()
}

func validatePagination(errs *validator.ValidationErrors, page, limit *int) {
	if *page < 0 {
		errs.Add("page", "page must be a positive number")
	}
	if *page == 0 {
		*page = 1
	}
	if *limit < 0 {
		errs.Add("limit", "limit must be a positive number")
	}
	if *limit == 0 {
		*limit = 20
	}
	if *limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}
}
