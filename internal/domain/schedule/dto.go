package schedule

import (
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// TEMPLATE DTOs
// ========================================

type UpsertTemplateRequest struct {
	ID                       string          `json:"id"`
	Name                     string          `json:"name"`
	SiteID                   string          `json:"site_id"`
	Timezone                 string          `json:"timezone"`
	StartTime                string          `json:"start_time"` // HH:MM
	EndTime                  string          `json:"end_time"`   // HH:MM
	Weekdays                 []int           `json:"weekdays"`   // 0=Sunday ... 6=Saturday
	EarlyPunchAllowedMinutes *int            `json:"early_punch_allowed_minutes"`
	LatePunchGraceMinutes    *int            `json:"late_punch_grace_minutes"`
	BreakMinutes             *int            `json:"break_minutes"`
	BreakPaid                bool            `json:"break_paid"`
	RequireFaceVerification  bool            `json:"require_face_verification"`
	AutoClose                AutoClosePolicy `json:"auto_close"`
}

func (r *UpsertTemplateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs.Add("id", "id is required")
	}
	if validator.IsEmpty(r.Name) {
		errs.Add("name", "name is required")
	}
	if validator.IsEmpty(r.SiteID) {
		errs.Add("site_id", "site_id is required")
	}
	if !validator.IsValidTimeOfDay(r.StartTime) {
		errs.Add("start_time", "start_time must be in HH:MM format")
	}
	if !validator.IsValidTimeOfDay(r.EndTime) {
		errs.Add("end_time", "end_time must be in HH:MM format")
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			errs.Add("timezone", "timezone must be a valid IANA zone name")
		}
	}
	for _, wd := range r.Weekdays {
		if wd < 0 || wd > 6 {
			errs.Add("weekdays", "weekdays must be between 0 (Sunday) and 6 (Saturday)")
			break
		}
	}

	return errs.Err()
}

// ToTemplate converts a validated request. Template invariants are checked separately.
func (r *UpsertTemplateRequest) ToTemplate() Template {
	weekdays := make([]time.Weekday, 0, len(r.Weekdays))
	for _, wd := range r.Weekdays {
		weekdays = append(weekdays, time.Weekday(wd))
	}
	tz := r.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return Template{
		ID:                       r.ID,
		Name:                     r.Name,
		SiteID:                   r.SiteID,
		Timezone:                 tz,
		StartTime:                MustParseTimeOfDay(r.StartTime),
		EndTime:                  MustParseTimeOfDay(r.EndTime),
		Weekdays:                 weekdays,
		EarlyPunchAllowedMinutes: r.EarlyPunchAllowedMinutes,
		LatePunchGraceMinutes:    r.LatePunchGraceMinutes,
		BreakMinutes:             r.BreakMinutes,
		BreakPaid:                r.BreakPaid,
		RequireFaceVerification:  r.RequireFaceVerification,
		AutoClose:                r.AutoClose,
	}
}

type AssignTemplateRequest struct {
	EmployeeID string  `json:"employee_id"`
	SiteID     string  `json:"site_id"`
	TemplateID string  `json:"template_id"`
	HourlyRate string  `json:"hourly_rate"`
	StartDate  string  `json:"start_date"`         // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"` // YYYY-MM-DD
}

func (r *AssignTemplateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if validator.IsEmpty(r.SiteID) {
		errs.Add("site_id", "site_id is required")
	}
	if validator.IsEmpty(r.TemplateID) {
		errs.Add("template_id", "template_id is required")
	}
	if rate, err := decimal.NewFromString(r.HourlyRate); err != nil || rate.IsNegative() {
		errs.Add("hourly_rate", "hourly_rate must be a non-negative decimal")
	}

	start, ok := validator.IsValidDate(r.StartDate)
	if !ok {
		errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
	}
	if r.EndDate != nil && *r.EndDate != "" {
		end, valid := validator.IsValidDate(*r.EndDate)
		if !valid {
			errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
		} else if ok && end.Before(start) {
			errs.Add("end_date", "end_date must not be before start_date")
		}
	}

	return errs.Err()
}

type TemplateResponse struct {
	ID                       string          `json:"id"`
	Name                     string          `json:"name"`
	SiteID                   string          `json:"site_id"`
	Timezone                 string          `json:"timezone"`
	StartTime                string          `json:"start_time"`
	EndTime                  string          `json:"end_time"`
	Weekdays                 []int           `json:"weekdays"`
	EarlyPunchAllowedMinutes *int            `json:"early_punch_allowed_minutes"`
	LatePunchGraceMinutes    *int            `json:"late_punch_grace_minutes"`
	BreakMinutes             *int            `json:"break_minutes"`
	BreakPaid                bool            `json:"break_paid"`
	RequireFaceVerification  bool            `json:"require_face_verification"`
	AutoClose                AutoClosePolicy `json:"auto_close"`
	Source                   string          `json:"source,omitempty"`
	HourlyRate               string          `json:"hourly_rate,omitempty"`
}

func NewTemplateResponse(t Template) TemplateResponse {
	weekdays := make([]int, 0, len(t.Weekdays))
	for _, wd := range t.Weekdays {
		weekdays = append(weekdays, int(wd))
	}
	resp := TemplateResponse{
		ID:                       t.ID,
		Name:                     t.Name,
		SiteID:                   t.SiteID,
		Timezone:                 t.Timezone,
		StartTime:                t.StartTime.String(),
		EndTime:                  t.EndTime.String(),
		Weekdays:                 weekdays,
		EarlyPunchAllowedMinutes: t.EarlyPunchAllowedMinutes,
		LatePunchGraceMinutes:    t.LatePunchGraceMinutes,
		BreakMinutes:             t.BreakMinutes,
		BreakPaid:                t.BreakPaid,
		RequireFaceVerification:  t.RequireFaceVerification,
		AutoClose:                t.AutoClose,
		Source:                   string(t.Source),
	}
	if !t.HourlyRate.IsZero() {
		resp.HourlyRate = t.HourlyRate.StringFixed(2)
	}
	return resp
}

type AssignmentResponse struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employee_id"`
	SiteID     string  `json:"site_id"`
	TemplateID *string `json:"template_id,omitempty"`
	HourlyRate string  `json:"hourly_rate"`
	StartDate  string  `json:"start_date"`
	EndDate    *string `json:"end_date,omitempty"`
}

func NewAssignmentResponse(a Assignment) AssignmentResponse {
	var end *string
	if a.EndDate != nil {
		s := a.EndDate.Format("2006-01-02")
		end = &s
	}
	return AssignmentResponse{
		ID:         a.ID,
		EmployeeID: a.EmployeeID,
		SiteID:     a.SiteID,
		TemplateID: a.TemplateID,
		HourlyRate: a.HourlyRate.StringFixed(2),
		StartDate:  a.StartDate.Format("2006-01-02"),
		EndDate:    end,
	}
}
