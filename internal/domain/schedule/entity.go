package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TemplateSource records where a resolved template came from.
type TemplateSource string

const (
	SourceAssignment TemplateSource = "assignment"
	SourceSnapshot   TemplateSource = "snapshot"
	SourceDefault    TemplateSource = "default"
	SourceOffDay     TemplateSource = "off_day"
)

// TimeOfDay is a wall-clock time without a date, e.g. 08:00.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On places the time of day on the calendar date of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AutoClosePolicy controls reminder escalation and forced punch-out.
// Offsets are minutes past the scheduled shift end.
type AutoClosePolicy struct {
	Enabled               bool `yaml:"enabled" json:"enabled"`
	FirstReminderMinutes  *int `yaml:"first_reminder_minutes" json:"first_reminder_minutes,omitempty"`
	SecondReminderMinutes *int `yaml:"second_reminder_minutes" json:"second_reminder_minutes,omitempty"`
	WindowMinutes         *int `yaml:"window_minutes" json:"window_minutes,omitempty"`
}

// Template is the shift policy applied to an employee at a site.
//
// Optional minute fields use nil for "unrestricted". Zero is a real value:
// an early allowance of 0 rejects every early punch, nil accepts all of them.
type Template struct {
	ID                       string          `yaml:"id"`
	Name                     string          `yaml:"name"`
	SiteID                   string          `yaml:"site_id"`
	Timezone                 string          `yaml:"timezone"`
	StartTime                TimeOfDay       `yaml:"start_time"`
	EndTime                  TimeOfDay       `yaml:"end_time"`
	Weekdays                 []time.Weekday  `yaml:"weekdays"`
	EarlyPunchAllowedMinutes *int            `yaml:"early_punch_allowed_minutes"`
	LatePunchGraceMinutes    *int            `yaml:"late_punch_grace_minutes"`
	BreakMinutes             *int            `yaml:"break_minutes"`
	BreakPaid                bool            `yaml:"break_paid"`
	RequireFaceVerification  bool            `yaml:"require_face_verification"`
	AutoClose                AutoClosePolicy `yaml:"auto_close"`
	CreatedAt                time.Time       `yaml:"-"`
	UpdatedAt                time.Time       `yaml:"-"`

	// Filled by the resolver, not stored on the template.
	HourlyRate decimal.Decimal `yaml:"-"`
	Source     TemplateSource  `yaml:"-"`
}

// Flexible is the unrestricted policy used when no assignment applies.
func Flexible(siteID string) Template {
	return Template{
		Name:      "flexible",
		SiteID:    siteID,
		Timezone:  "UTC",
		StartTime: TimeOfDay{Hour: 0, Minute: 0},
		EndTime:   TimeOfDay{Hour: 23, Minute: 59},
		Source:    SourceDefault,
	}
}

// IsFlexible reports whether the template places no timing restrictions.
func (t Template) IsFlexible() bool {
	return t.Source == SourceDefault || t.Source == SourceOffDay
}

// Location loads the template timezone, falling back to UTC.
func (t Template) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorksOn reports whether day is an active weekday. No weekdays means every day.
func (t Template) WorksOn(day time.Time) bool {
	if len(t.Weekdays) == 0 {
		return true
	}
	wd := day.In(t.Location()).Weekday()
	for _, d := range t.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// ScheduledStart returns the shift start on the shift date containing day.
func (t Template) ScheduledStart(day time.Time) time.Time {
	return t.StartTime.On(day, t.Location())
}

// ScheduledEnd returns the shift end on the shift date containing day.
func (t Template) ScheduledEnd(day time.Time) time.Time {
	return t.EndTime.On(day, t.Location())
}

// Validate enforces the template invariants.
func (t Template) Validate() error {
	if t.EndTime.Minutes() <= t.StartTime.Minutes() {
		return ErrInvalidShiftWindow
	}
	for _, v := range []*int{t.EarlyPunchAllowedMinutes, t.LatePunchGraceMinutes, t.BreakMinutes} {
		if v != nil && *v < 0 {
			return ErrNegativeMinutes
		}
	}

	ac := t.AutoClose
	offsets := make([]int, 0, 3)
	for _, v := range []*int{ac.FirstReminderMinutes, ac.SecondReminderMinutes} {
		if v != nil {
			if *v < 0 {
				return ErrNegativeMinutes
			}
			offsets = append(offsets, *v)
		}
	}
	if ac.SecondReminderMinutes != nil && ac.FirstReminderMinutes == nil {
		return ErrInvalidReminderOffsets
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] <= offsets[i-1] {
			return ErrInvalidReminderOffsets
		}
	}
	if ac.WindowMinutes != nil {
		if *ac.WindowMinutes <= 0 {
			return ErrInvalidAutoCloseWindow
		}
		for _, o := range offsets {
			if o >= *ac.WindowMinutes {
				return ErrInvalidReminderOffsets
			}
		}
	}
	if ac.Enabled && ac.WindowMinutes == nil && ac.FirstReminderMinutes == nil {
		return ErrInvalidAutoCloseWindow
	}
	return nil
}

// Assignment binds an employee at a site to a template.
//
// Snapshot is the template as it looked when the assignment was made. The
// resolver only falls back to it when the referenced template no longer exists.
type Assignment struct {
	ID         string
	EmployeeID string
	SiteID     string
	TemplateID *string
	Snapshot   *Template
	HourlyRate decimal.Decimal
	StartDate  time.Time
	EndDate    *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CoversDate reports whether the assignment is in effect on date.
func (a Assignment) CoversDate(date time.Time) bool {
	d := truncateDay(date)
	if d.Before(truncateDay(a.StartDate)) {
		return false
	}
	if a.EndDate != nil && d.After(truncateDay(*a.EndDate)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IntPtr is a small helper for optional minute fields.
func IntPtr(v int) *int {
	return &v
}
