package schedule

import "errors"

var (
	// Template Errors
	ErrTemplateNotFound       = errors.New("schedule template not found")
	ErrInvalidShiftWindow     = errors.New("shift end time must be after start time")
	ErrNegativeMinutes        = errors.New("minute offsets must not be negative")
	ErrInvalidReminderOffsets = errors.New("reminder offsets must be strictly increasing and less than the auto-close window")
	ErrInvalidAutoCloseWindow = errors.New("auto-close window must be a positive number of minutes")

	// Assignment Errors
	ErrAssignmentNotFound = errors.New("schedule assignment not found")
)
