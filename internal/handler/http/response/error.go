package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var violation *timeentry.PolicyViolation
	if errors.As(err, &violation) {
		PolicyViolation(w, violation.Rule, err.Error())
		return
	}

	switch {
	// Time entry errors
	case errors.Is(err, timeentry.ErrEntryNotFound):
		NotFound(w, "Time entry not found")
	case errors.Is(err, timeentry.ErrBreakNotFound):
		NotFound(w, "Break not found")
	case errors.Is(err, timeentry.ErrReminderNotFound):
		NotFound(w, "Reminder not found")
	case errors.Is(err, timeentry.ErrConcurrencyConflict):
		Conflict(w, err.Error())
	case errors.Is(err, timeentry.ErrForbidden):
		Forbidden(w, err.Error())

	// Schedule errors
	case errors.Is(err, schedule.ErrTemplateNotFound):
		NotFound(w, "Schedule template not found")
	case errors.Is(err, schedule.ErrAssignmentNotFound):
		NotFound(w, "Schedule assignment not found")
	case errors.Is(err, schedule.ErrInvalidShiftWindow),
		errors.Is(err, schedule.ErrNegativeMinutes),
		errors.Is(err, schedule.ErrInvalidReminderOffsets),
		errors.Is(err, schedule.ErrInvalidAutoCloseWindow):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
