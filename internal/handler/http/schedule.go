package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type ScheduleHandler interface {
	// Templates
	UpsertTemplate(w http.ResponseWriter, r *http.Request)
	ListTemplates(w http.ResponseWriter, r *http.Request)
	DeleteTemplate(w http.ResponseWriter, r *http.Request)

	// Assignments
	AssignTemplate(w http.ResponseWriter, r *http.Request)
	ListAssignments(w http.ResponseWriter, r *http.Request)

	// Resolution
	Resolve(w http.ResponseWriter, r *http.Request)
}

type scheduleHandlerImpl struct {
	scheduleService schedule.Service
}

func NewScheduleHandler(scheduleService schedule.Service) ScheduleHandler {
	return &scheduleHandlerImpl{
		scheduleService: scheduleService,
	}
}

// ==================== TEMPLATE HANDLERS ====================

func (h *scheduleHandlerImpl) UpsertTemplate(w http.ResponseWriter, r *http.Request) {
	var req schedule.UpsertTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}

	result, err := h.scheduleService.UpsertTemplate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Schedule template saved", schedule.NewTemplateResponse(result))
}

func (h *scheduleHandlerImpl) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.scheduleService.ListTemplates(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results := make([]schedule.TemplateResponse, 0, len(templates))
	for _, t := range templates {
		results = append(results, schedule.NewTemplateResponse(t))
	}
	response.Success(w, results)
}

func (h *scheduleHandlerImpl) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduleService.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Schedule template deleted", nil)
}

// ==================== ASSIGNMENT HANDLERS ====================

func (h *scheduleHandlerImpl) AssignTemplate(w http.ResponseWriter, r *http.Request) {
	var req schedule.AssignTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.scheduleService.AssignTemplate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Schedule assigned successfully", schedule.NewAssignmentResponse(result))
}

func (h *scheduleHandlerImpl) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.scheduleService.ListAssignments(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results := make([]schedule.AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		results = append(results, schedule.NewAssignmentResponse(a))
	}
	response.Success(w, results)
}

// Resolve returns the effective template for an employee at a site on a date.
func (h *scheduleHandlerImpl) Resolve(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	siteID := r.URL.Query().Get("site_id")

	var errs validator.ValidationErrors
	if validator.IsEmpty(siteID) {
		errs.Add("site_id", "site_id is required")
	}
	date := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, ok := validator.IsValidDate(d)
		if !ok {
			errs.Add("date", "date must be in YYYY-MM-DD format")
		}
		// noon keeps the date stable across template time zones
		date = parsed.Add(12 * time.Hour)
	}
	if err := errs.Err(); err != nil {
		response.HandleError(w, err)
		return
	}

	tpl, err := h.scheduleService.Resolve(r.Context(), employeeID, siteID, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, schedule.NewTemplateResponse(tpl))
}
