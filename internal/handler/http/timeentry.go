package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
)

type TimeEntryHandler interface {
	PunchIn(w http.ResponseWriter, r *http.Request)
	PunchOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	AcknowledgeReminder(w http.ResponseWriter, r *http.Request)
	CreateManualEntry(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	PaySummary(w http.ResponseWriter, r *http.Request)
}

type timeEntryHandlerImpl struct {
	punchService timeentry.PunchService
	queryService timeentry.QueryService
}

func NewTimeEntryHandler(punchService timeentry.PunchService, queryService timeentry.QueryService) TimeEntryHandler {
	return &timeEntryHandlerImpl{
		punchService: punchService,
		queryService: queryService,
	}
}

// decodeBody reads an optional JSON body. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func pagination(r *http.Request) (page, limit int) {
	page, limit = 1, 20
	if p := r.URL.Query().Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil && limitNum > 0 {
			limit = limitNum
		}
	}
	return page, limit
}

// entryETag renders an entry version the way If-Match expects it back.
func entryETag(version int) string {
	return `"` + strconv.Itoa(version) + `"`
}

func optionalQuery(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

// ownsEntry lets employee tokens touch only their own entries.
func (h *timeEntryHandlerImpl) ownsEntry(w http.ResponseWriter, r *http.Request, entryID string) bool {
	claims, err := jwt.ClaimsFromContext(r.Context())
	if err != nil {
		response.Unauthorized(w, "Invalid token")
		return false
	}
	if claims.Role != jwt.RoleEmployee {
		return true
	}
	entry, err := h.queryService.GetEntry(r.Context(), entryID)
	if err != nil {
		response.HandleError(w, err)
		return false
	}
	if entry.EmployeeID != claims.EmployeeID {
		response.Forbidden(w, "Entry belongs to another employee")
		return false
	}
	return true
}

// PunchIn implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) PunchIn(w http.ResponseWriter, r *http.Request) {
	var req timeentry.PunchInRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	employeeID, ok := middleware.EmployeeScope(r, req.EmployeeID)
	if !ok {
		response.Forbidden(w, "Cannot punch for another employee")
		return
	}
	req.EmployeeID = employeeID
	if req.SiteID == "" {
		if claims, err := jwt.ClaimsFromContext(r.Context()); err == nil {
			req.SiteID = claims.SiteID
		}
	}

	result, err := h.punchService.PunchIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Punch in successful", result)
}

// PunchOut implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) PunchOut(w http.ResponseWriter, r *http.Request) {
	var req timeentry.PunchOutRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if req.EntryID != "" {
		if !h.ownsEntry(w, r, req.EntryID) {
			return
		}
	} else {
		employeeID, ok := middleware.EmployeeScope(r, req.EmployeeID)
		if !ok {
			response.Forbidden(w, "Cannot punch for another employee")
			return
		}
		req.EmployeeID = employeeID
	}

	result, err := h.punchService.PunchOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// StartBreak implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	var req timeentry.StartBreakRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	if !h.ownsEntry(w, r, req.EntryID) {
		return
	}

	result, err := h.punchService.StartBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// EndBreak implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	var req timeentry.EndBreakRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	if !h.ownsEntry(w, r, req.EntryID) {
		return
	}

	result, err := h.punchService.EndBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// AcknowledgeReminder implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) AcknowledgeReminder(w http.ResponseWriter, r *http.Request) {
	var req timeentry.AcknowledgeReminderRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ReminderID = chi.URLParam(r, "id")

	employeeID, ok := middleware.EmployeeScope(r, req.EmployeeID)
	if !ok {
		response.Forbidden(w, "Cannot acknowledge another employee's reminder")
		return
	}
	req.EmployeeID = employeeID

	if err := h.punchService.AcknowledgeReminder(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Reminder acknowledged", nil)
}

// CreateManualEntry implements TimeEntryHandler. Mounted behind the review permission.
func (h *timeEntryHandlerImpl) CreateManualEntry(w http.ResponseWriter, r *http.Request) {
	var req timeentry.ManualEntryRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.CreatedBy = middleware.Actor(r).ID

	result, err := h.punchService.CreateManualEntry(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Manual entry created", result)
}

// Get implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.queryService.GetEntry(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if employeeID, ok := middleware.EmployeeScope(r, result.EmployeeID); !ok || employeeID != result.EmployeeID {
		response.Forbidden(w, "Entry belongs to another employee")
		return
	}

	w.Header().Set("ETag", entryETag(result.Version))
	response.Success(w, result)
}

// List implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := timeentry.EntryFilter{
		EmployeeID: optionalQuery(r, "employee_id"),
		SiteID:     optionalQuery(r, "site_id"),
		From:       optionalQuery(r, "from"),
		To:         optionalQuery(r, "to"),
		Status:     optionalQuery(r, "status"),
		Approval:   optionalQuery(r, "approval"),
	}
	filter.IncludeDisabled, _ = strconv.ParseBool(r.URL.Query().Get("include_disabled"))
	filter.Page, filter.Limit = pagination(r)

	requested := ""
	if filter.EmployeeID != nil {
		requested = *filter.EmployeeID
	}
	employeeID, ok := middleware.EmployeeScope(r, requested)
	if !ok {
		response.Forbidden(w, "Cannot list another employee's entries")
		return
	}
	if employeeID != "" {
		filter.EmployeeID = &employeeID
	}

	results, err := h.queryService.ListEntries(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// PaySummary implements TimeEntryHandler.
func (h *timeEntryHandlerImpl) PaySummary(w http.ResponseWriter, r *http.Request) {
	req := timeentry.PaySummaryRequest{
		EmployeeID: r.URL.Query().Get("employee_id"),
		From:       r.URL.Query().Get("from"),
		To:         r.URL.Query().Get("to"),
	}

	employeeID, ok := middleware.EmployeeScope(r, req.EmployeeID)
	if !ok {
		response.Forbidden(w, "Cannot read another employee's pay summary")
		return
	}
	req.EmployeeID = employeeID

	result, err := h.queryService.PaySummary(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
