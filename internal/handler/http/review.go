package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

// ReviewHandler serves supervisor reconciliation.
type ReviewHandler interface {
	ListPending(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	Unapprove(w http.ResponseWriter, r *http.Request)
	EditClockOut(w http.ResponseWriter, r *http.Request)
	Dispute(w http.ResponseWriter, r *http.Request)
	Disable(w http.ResponseWriter, r *http.Request)
	Enable(w http.ResponseWriter, r *http.Request)
	ClearManualVerification(w http.ResponseWriter, r *http.Request)
	BulkApprove(w http.ResponseWriter, r *http.Request)
	GetAutoCloseReview(w http.ResponseWriter, r *http.Request)
	ResolveAutoClose(w http.ResponseWriter, r *http.Request)
}

type reviewHandlerImpl struct {
	reviewService timeentry.ReviewService
	queryService  timeentry.QueryService
}

func NewReviewHandler(reviewService timeentry.ReviewService, queryService timeentry.QueryService) ReviewHandler {
	return &reviewHandlerImpl{
		reviewService: reviewService,
		queryService:  queryService,
	}
}

var errInvalidIfMatch = errors.New("If-Match must carry a single entry version")

// expectedVersion returns the body's expected_version, falling back to the
// If-Match header. Both absent means the action is not version-checked.
func expectedVersion(r *http.Request, fromBody *int) (*int, error) {
	if fromBody != nil {
		return fromBody, nil
	}
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" {
		return nil, nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errInvalidIfMatch
	}
	return &v, nil
}

// writeEntry sends a review result with its new version as ETag.
func writeEntry(w http.ResponseWriter, message string, result timeentry.EntryResponse) {
	w.Header().Set("ETag", entryETag(result.Version))
	response.SuccessWithMessage(w, message, result)
}

// ListPending implements ReviewHandler.
func (h *reviewHandlerImpl) ListPending(w http.ResponseWriter, r *http.Request) {
	filter := timeentry.ReviewFilter{
		EmployeeID: optionalQuery(r, "employee_id"),
		SiteID:     optionalQuery(r, "site_id"),
	}
	filter.Page, filter.Limit = pagination(r)

	results, err := h.queryService.ListPendingReview(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// Approve implements ReviewHandler.
func (h *reviewHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, h.reviewService.Approve, "Entry approved")
}

func (h *reviewHandlerImpl) entryAction(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, actor timeentry.Actor, req timeentry.EntryActionRequest) (timeentry.EntryResponse, error),
	message string,
) {
	var req timeentry.EntryActionRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	var err error
	if req.ExpectedVersion, err = expectedVersion(r, req.ExpectedVersion); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	result, err := fn(r.Context(), middleware.Actor(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeEntry(w, message, result)
}

// Reject implements ReviewHandler.
func (h *reviewHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	var req timeentry.RejectRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	var err error
	if req.ExpectedVersion, err = expectedVersion(r, req.ExpectedVersion); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	result, err := h.reviewService.Reject(r.Context(), middleware.Actor(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeEntry(w, "Entry rejected", result)
}

// Unapprove implements ReviewHandler.
func (h *reviewHandlerImpl) Unapprove(w http.ResponseWriter, r *http.Request) {
	h.entryAction(w, r, h.reviewService.Unapprove, "Entry returned to pending")
}

// EditClockOut implements ReviewHandler.
func (h *reviewHandlerImpl) EditClockOut(w http.ResponseWriter, r *http.Request) {
	var req timeentry.EditClockOutRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	var err error
	if req.ExpectedVersion, err = expectedVersion(r, req.ExpectedVersion); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	result, err := h.reviewService.EditClockOut(r.Context(), middleware.Actor(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeEntry(w, "Clock-out updated", result)
}

// Dispute implements ReviewHandler.
func (h *reviewHandlerImpl) Dispute(w http.ResponseWriter, r *http.Request) {
	var req timeentry.DisputeRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	var err error
	if req.ExpectedVersion, err = expectedVersion(r, req.ExpectedVersion); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	result, err := h.reviewService.Dispute(r.Context(), middleware.Actor(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeEntry(w, "Entry disputed", result)
}

func (h *reviewHandlerImpl) noteAction(
	w http.ResponseWriter,
	r *http.Request,
	fn func(actor timeentry.Actor, req timeentry.NoteRequest) (timeentry.EntryResponse, error),
	message string,
) {
	var req timeentry.NoteRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	var err error
	if req.ExpectedVersion, err = expectedVersion(r, req.ExpectedVersion); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	result, err := fn(middleware.Actor(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeEntry(w, message, result)
}

// Disable implements ReviewHandler.
func (h *reviewHandlerImpl) Disable(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(actor timeentry.Actor, req timeentry.NoteRequest) (timeentry.EntryResponse, error) {
		return h.reviewService.Disable(r.Context(), actor, req)
	}, "Entry disabled")
}

// Enable implements ReviewHandler.
func (h *reviewHandlerImpl) Enable(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(actor timeentry.Actor, req timeentry.NoteRequest) (timeentry.EntryResponse, error) {
		return h.reviewService.Enable(r.Context(), actor, req)
	}, "Entry enabled")
}

// ClearManualVerification implements ReviewHandler.
func (h *reviewHandlerImpl) ClearManualVerification(w http.ResponseWriter, r *http.Request) {
	h.noteAction(w, r, func(actor timeentry.Actor, req timeentry.NoteRequest) (timeentry.EntryResponse, error) {
		return h.reviewService.ClearManualVerification(r.Context(), actor, req)
	}, "Punch photo verified")
}

// BulkApprove implements ReviewHandler.
func (h *reviewHandlerImpl) BulkApprove(w http.ResponseWriter, r *http.Request) {
	var req timeentry.BulkApproveRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.reviewService.BulkApprove(r.Context(), middleware.Actor(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetAutoCloseReview implements ReviewHandler.
func (h *reviewHandlerImpl) GetAutoCloseReview(w http.ResponseWriter, r *http.Request) {
	result, err := h.reviewService.GetAutoCloseReview(r.Context(), middleware.Actor(r), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ResolveAutoClose implements ReviewHandler.
func (h *reviewHandlerImpl) ResolveAutoClose(w http.ResponseWriter, r *http.Request) {
	var req timeentry.ResolveAutoCloseRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	var err error
	if req.ExpectedVersion, err = expectedVersion(r, req.ExpectedVersion); err != nil {
		response.BadRequest(w, err.Error(), nil)
		return
	}

	result, err := h.reviewService.ResolveAutoClose(r.Context(), middleware.Actor(r), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeEntry(w, "Auto-close resolved", result)
}
