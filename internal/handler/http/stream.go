package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/sse"
)

// StreamHandler serves live reminder streams to employee devices.
type StreamHandler interface {
	Reminders(w http.ResponseWriter, r *http.Request)
}

type streamHandlerImpl struct {
	hub       *sse.Hub
	keepalive time.Duration
}

func NewStreamHandler(hub *sse.Hub, keepalive time.Duration) StreamHandler {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &streamHandlerImpl{hub: hub, keepalive: keepalive}
}

// Reminders implements StreamHandler. Employee tokens stream their own
// reminders; other tokens must name ?employee_id.
func (h *streamHandlerImpl) Reminders(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := middleware.EmployeeScope(r, r.URL.Query().Get("employee_id"))
	if !ok {
		response.Forbidden(w, "Cannot stream another employee's reminders")
		return
	}
	if employeeID == "" {
		response.BadRequest(w, "employee_id is required", nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(employeeID)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"employee_id\":%q}\n\n", employeeID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				slog.Warn("Failed to encode stream event", "event", event.Name, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
