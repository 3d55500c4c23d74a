package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/timecard-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Env            string
	Version        string
	AllowedOrigins []string
	LogLevel       slog.Level
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	timeEntryHandler TimeEntryHandler,
	reviewHandler ReviewHandler,
	scheduleHandler ScheduleHandler,
	streamHandler StreamHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "timecard"),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  cfg.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(JWTService.JWTAuth(), jwtauth.TokenFromHeader, jwtauth.TokenFromCookie, middleware.TokenFromQuery))
			r.Use(middleware.AuthRequired(JWTService))

			// Punch intake: employees, kiosks and supervisors
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(jwt.PermissionPunch))

				r.Route("/punches", func(r chi.Router) {
					r.Post("/in", timeEntryHandler.PunchIn)
					r.Post("/out", timeEntryHandler.PunchOut)
				})

				r.Route("/entries", func(r chi.Router) {
					r.Get("/", timeEntryHandler.List)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", timeEntryHandler.Get)
						r.Post("/breaks/start", timeEntryHandler.StartBreak)
						r.Post("/breaks/end", timeEntryHandler.EndBreak)
					})
				})

				r.Get("/reminders/stream", streamHandler.Reminders)
				r.Post("/reminders/{id}/ack", timeEntryHandler.AcknowledgeReminder)
				r.Get("/pay-summary", timeEntryHandler.PaySummary)
			})

			// Supervisor review
			r.Route("/review", func(r chi.Router) {
				r.Use(middleware.RequirePermission(jwt.PermissionReview))

				r.Get("/entries", reviewHandler.ListPending)
				r.Post("/entries", timeEntryHandler.CreateManualEntry)
				r.Post("/entries/bulk-approve", reviewHandler.BulkApprove)

				r.Route("/entries/{id}", func(r chi.Router) {
					r.Post("/approve", reviewHandler.Approve)
					r.Post("/reject", reviewHandler.Reject)
					r.Post("/unapprove", reviewHandler.Unapprove)
					r.Put("/clock-out", reviewHandler.EditClockOut)
					r.Post("/dispute", reviewHandler.Dispute)
					r.Post("/disable", reviewHandler.Disable)
					r.Post("/enable", reviewHandler.Enable)
					r.Post("/verify-photo", reviewHandler.ClearManualVerification)
					r.Get("/auto-close", reviewHandler.GetAutoCloseReview)
					r.Post("/auto-close/resolve", reviewHandler.ResolveAutoClose)
				})
			})

			// Schedule administration
			r.Route("/schedules", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(jwt.PermissionReview))
					r.Get("/templates", scheduleHandler.ListTemplates)
					r.Get("/employees/{employeeID}/assignments", scheduleHandler.ListAssignments)
					r.Get("/employees/{employeeID}/resolve", scheduleHandler.Resolve)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(jwt.PermissionSchedule))
					r.Post("/templates", scheduleHandler.UpsertTemplate)
					r.Put("/templates/{id}", scheduleHandler.UpsertTemplate)
					r.Delete("/templates/{id}", scheduleHandler.DeleteTemplate)
					r.Post("/assignments", scheduleHandler.AssignTemplate)
				})
			})
		})
	})
	return r
}
