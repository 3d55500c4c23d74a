package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/config"
	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	appHTTP "github.com/cmlabs-hris/timecard-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/notify"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/verification"
	"github.com/cmlabs-hris/timecard-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/timecard-backend-go/internal/repository/postgresql"
	scheduleService "github.com/cmlabs-hris/timecard-backend-go/internal/service/schedule"
	timeEntryService "github.com/cmlabs-hris/timecard-backend-go/internal/service/timeentry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

// stores bundles the repositories of one backend.
type stores struct {
	tx          timeentry.TxManager
	entries     timeentry.EntryRepository
	breaks      timeentry.BreakRepository
	reminders   timeentry.ReminderLogRepository
	notes       timeentry.NoteRepository
	templates   schedule.TemplateRepository
	assignments schedule.AssignmentRepository
	pins        interface {
		verification.PINStore
		scheduleService.PINWriter
	}
	close func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.SlogLevel(),
	})).With(slog.String("app", "timecard")))

	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	scheduleSvc := scheduleService.NewScheduleService(st.templates, st.assignments, nil)
	if cfg.App.SeedFile != "" {
		seed, err := scheduleService.LoadSeedFile(cfg.App.SeedFile)
		if err != nil {
			return err
		}
		if err := scheduleService.ApplySeed(ctx, scheduleSvc, st.pins, seed); err != nil {
			return fmt.Errorf("failed to apply schedule seed: %w", err)
		}
		slog.Info("Schedule seed applied",
			"templates", len(seed.Templates),
			"assignments", len(seed.Assignments),
			"pins", len(seed.PINs),
		)
	}

	var sender notify.Sender
	if cfg.Notification.GatewayURL != "" {
		sender = notify.NewWebhookSender(
			cfg.Notification.GatewayURL,
			cfg.Notification.APIKey,
			cfg.Notification.RatePerSec,
			cfg.Notification.Burst,
			cfg.Notification.Timeout,
		)
	} else {
		slog.Warn("NOTIFY_GATEWAY_URL not set, reminders are only logged")
		sender = notify.NewLogSender(slog.Default())
	}
	hub := sse.NewHub(16)
	sender = notify.NewStreamSender(sender, hub)

	timeEntrySvc := timeEntryService.NewTimeEntryService(
		timeEntryService.Deps{
			Tx:        st.tx,
			Entries:   st.entries,
			Breaks:    st.breaks,
			Reminders: st.reminders,
			Notes:     st.notes,
			Resolver:  scheduleSvc,
			Verifier:  verification.NewVerifier(st.pins),
			Sender:    sender,
		},
		timeEntryService.Config{
			DailyOvertimeThreshold:  time.Duration(cfg.Payroll.DailyOvertimeHours) * time.Hour,
			WeeklyOvertimeThreshold: time.Duration(cfg.Payroll.WeeklyOvertimeHours) * time.Hour,
			OvertimeMultiplier:      cfg.Payroll.OvertimeMultiplier,
			MinManualBreak:          cfg.Payroll.MinManualBreak,
			ReminderMaxAttempts:     cfg.Scheduler.MaxAttempts,
			SendTimeout:             cfg.Scheduler.SendTimeout,
			ClockSkew:               cfg.Scheduler.ClockSkew,
		},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry, "timecard")

	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = lock.NewRedisLocker(rdb, "timecard:lock:")
	} else {
		locker = lock.NewLocalLocker()
	}

	scheduler := cron.NewScheduler()
	if cfg.Scheduler.Enabled {
		jobs := cron.NewAutoCloseJobs(timeEntrySvc, locker, m, cron.AutoCloseConfig{
			Interval:    cfg.Scheduler.PollInterval,
			ScanTimeout: cfg.Scheduler.ScanTimeout,
		})
		jobs.RegisterJobs(scheduler)
		scheduler.Start()
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	timeEntryHandler := appHTTP.NewTimeEntryHandler(timeEntrySvc, timeEntrySvc)
	reviewHandler := appHTTP.NewReviewHandler(timeEntrySvc, timeEntrySvc)
	scheduleHandler := appHTTP.NewScheduleHandler(scheduleSvc)
	streamHandler := appHTTP.NewStreamHandler(hub, 30*time.Second)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Env:            cfg.App.Env,
			Version:        version,
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       cfg.App.SlogLevel(),
			Gatherer:       registry,
		},
		JWTService,
		timeEntryHandler,
		reviewHandler,
		scheduleHandler,
		streamHandler,
	)

	// cancelled on shutdown so open reminder streams return
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(cancelBase)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "store", cfg.App.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		scheduler.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	slog.Info("Shutting down server...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.App.Store == config.StoreMemory {
		slog.Warn("STORE=memory, data is lost on restart")
		s := memory.NewStore()
		return stores{
			tx:          s,
			entries:     s.Entries(),
			breaks:      s.Breaks(),
			reminders:   s.Reminders(),
			notes:       s.Notes(),
			templates:   s.Templates(),
			assignments: s.Assignments(),
			pins:        s.PINs(),
			close:       func() {},
		}, nil
	}

	pool := database.DefaultPoolConfig()
	pool.MaxConns = int32(cfg.Database.MaxConns)
	pool.MinConns = int32(cfg.Database.MinConns)

	db, err := database.NewPostgreSQLDB(cfg.Database.DSN(), pool)
	if err != nil {
		return stores{}, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := postgresql.Migrate(ctx, db); err != nil {
		db.Close()
		return stores{}, err
	}

	return stores{
		tx:          postgresql.NewTxManager(db),
		entries:     postgresql.NewTimeEntryRepository(db),
		breaks:      postgresql.NewBreakRepository(db),
		reminders:   postgresql.NewReminderLogRepository(db),
		notes:       postgresql.NewNoteRepository(db),
		templates:   postgresql.NewTemplateRepository(db),
		assignments: postgresql.NewAssignmentRepository(db),
		pins:        postgresql.NewPINRepository(db),
		close:       db.Close,
	}, nil
}
