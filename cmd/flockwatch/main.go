package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/flockwatch/flockwatch/cmd/flockwatch/cli"
	"github.com/flockwatch/flockwatch/internal/app"
	"github.com/flockwatch/flockwatch/internal/attendance"
	"github.com/flockwatch/flockwatch/internal/auth"
	"github.com/flockwatch/flockwatch/internal/hierarchy"
	"github.com/flockwatch/flockwatch/internal/observability"
	"github.com/flockwatch/flockwatch/internal/platform/cache"
	"github.com/flockwatch/flockwatch/internal/platform/db"
	"github.com/flockwatch/flockwatch/internal/rbac"
	"github.com/flockwatch/flockwatch/internal/reports"
	"github.com/flockwatch/flockwatch/internal/shared"
	"github.com/flockwatch/flockwatch/internal/users"
	"github.com/flockwatch/flockwatch/jobs"
	"github.com/flockwatch/flockwatch/migrations"
	"github.com/flockwatch/flockwatch/report"
)

const usage = `usage: flockwatch <command>

commands:
  serve                          run the HTTP API (default)
  migrate [up|down|status|...]   apply database migrations
  bootstrap-admin -email -name -password
                                 create the first Super Admin
  jobs warmup [year [month]]     enqueue a report cache warmup
  jobs stats                     print default queue statistics
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve", "migrate", "bootstrap-admin", "jobs":
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, args)
	case "bootstrap-admin":
		err = bootstrapAdmin(ctx, cfg, logger, args)
	case "jobs":
		err = jobsCommand(ctx, cfg, args)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(cmd+" failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *app.Config, args []string) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	return db.Migrate(ctx, pool, migrations.FS, command)
}

func bootstrapAdmin(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("bootstrap-admin", flag.ContinueOnError)
	email := fs.String("email", "", "admin email")
	name := fs.String("name", "Administrator", "display name")
	password := fs.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "password, defaults to $BOOTSTRAP_PASSWORD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	u, err := cli.BootstrapAdmin(ctx, users.NewRepository(pool), cli.BootstrapOptions{
		Email:    *email,
		Name:     *name,
		Password: *password,
		Cost:     cfg.BcryptCost,
	})
	if err != nil {
		return err
	}
	logger.Info("super admin created", slog.Int64("user_id", u.ID), slog.String("email", u.Email))
	return nil
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("jobs: expected warmup or stats")
	}
	jc, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = jc.Close() }()

	switch args[0] {
	case "warmup":
		var year, month int
		if len(args) > 1 {
			if year, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("jobs warmup: year: %w", err)
			}
		}
		if len(args) > 2 {
			if month, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("jobs warmup: month: %w", err)
			}
		}
		info, err := jc.TriggerWarmup(ctx, year, month)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "stats":
		stats, err := jc.InspectQueue(ctx)
		if err != nil {
			return err
		}
		stats.Print(os.Stdout)
		return nil
	default:
		return fmt.Errorf("jobs: unknown subcommand %q", args[0])
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv, cfg.AppRelease)
	if err != nil {
		logger.Warn("sentry init", slog.Any("error", err))
	}
	defer flush()

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	if err := observability.SetupScopeMetrics(metrics.Registerer()); err != nil {
		logger.Warn("scope metrics", slog.Any("error", err))
	}
	if err := reports.SetupCacheMetrics(metrics.Registerer()); err != nil {
		logger.Warn("report cache metrics", slog.Any("error", err))
	}

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)
	authMiddleware := auth.NewMiddleware(authService, logger)

	hierarchyRepo := hierarchy.NewRepository(dbpool)
	hierarchyService := hierarchy.NewService(hierarchyRepo, auditLogger, logger)

	attendanceRepo := attendance.NewRepository(dbpool)
	reportCache := reports.NewRedisCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(attendanceRepo, hierarchyRepo, reportCache, logger)
	attendanceService := attendance.NewService(attendanceRepo, hierarchyService, auditLogger, logger).WithInvalidator(reportService)

	usersService := users.NewService(users.NewRepository(dbpool), hierarchyService, auditLogger, logger).WithHashCost(cfg.BcryptCost)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	var pdfRenderer reports.PDFRenderer
	if pdfClient != nil {
		pdfRenderer = pdfClient
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpt)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthMiddleware:    authMiddleware,
		Metrics:           metrics,
		Readiness:         readiness(dbpool, redisClient),
		AuthHandler:       authHandler,
		HierarchyHandler:  hierarchy.NewHandler(logger, hierarchyService, rbacMiddleware),
		AttendanceHandler: attendance.NewHandler(logger, attendanceService, rbacMiddleware),
		UsersHandler:      users.NewHandler(logger, usersService, rbacMiddleware),
		ReportsHandler:    reports.NewHandler(logger, reportService, rbacMiddleware, pdfRenderer, jobClient),
		JobHandler:        jobs.NewHandler(inspector, logger),
		PDFHandler:        report.NewHandler(pdfClient, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func readiness(pool *pgxpool.Pool, rdb *redis.Client) map[string]app.ReadinessCheck {
	return map[string]app.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
}
