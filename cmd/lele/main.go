package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/manajemen-lele/lele/cmd/lele/cli"
	"github.com/manajemen-lele/lele/internal/app"
	"github.com/manajemen-lele/lele/internal/auth"
	"github.com/manajemen-lele/lele/internal/entry"
	"github.com/manajemen-lele/lele/internal/observability"
	reconcilehttp "github.com/manajemen-lele/lele/internal/reconcile/http"
	"github.com/manajemen-lele/lele/internal/shared"
	"github.com/manajemen-lele/lele/internal/view"
	"github.com/manajemen-lele/lele/jobs"
)

const usage = `usage: lele <command> [flags]

commands:
  serve                          run the web application (default)
  export -format pdf|xlsx|csv    render a report file without the server
  users seed -email E -password P
  jobs trigger report:warm|report:export [args]
  jobs stats`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		err = serve(ctx, stop, cfg, logger)
	case "export":
		os.Exit(runExport(ctx, cfg, logger, args))
	case "users":
		os.Exit(runUsers(ctx, cfg, logger, args))
	case "jobs":
		os.Exit(runJobs(ctx, cfg, args))
	case "help", "-h", "--help":
		fmt.Fprintln(os.Stdout, usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	backends, err := app.OpenBackends(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer backends.Close()

	authenticator, err := app.NewAuthenticator(cfg, backends.Pool)
	if err != nil {
		return err
	}

	sessionManager := shared.NewSessionManager(backends.Redis, "lele_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	queue, err := jobs.NewClient(app.QueueOpts(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(app.QueueOpts(cfg))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authHandler := auth.NewHandler(logger, authenticator, templates, sessionManager, csrfManager, cfg.IsProduction())
	entryHandler := entry.NewHandler(logger, backends.Gateway, templates, csrfManager, backends.Reports)
	reportHandler := reconcilehttp.NewHandler(logger, backends.Reports, backends.Exports, queue, templates, csrfManager, metrics)
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		EntryHandler:   entryHandler,
		ReportHandler:  reportHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreBackend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func runExport(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	opts, err := cli.ParseExportArgs(args, os.Stdout, os.Stderr)
	if err != nil {
		return cli.UsageExit(err)
	}

	backends, err := app.OpenBackends(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open backends: %v\n", err)
		return 2
	}
	defer backends.Close()

	return cli.NewExportCLI(backends.Engine, backends.Exports).ExportCommand(ctx, opts)
}

func runUsers(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	if len(args) == 0 || args[0] != "seed" {
		fmt.Fprintln(os.Stderr, "usage: lele users seed -email E -password P")
		return 2
	}
	fs := flag.NewFlagSet("users seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("LELE_SEED_PASSWORD"), "account password")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if cfg.AuthProvider != auth.ProviderLocal {
		fmt.Fprintln(os.Stderr, "users seed requires AUTH_PROVIDER=local")
		return 1
	}

	backends, err := app.OpenBackends(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open backends: %v\n", err)
		return 2
	}
	defer backends.Close()

	registrar := auth.NewLocalAuthenticator(auth.NewPGUserStore(backends.Pool))
	return cli.NewUsersCLI(registrar).SeedCommand(ctx, cli.UserSeedOptions{
		Email:    *email,
		Password: *password,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	})
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: lele jobs trigger <task> [args] | lele jobs stats")
		return 2
	}
	jobsCLI, err := cli.NewJobsCLI(app.QueueOpts(cfg))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: lele jobs trigger report:warm [YYYY-MM] | report:export [format from to]")
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1], args[2:]...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		return printStats(ctx, jobsCLI, os.Stdout, os.Stderr)
	default:
		fmt.Fprintf(os.Stderr, "unknown jobs command %q\n", args[0])
		return 2
	}
}

func printStats(ctx context.Context, jobsCLI *cli.JobsCLI, stdout, stderr io.Writer) int {
	stats, err := jobsCLI.InspectQueue(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "pending=%d active=%d scheduled=%d retry=%d\n", stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	scheduled, err := jobsCLI.ListScheduled(ctx, 5)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	for _, task := range scheduled {
		fmt.Fprintf(stdout, "  %s %s at %s\n", task.ID, task.Type, task.NextProcessAt.Format(time.RFC3339))
	}
	return 0
}
