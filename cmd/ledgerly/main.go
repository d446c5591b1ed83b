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
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerly/ledgerly/cmd/ledgerly/cli"
	"github.com/ledgerly/ledgerly/internal/app"
	"github.com/ledgerly/ledgerly/internal/auth"
	"github.com/ledgerly/ledgerly/internal/observability"
	"github.com/ledgerly/ledgerly/internal/platform/cache"
	"github.com/ledgerly/ledgerly/internal/platform/db"
	"github.com/ledgerly/ledgerly/jobs"
)

const usage = `usage: ledgerly [command]

commands:
  serve                 run the HTTP API (default)
  verify [--json] [--all]
                        fold every product ledger and report drift
  jobs trigger <name>   enqueue stock:low_stock_scan, stock:ledger_integrity
                        or stock:idempotency_cleanup
  jobs stats            print default queue depth
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
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
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		if err := serve(ctx, stop, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	case "verify":
		os.Exit(verify(ctx, cfg, logger, args))
	case "jobs":
		os.Exit(jobsCommand(ctx, cfg, args))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func openStore(ctx context.Context, cfg *app.Config) (*db.DB, error) {
	store, err := db.Open(ctx, cfg.Store())
	if err != nil {
		return nil, err
	}
	if err := store.Bootstrap(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logger.Info("redis not configured, alert cache and jobs disabled")
	case err != nil:
		logger.Warn("redis unavailable, alert cache and jobs disabled", slog.Any("error", err))
	default:
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	services := app.NewServices(app.ServiceDeps{
		Store:       store,
		Config:      cfg,
		Logger:      logger,
		RedisClient: redisClient,
		Metrics:     metrics,
	})

	params := app.RouterParams{
		Logger:   logger,
		Config:   cfg,
		Verifier: auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthIssuer),
		Health:   store,
		Metrics:  metrics,
	}
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobClient := jobs.NewClient(redisOpts)
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			_ = jobClient.Close()
			_ = inspector.Close()
		}()
		params.JobHandler = jobs.NewHandler(jobClient, inspector, logger)
	}
	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET is empty, API runs unauthenticated")
	}

	router := app.NewRouter(services.Handlers(params, logger))

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("driver", cfg.DBDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func verify(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print a JSON summary")
	all := fs.Bool("all", false, "include consistent products")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		return 1
	}
	defer store.Close()

	services := app.NewServices(app.ServiceDeps{Store: store, Config: cfg, Logger: logger})
	return cli.VerifyCommand(ctx, services.Ledger, cli.VerifyOptions{JSONOutput: *jsonOut, All: *all})
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	helper, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer helper.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		info, err := helper.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := helper.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	return 0
}
