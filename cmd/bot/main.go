package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maks-ard/film-bot/internal/admincache"
	"github.com/maks-ard/film-bot/internal/bot"
	"github.com/maks-ard/film-bot/internal/database"
	apperrors "github.com/maks-ard/film-bot/internal/errors"
	"github.com/maks-ard/film-bot/internal/health"
	"github.com/maks-ard/film-bot/internal/jobs"
	jobhandlers "github.com/maks-ard/film-bot/internal/jobs/handlers"
	"github.com/maks-ard/film-bot/internal/lifecycle"
	"github.com/maks-ard/film-bot/internal/middleware"
	"github.com/maks-ard/film-bot/internal/notify"
	"github.com/maks-ard/film-bot/internal/ratelimit"
	"github.com/maks-ard/film-bot/internal/repository"
	"github.com/maks-ard/film-bot/internal/state"
	"github.com/maks-ard/film-bot/internal/user"
	"github.com/maks-ard/film-bot/internal/wizard"
	"github.com/maks-ard/film-bot/pkg/config"
	"github.com/maks-ard/film-bot/pkg/graceful"
	"github.com/maks-ard/film-bot/pkg/logger"
	"github.com/maks-ard/film-bot/pkg/metrics"
	redisclient "github.com/maks-ard/film-bot/pkg/redis"

	_ "github.com/lib/pq"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		return 1
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			slog.Error("failed to init sentry", slog.Any("error", err))
			return 1
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	config.Watch(v, log)

	log.Info("starting film bot", slog.String("env", cfg.AppEnv))

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("failed to open database", slog.Any("error", err))
		return 1
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	// The database may still be starting when the bot comes up.
	err = apperrors.WithRetry(ctx, func() error {
		if err := db.PingContext(ctx); err != nil {
			return apperrors.NewDatabaseError(err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to ping database", slog.Any("error", err))
		return 1
	}

	migrationsDir := cfg.Database.MigrationsDir
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, migrationsDir); err != nil {
		log.Error("failed to apply migrations", slog.Any("error", err))
		return 1
	}

	redisClient, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", slog.Any("error", err))
		return 1
	}

	storage := state.NewRedisStorage(redisClient, log)
	fsm := state.NewStateMachine(storage, log, redisClient)

	userRepo := repository.NewUserRepository(db, log)
	filmRepo := repository.NewFilmRepository(db, log)

	adminFlags := admincache.New(userRepo, redisClient, log)
	userService := user.NewService(userRepo, cfg.Bot.Admins, adminFlags, log)
	wiz := wizard.New(filmRepo, log)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	jobsManager := jobs.NewManager(redisOpt, log)
	notifier := notify.New(jobsManager, log)

	limiter := ratelimit.NewRedisLimiter(redisClient, log)
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, cfg.RateLimit, log)

	b, err := bot.New(*cfg, log, bot.Dependencies{
		FSM:        fsm,
		Films:      filmRepo,
		Users:      userService,
		Wizard:     wiz,
		Notifier:   notifier,
		AdminFlags: adminFlags,
		RateLimit:  rateLimitMw,
		Dedupe:     middleware.Dedupe(redisClient, log),
	})
	if err != nil {
		log.Error("failed to build bot", slog.Any("error", err))
		return 1
	}

	worker := jobs.NewWorker(redisOpt, log)
	worker.RegisterHandler(jobs.TaskTypeNewUserNotice,
		jobhandlers.NewNewUserNotice(b.Telebot(), cfg.Bot.OperatorChatIDs, log))
	if cfg.Bot.AuditChatID != 0 {
		worker.RegisterHandler(jobs.TaskTypeAuditMirror,
			jobhandlers.NewAuditMirror(b.Telebot(), cfg.Bot.AuditChatID, log))
	}

	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
		}
	}()

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient))
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	probes := lifecycle.NewProbes(checker, log)

	collector := metrics.NewSessionCollector(fsm)
	go collector.Run(ctx)

	srv := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           httpHandler(checker, probes, log),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.Server.ShutdownTimeout)

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Error("http server stopped", slog.Any("error", err))
		}
	}()

	go b.Start()
	log.Info("film bot is running")

	<-ctx.Done()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("telegram", func(context.Context) error {
		b.Stop()
		return nil
	})
	shutdown.Register("jobs_worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})
	shutdown.Register("jobs_client", func(context.Context) error {
		return jobsManager.Close()
	})
	shutdown.Register("redis", func(context.Context) error {
		return redisClient.Close()
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
		return 1
	}

	log.Info("film bot stopped")
	return 0
}

func httpHandler(checker *health.Checker, probes *lifecycle.Probes, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())

		status := http.StatusOK
		for _, v := range results {
			if v != "OK" {
				status = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(results)
	})

	mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		if err := probes.Liveness(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := probes.Readiness(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return logger.Middleware(middleware.HTTPLogging(log)(mux))
}
