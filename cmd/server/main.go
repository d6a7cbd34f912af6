package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"arcadia/internal/api"
	"arcadia/internal/audit"
	"arcadia/internal/catalog"
	"arcadia/internal/config"
	"arcadia/internal/database"
	"arcadia/internal/events"
	"arcadia/internal/metrics"
	"arcadia/internal/notify"
	"arcadia/internal/reminder"
	"arcadia/internal/reservation"
	"arcadia/internal/service"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("ARCADIA_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Server.APIKey == "" {
		logger.Fatal().Msg("set server.api_key in config")
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hierarchy, err := db.LoadHierarchy(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}
	if problems := hierarchy.Validate(); len(problems) > 0 {
		for _, p := range problems {
			logger.Error().Str("problem", p).Msg("catalog integrity")
		}
		logger.Fatal().Msg("catalog failed validation")
	}

	bus := events.NewBus()
	dispatcher := notify.NewDispatcher(
		&notify.LogTransport{Logger: &logger},
		cfg.Notify.RatePerSecond, cfg.Notify.Burst, &logger)
	dispatcher.Attach(ctx, bus)
	notifier := notify.NewBusNotifier(bus)

	rules := reservation.Rules{
		AdvanceHours:           cfg.AdvanceHours(),
		RestrictedAdvanceHours: cfg.RestrictedAdvanceHours(),
		MaxActivePerCustomer:   cfg.MaxActivePerCustomer(),
	}
	svc := service.New(db, db, hierarchy, notifier, rules, &logger)

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
		svc.UseCache(service.NewAvailabilityCache(rdb, cfg.CacheTTL()))
	}

	if cfg.Reminder.Enabled {
		sweep := reminder.NewService(reminder.Config{
			CheckInterval: cfg.ReminderCheckInterval(),
			HoursBefore:   cfg.Reminder.HoursBefore,
		}, db, notifier, &logger)
		go sweep.Run(ctx)
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg, &logger)
		go backup.Start(ctx)
	}

	auditSvc := audit.NewService(audit.Config{},
		db, func() catalog.Hierarchy { return svc.Hierarchy() }, &logger)
	go auditSvc.Run(ctx)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := api.NewHTTPServer(svc, db, cfg.Server.APIKey, &logger)
	logger.Info().Int("port", port).Msg("reservation server started")
	if err := server.ListenAndServe(ctx, fmt.Sprintf(":%d", port)); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
