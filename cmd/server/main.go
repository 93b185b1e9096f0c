package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/booking-service/internal/config"
	"github.com/iliyamo/booking-service/internal/database"
	"github.com/iliyamo/booking-service/internal/directory"
	"github.com/iliyamo/booking-service/internal/handler"
	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/metrics"
	"github.com/iliyamo/booking-service/internal/middleware"
	"github.com/iliyamo/booking-service/internal/notify"
	"github.com/iliyamo/booking-service/internal/queue"
	"github.com/iliyamo/booking-service/internal/repository"
	"github.com/iliyamo/booking-service/internal/router"
	"github.com/iliyamo/booking-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("failed to migrate schema", "error", err)
		}
		log.Info("schema migrated")
	}

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and profile cache disabled")
	} else {
		defer rdb.Close()
	}

	m := metrics.New("booking_service", prometheus.DefaultRegisterer)

	var notifier service.Notifier
	switch cfg.Notify.Transport {
	case "http":
		notifier = notify.NewHTTPNotifier(cfg.Notify.HTTPBaseURL, cfg.Notify.TaskTimeout)
	default:
		pub := queue.NewPublisher(cfg.Notify.RabbitURL, cfg.Notify.Exchange, log.With("component", "publisher"))
		defer pub.Close()
		notifier = pub
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.Workers, cfg.Notify.QueueSize, cfg.Notify.TaskTimeout, log.With("component", "dispatcher"), m)

	dirClient := directory.NewClient(cfg.UserServiceURL, cfg.UserServiceTTL, log.With("component", "directory"))
	dir := directory.NewCachedClient(dirClient, rdb, cfg.ProfileCacheTTL, log.With("component", "directory-cache"))

	svc := service.NewBookingService(
		repository.NewBookingRepo(db),
		repository.NewLocalUserRepo(db),
		dir,
		notifier,
		dispatcher,
		log.With("component", "booking-service"),
		m,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				log.Error("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String(), "error", v.Error)
				return nil
			}
			log.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String())
			return nil
		},
	}))

	router.RegisterRoutes(e, &handler.HealthHandler{DB: db})
	router.RegisterBookings(e, handler.NewBookingHandler(svc), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log.With("component", "ratelimit")))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env, "notifyTransport", cfg.Notify.Transport)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("pending notifications abandoned", "error", err)
	}
	log.Info("server exited")
}
