package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/openmat-booking/internal/config"
	"github.com/iliyamo/openmat-booking/internal/database"
	"github.com/iliyamo/openmat-booking/internal/handler"
	"github.com/iliyamo/openmat-booking/internal/logger"
	"github.com/iliyamo/openmat-booking/internal/metrics"
	"github.com/iliyamo/openmat-booking/internal/middleware"
	"github.com/iliyamo/openmat-booking/internal/obs"
	"github.com/iliyamo/openmat-booking/internal/queue"
	"github.com/iliyamo/openmat-booking/internal/repository"
	"github.com/iliyamo/openmat-booking/internal/router"
	"github.com/iliyamo/openmat-booking/internal/service"
)

const serviceName = "openmat-booking"

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, serviceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		logrus.WithError(err).Fatal("tracing setup failed")
	}

	dbs := database.Settings{User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName}
	if cfg.MigrateOnStart {
		if err := database.Migrate(dbs); err != nil {
			logrus.WithError(err).Fatal("migrations failed")
		}
	}
	db, err := database.Open(dbs)
	if err != nil {
		logrus.WithError(err).Fatal("database unavailable")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	m := metrics.New()
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, m)

	var publisher service.EventPublisher = service.NopPublisher{}
	consumerDone := make(chan struct{})
	if cfg.QueueEnabled {
		p := service.NewPublisher(cfg.RabbitURL, m)
		defer p.Close()
		publisher = p

		go func() {
			defer close(consumerDone)
			if err := queue.NewConsumer(cfg.RabbitURL, cfg.EventLogDir).Run(ctx); err != nil {
				logrus.WithError(err).Error("event consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}

	clubs := repository.NewClubRepo(db)
	sessions := repository.NewSessionRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Tracing())
	e.Use(middleware.Metrics(m))

	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Auth:      handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), publisher),
		Clubs:     handler.NewClubHandler(clubs, sessions, cache),
		Sessions:  handler.NewSessionHandler(sessions, cache),
		Bookings:  handler.NewBookingHandler(repository.NewBookingRepo(db), publisher, cache, m),
		Cache:     cache,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, m),
		Metrics:   m,
	})

	go func() {
		addr := ":" + cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		logrus.WithError(err).Warn("http shutdown incomplete")
	}
	select {
	case <-consumerDone:
	case <-sctx.Done():
		logrus.Warn("event consumer did not stop in time")
	}
	if err := shutdownTracer(sctx); err != nil {
		logrus.WithError(err).Warn("tracer shutdown incomplete")
	}
}
