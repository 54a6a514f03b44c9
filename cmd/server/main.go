package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/okulikov/shopapi/internal/config"
	"github.com/okulikov/shopapi/internal/es"
	"github.com/okulikov/shopapi/internal/handlers"
	"github.com/okulikov/shopapi/internal/httpserver"
	"github.com/okulikov/shopapi/internal/logging"
	authmw "github.com/okulikov/shopapi/internal/middleware/auth"
	"github.com/okulikov/shopapi/internal/middleware/ratelimit"
	"github.com/okulikov/shopapi/internal/mykafka"
	"github.com/okulikov/shopapi/internal/token"
	"github.com/okulikov/shopapi/internal/validate"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		logger.Error("database init failed", "err", err)
		os.Exit(1)
	}

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := es.NewClient(configuration)
	if err != nil {
		logger.Error("elasticsearch init failed", "err", err)
		os.Exit(1)
	}

	issuer := token.NewIssuer([]byte(configuration.JWT_SECRET), configuration.TOKEN_TTL)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = httpserver.NewHTTPErrorHandler(logger)
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		DB:             db,
		AuthHandler:    &handlers.AuthHandler{DB: db, Issuer: issuer, Producer: prod, CookieSecure: configuration.COOKIE_SECURE},
		ProductHandler: &handlers.ProductHandler{DB: db, Producer: prod},
		UserHandler:    &handlers.UserHandler{DB: db, Producer: prod},
		SearchHandler:  &handlers.SearchHandler{ES: esClient, Index: "product"},
		AuthMW:         &authmw.Middleware{DB: db, Issuer: issuer},
		RateLimit:      ratelimit.New(configuration.RATE_LIMIT_RPS, configuration.RATE_LIMIT_BURST),
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", configuration.ADDR, "env", configuration.ENV)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "err", err)
		}
	}

	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "err", err)
	}

	logger.Info("shutdown complete")
}
