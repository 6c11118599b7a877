// cmd/api/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"bloodlink/internal/donation"
	"bloodlink/internal/exchange"
	"bloodlink/internal/httpapi"
	"bloodlink/internal/identity"
	"bloodlink/internal/journal"
	"bloodlink/internal/ledger"
	"bloodlink/internal/notification"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/logger"
	"bloodlink/internal/platform/tracing"
	"bloodlink/internal/request"
	"bloodlink/pkg/txn"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	ctx := context.Background()
	shutdownTracing, err := tracing.Setup(ctx, "bloodlink", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("database unreachable")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	runner := txn.NewRunner(db)
	jnl := journal.New(db)
	stock := ledger.NewService(db, jnl)
	notifier := notification.NewService(db, runner)
	requests := request.NewService(db, runner, stock, notifier, jnl)
	coordinator := exchange.NewCoordinator(requests, stock)
	donations := donation.NewService(db, runner, stock, coordinator, requests, notifier, jnl)
	identities := identity.NewService(db, runner)

	router := httpapi.NewRouter(httpapi.Handlers{
		Identity:      identity.NewHandler(identities),
		Ledger:        ledger.NewHandler(stock),
		Donations:     donation.NewHandler(donations),
		Requests:      request.NewHandler(requests),
		Notifications: notification.NewHandler(notifier),
		Journal:       journal.NewHandler(jnl),
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("bloodlink api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("database close")
	}
}
