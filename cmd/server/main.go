package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashora/internal/config"
	"cashora/internal/db"
	"cashora/internal/handlers"
	"cashora/internal/logger"
	"cashora/internal/notify"
	"cashora/internal/services"
	"cashora/internal/store"
	"cashora/internal/websocket"

	"github.com/rs/zerolog"
)

func main() {
	log := logger.InitLog()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer database.Close()

	sender, closeSender := newSender(cfg, log)
	defer closeSender()
	dispatcher := notify.NewDispatcher(sender, cfg.NotifyTimeout(), log)

	profiles := store.NewProfileStore(database)
	admins := store.NewAdminStore(database)
	fees := store.NewFeeStore(database)
	limits := store.NewLimitStore(database)
	banks := store.NewBankStore(database)
	transactions := store.NewTransactionStore(database)
	ledger := store.NewLedgerStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	service := services.NewTransactionService(txRunner, services.Stores{
		Profiles:     profiles,
		Fees:         fees,
		Limits:       limits,
		Transactions: transactions,
		Ledger:       ledger,
		Banks:        banks,
		Audit:        audit,
	}, hub, dispatcher, cfg.AdminEmail, log)

	handler := handlers.New(handlers.Deps{
		TxRunner:     txRunner,
		Config:       cfg,
		Log:          log,
		Profiles:     profiles,
		Admins:       admins,
		Fees:         fees,
		Limits:       limits,
		Banks:        banks,
		Transactions: transactions,
		Ledger:       ledger,
		Audit:        audit,
		Service:      service,
		Notifier:     dispatcher,
		Hub:          hub,
	})
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.AppEnv).Msg("cashora API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	dispatcher.Close()
}

// newSender prefers the broker, then the email function, then the log.
func newSender(cfg config.Config, log *zerolog.Logger) (notify.Sender, func()) {
	if cfg.RabbitMQURL != "" {
		sender, err := notify.DialAMQPSender(cfg.RabbitMQURL, cfg.NotifyExchange)
		if err == nil {
			log.Info().Str("exchange", cfg.NotifyExchange).Msg("notifications via rabbitmq")
			return sender, sender.Close
		}
		log.Warn().Err(err).Msg("rabbitmq unavailable, logging notifications instead")
		return notify.NewLogSender(log), func() {}
	}
	if cfg.EmailFunctionURL != "" {
		log.Info().Msg("notifications via email function")
		return notify.NewHTTPSender(cfg.EmailFunctionURL, cfg.EmailAPIKey), func() {}
	}
	return notify.NewLogSender(log), func() {}
}
