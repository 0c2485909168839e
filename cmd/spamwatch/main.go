package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.io/infrasutra/spamwatch/internal/api"
	"github.io/infrasutra/spamwatch/internal/classifier"
	"github.io/infrasutra/spamwatch/internal/config"
	"github.io/infrasutra/spamwatch/internal/pipeline"
	"github.io/infrasutra/spamwatch/internal/smtpserver"
	"github.io/infrasutra/spamwatch/internal/sse"
	"github.io/infrasutra/spamwatch/internal/stats"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	scorer := classifier.Select(context.Background(), cfg.ModelPath, logger)

	aggregator := stats.New(cfg.SMTPHost, uint16(cfg.SMTPPort))
	hub := sse.NewHub()
	pipe := pipeline.New(scorer, aggregator, hub, logger)

	apiServer := api.NewServer(pipe, logger)

	smtpAuthCfg := smtpserver.AuthConfig{
		Enabled:  cfg.SMTPAuthEnabled,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	}
	if smtpAuthCfg.Enabled {
		logger.Info("smtp auth enabled", "username", smtpAuthCfg.Username)
	} else {
		logger.Warn("smtp auth disabled; server accepts unauthenticated connections")
	}

	smtpAddr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	smtpSrv := smtpserver.New(pipe, logger, smtpAddr, smtpAuthCfg)

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	httpSrv := &http.Server{
		Addr:    httpAddr,
		Handler: apiServer,
	}

	go func() {
		if err := smtpSrv.ListenAndServe(); err != nil {
			logger.Error("smtp server stopped", "error", err)
		}
	}()

	go func() {
		logger.Info("http server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("shutdown http", "error", err)
	}
	if err := smtpSrv.Close(); err != nil {
		logger.Error("shutdown smtp", "error", err)
	}
}
