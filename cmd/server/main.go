package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "temple-vouchers/internal/adapters/web"
	"temple-vouchers/internal/app"
	"temple-vouchers/internal/backend"
	"temple-vouchers/internal/config"
	"temple-vouchers/internal/logging"

	"github.com/hako/durafmt"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log := logging.Init("temple-vouchers", cfg.LogLevel, cfg.AppEnv)

	client := backend.NewClient(cfg.TempleAPIURL, backend.Options{
		Token:    cfg.TempleAPIToken,
		Timeout:  cfg.BackendTimeout,
		CacheTTL: cfg.ReferenceCacheTTL,
		RPS:      cfg.BackendRPS,
	})
	svc := app.NewAppService(client, cfg.SessionTTL)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           webAdapter.NewHandler(svc, cfg.AllowedOrigins),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return logging.WithLogger(context.Background(), log)
		},
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":        addr,
			"session_ttl": durafmt.Parse(cfg.SessionTTL).String(),
			"backend":     cfg.TempleAPIURL,
		}).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	log.Info("server stopped")
}
