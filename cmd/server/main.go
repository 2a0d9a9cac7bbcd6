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

	"github.com/blog0/narrator/internal/config"
	"github.com/blog0/narrator/internal/triggers"
	"github.com/blog0/narrator/internal/worker"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tasks, err := worker.NewClient(cfg.RedisURL, cfg.AudioTimeout)
	if err != nil {
		log.Fatalf("failed to create task client: %v", err)
	}
	defer tasks.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           triggers.NewRouter(cfg.TriggerAPIToken, tasks, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Trigger API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down trigger API")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Trigger API shutdown failed", "error", err.Error())
	}
}
