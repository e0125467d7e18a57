package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/murmur/internal/app"
	"github.com/sujalbistaa/murmur/internal/config"
	routes "github.com/sujalbistaa/murmur/internal/http"
	. "github.com/sujalbistaa/murmur/internal/log"
	"github.com/sujalbistaa/murmur/internal/quota"
	"github.com/sujalbistaa/murmur/internal/ws"
)

func main() {
	config.LoadDotEnvs()
	cfg, err := config.Load()
	if err != nil {
		Log.WithError(err).Fatal("invalid configuration")
	}
	Init("murmur", cfg.Env, cfg.LogLevel)

	services, err := app.Build(cfg)
	if err != nil {
		Log.WithError(err).Fatal("failed to initialize services")
	}

	hub := ws.NewHub()
	go hub.Run()
	services.Content.Notifier = hub

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if mem, ok := services.Content.Quota.(*quota.MemStore); ok {
		go sweepQuota(ctx, mem)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	routes.SetupRoutes(ctx, router, &routes.Env{
		DB:         services.DB,
		Content:    services.Content,
		Engagement: services.Engagement,
		Reports:    services.Reports,
		Hub:        hub,
	}, routes.Options{AdminToken: cfg.AdminToken, CorsOrigin: cfg.CorsOrigin})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		Log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Log.WithError(err).Fatal("listen failed")
		}
	}()

	<-quit
	Log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		Log.WithError(err).Error("server forced to shutdown")
	}
	cancel()
	hub.Stop()
	services.Close()

	Log.Info("server exiting")
}

func sweepQuota(ctx context.Context, mem *quota.MemStore) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			mem.Sweep()
		}
	}
}
