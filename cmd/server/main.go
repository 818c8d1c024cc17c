package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/proximity/config"
	"github.com/nandanugg/proximity/module/core"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	if amqpConn != nil {
		defer func() { _ = amqpConn.Close() }()
	}

	mqttHooks := &config.ConnectHooks{}
	mqttClient, err := config.NewMQTT(cfg, mqttHooks)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer mqttClient.Disconnect(250)

	coreModule, err := core.Build(ctx, cfg, db, amqpConn, mqttClient)
	if err != nil {
		log.Fatalf("core module: %v", err)
	}
	defer func() { _ = coreModule.Close() }()
	mqttHooks.Add(coreModule.OnMQTTConnect)

	if err := coreModule.StartSubscribers(); err != nil {
		log.Fatalf("start subscribers: %v", err)
	}
	go coreModule.RunHistoryUpload(ctx)

	r := gin.Default()

	health := config.NewHealthChecker(db, amqpConn, mqttClient, coreModule.Manager)
	health.Register(r)

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: r}
	go func() {
		slog.Info("listening", "port", cfg.HTTPPort, "transport", cfg.HistoryTransport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	if err := coreModule.StopSubscribers(); err != nil {
		slog.Warn("stop subscribers", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// flush whatever was recorded since the last tick
	if err := coreModule.History.PublishHistory(shutdownCtx); err != nil {
		slog.Warn("final history upload failed", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
		os.Exit(1)
	}
}
