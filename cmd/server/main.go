package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hooksink/hooksink/config"
	"github.com/hooksink/hooksink/internal/cache"
	"github.com/hooksink/hooksink/internal/server"
	"github.com/hooksink/hooksink/internal/sink"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if cfg.Server.Debug {
		dump, _ := yaml.Marshal(cfg)
		fmt.Fprintf(os.Stderr, "effective configuration:\n%s", dump)
	}

	store := cache.New(cfg.Cache.MaxSize, cfg.Cache.TTL.Std(), logger)
	defer store.Close()
	if cfg.Cache.SweepInterval > 0 {
		store.StartSweeper(cfg.Cache.SweepInterval.Std())
	}

	var textfile *sink.Textfile
	if cfg.Outputs.Textfile.Enabled {
		textfile = sink.NewTextfile(cfg.Outputs.Textfile.Directory, cfg.Outputs.Textfile.FileName, store, logger)
	}
	var pusher *sink.Pushgateway
	if cfg.Outputs.Pushgateway.Enabled {
		pusher = sink.NewPushgateway(cfg.Outputs.Pushgateway.URL, cfg.Outputs.Pushgateway.Job, store, logger)
	}
	flusher := sink.NewFlusher(textfile, pusher, logger)

	srv, err := server.New(cfg, store, flusher, logger)
	if err != nil {
		logger.Fatal("building server", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	go func() {
		logger.Info("starting server",
			zap.String("addr", addr),
			zap.String("webhook_basepath", cfg.Server.WebhookBasepath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
