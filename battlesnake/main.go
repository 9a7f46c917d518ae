// Command battlesnake serves the decision engine over the Battlesnake HTTP API.
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

	"github.com/brensch/snekmax/config"
	"github.com/brensch/snekmax/logging"
	"github.com/brensch/snekmax/server"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger, err := logging.New(os.Stderr, cfg.LogFormat, level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := server.SetupTracing(ctx, cfg.Tracing.Endpoint, cfg.Tracing.Insecure)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	var rec *server.Recorder
	if cfg.Record.Dir != "" {
		rec = server.NewRecorder(cfg.Record.Dir, cfg.Record.FlushRows, logger)
	}

	mc := cfg.Minimax()
	s := server.New(server.Engine{Config: mc}, server.Options{
		Info: server.InfoResponse{
			Author:  cfg.Author,
			Color:   cfg.Color,
			Head:    cfg.Head,
			Tail:    cfg.Tail,
			Version: cfg.Version,
		},
		Budget:   mc.Budget,
		Logger:   logger,
		Recorder: rec,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	// shutdownDone closes once in-flight handlers have returned, so nothing
	// records into the recorder after it is closed.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
	}()

	logger.Info("battlesnake listening", "addr", cfg.Listen, "depth", mc.Depth, "policy", mc.Policy.String(),
		"budget", mc.Budget, "record_dir", cfg.Record.Dir, "tracing", cfg.Tracing.Endpoint != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", "err", err)
		stop()
	}
	<-shutdownDone

	if rec != nil {
		rec.Close()
		if n := rec.Dropped(); n > 0 {
			logger.Warn("decision rows dropped", "rows", n)
		}
	}
	tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(tctx); err != nil {
		logger.Warn("tracing shutdown", "err", err)
	}
}
