package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perse/carbon-dashboard/internal/api"
	"github.com/perse/carbon-dashboard/internal/app"
	"github.com/perse/carbon-dashboard/internal/config"
	"github.com/perse/carbon-dashboard/internal/pkg/logger"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	ln.Close()
	return nil
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err.Error())
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	app.ConfigureLogging(cfg.Logging)

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		fatal("pre-flight check failed", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fatal("failed to initialize", err)
	}
	defer a.Close()

	if cfg.Labrador.APIKey == "" {
		logger.Warn("LABRADOR_E_API_KEY not set, collector will report errors until configured")
	}
	go a.Collector.Start(ctx)

	if cfg.Report.Enabled {
		go a.Scheduler.Start(ctx)
	} else {
		logger.Info("daily report scheduler disabled")
	}

	h := api.NewHandlers(a.Collector, a.Assembler, a.Generator)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.SetupRoutes(h, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err.Error())
	}
	logger.Info("server stopped")
}
