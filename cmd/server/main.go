package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"taskboard/internal/api"
	"taskboard/internal/app"
	"taskboard/internal/config"
	"taskboard/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("TASKBOARD_CONFIG"))
	if err != nil {
		logging.New(os.Stderr, logging.Options{}).Fatal("load config", "err", err)
	}
	logger := logging.New(os.Stderr, logging.Options{
		Level:           cfg.Log.Level,
		Format:          cfg.Log.Format,
		Prefix:          "taskboard",
		ReportTimestamp: true,
	})

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}

// run serves the API until ctx is cancelled or a termination signal arrives.
// A listener failure is returned after the app has been closed.
func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.New(a.Service, logger.WithPrefix("api")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
		case <-ctx.Done():
		}
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
		cancel()
	}()

	logger.Info("taskboard listening", "addr", cfg.Addr, "store", cfg.Store.Driver, "suggest", cfg.Suggest.Mode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	<-ctx.Done()
	return nil
}
