package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jorgepalis/pymedesk/internal/app"
	"github.com/jorgepalis/pymedesk/internal/cli"
	"github.com/jorgepalis/pymedesk/internal/config"
	"github.com/jorgepalis/pymedesk/internal/logger"
	"github.com/jorgepalis/pymedesk/internal/telemetry"
	"go.uber.org/zap"
)

const serviceName = "pymedesk-storefront"

func main() {
	os.Exit(start())
}

// start runs one command and returns the process exit code. Deferred
// cleanup runs before main exits.
func start() int {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	log, err := logger.New(logger.Options{Service: serviceName, Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		config.Exitf("Error: init logger: %v", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
		shutdown = func(context.Context) error { return nil }
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	return run(ctx, cfg, log)
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) int {
	c, err := app.New(ctx, cfg, app.WithLogger(log))
	if err != nil {
		log.Error("failed to start", zap.Error(err))
		return 1
	}
	defer c.Close()

	err = cli.New(c, os.Stdout, os.Stderr).Run(ctx, os.Args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrUsage):
		os.Stderr.WriteString(err.Error() + "\n")
		return 2
	default:
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
}
