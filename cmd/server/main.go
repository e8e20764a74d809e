package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/apportionment/internal/application"
	"github.com/eugenenazirov/apportionment/internal/config"
	"github.com/eugenenazirov/apportionment/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	overrides, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "invalid arguments")

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("seats", cfg.Seats),
		zap.Int("bonus", cfg.Bonus),
		zap.Int("max_seats", cfg.MaxSeats),
		zap.String("populations_file", cfg.PopulationsFile),
		zap.Bool("metrics", cfg.EnableMetrics),
		zap.String("log_level", cfg.LogLevel),
	)

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

// parseFlags maps command-line flags onto config overrides. Flags left at
// their sentinel defaults do not override file or environment values.
func parseFlags(args []string) (*config.CLIOverrides, error) {
	app := kingpin.New("apportionment-server", "Apportionment service - distributes seats among subdivisions by the method of equal proportions")
	configFile := app.Flag("config", "Path to YAML configuration file").String()
	port := app.Flag("port", "HTTP port exposed by the service").String()
	populations := app.Flag("populations", "CSV or YAML file with subdivision populations").String()
	seats := app.Flag("seats", "Default house size (set 0 to keep configured value)").Default("0").Int()
	maxSeats := app.Flag("max-seats", "Largest house size a request may ask for (set 0 to keep configured value)").Default("0").Int()
	logLevel := app.Flag("log-level", "Log level: debug, info, warn or error").String()
	bonus := app.Flag("bonus", "Default per-subdivision bonus (set -1 to keep configured value)").Default("-1").Int()
	rps := app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	burst := app.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	overrides := &config.CLIOverrides{ConfigFile: *configFile}
	if *port != "" {
		overrides.Port = port
	}
	if *populations != "" {
		overrides.PopulationsFile = populations
	}
	if *seats > 0 {
		overrides.Seats = seats
	}
	if *bonus >= 0 {
		overrides.Bonus = bonus
	}
	if *maxSeats > 0 {
		overrides.MaxSeats = maxSeats
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}
	if *rps >= 0 {
		overrides.RateLimitRPS = rps
	}
	if *burst >= 0 {
		overrides.RateLimitBurst = burst
	}
	return overrides, nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
