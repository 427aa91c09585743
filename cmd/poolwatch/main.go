package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/poolwatch/poolwatch/internal/api/http"
	"github.com/poolwatch/poolwatch/internal/config"
	"github.com/poolwatch/poolwatch/internal/occupancy"
	"github.com/poolwatch/poolwatch/internal/scheduler"
	"github.com/poolwatch/poolwatch/internal/store"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	slog.SetDefault(newLogger(*verbose))

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", slog.Any("error", err))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	sampleStore, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open sample store", slog.Any("error", err))
		os.Exit(1)
	}
	defer sampleStore.Close()

	metrics := occupancy.NewMetrics()
	fetcher := occupancy.NewFetcher(cfg.SourceURL, cfg.FetchTimeout)
	service := occupancy.NewService(sampleStore, fetcher, metrics)

	// One cycle must finish (or be abandoned) well before the next
	// interval; the fetch timeout dominates, extraction and the insert
	// are local work.
	sched := scheduler.New(service, cfg.PollingInterval, cfg.Window, cfg.FetchTimeout+20*time.Second)
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "poolwatch",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "poolwatch",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	slog.Info("shutdown signal received, waiting for in-flight work to finish")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", slog.Any("error", err))
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
