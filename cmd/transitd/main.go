package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/EmileSonneveld/itinero-transit/internal/app"
	"github.com/EmileSonneveld/itinero-transit/internal/config"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/report"
)

const version = "1.0.0"

func main() {
	var (
		port = flag.Int("port", 4000, "API server port")
		env  = flag.String("env", "development", "Environment (development|staging|production)")

		configFile = flag.String("config-file", "", "Path to a local JSON configuration file")
		configURL  = flag.String("config-url", "", "URL to a remote JSON configuration file")

		realtimeInterval = flag.Duration("realtime-interval", 30*time.Second, "How often realtime feeds are polled")
		staticInterval   = flag.Duration("static-interval", 24*time.Hour, "How often static bundles are re-downloaded")
	)

	flag.Parse()

	configAuthUser := os.Getenv("CONFIG_AUTH_USER")
	configAuthPass := os.Getenv("CONFIG_AUTH_PASS")

	if err := config.ValidateConfigFlags(configFile, configURL); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	report.SetupSentry()
	defer report.FlushSentry()
	report.ConfigureScope(*env, version)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	client := app.NewPooledClient()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var feeds []models.FeedSource
	var err error
	if *configFile != "" {
		feeds, err = config.LoadConfigFromFile(*configFile)
	} else {
		feeds, err = config.LoadConfigFromURL(ctx, client, *configURL, configAuthUser, configAuthPass)
	}
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if len(feeds) == 0 {
		logger.Error("No feeds found in configuration")
		os.Exit(1)
	}

	cfg := config.NewConfig(*port, *env, feeds)
	application := app.New(cfg, logger, client, version)

	application.StartFeedRefresh(ctx, time.Now().UTC(), *realtimeInterval, *staticInterval)

	if *configURL != "" {
		go application.ConfigService.RefreshConfig(ctx, *configURL, configAuthUser, configAuthPass, time.Minute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env)
	err = srv.ListenAndServe()
	report.ReportError(err, sentry.LevelFatal)
	report.FlushSentry()
	logger.Error(err.Error())
	os.Exit(1)
}
