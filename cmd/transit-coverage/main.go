package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	coverage "github.com/theoremus-urban-solutions/transit-coverage"
	"github.com/theoremus-urban-solutions/transit-coverage/config"
	"github.com/theoremus-urban-solutions/transit-coverage/fetch"
	"github.com/theoremus-urban-solutions/transit-coverage/stops"
	"github.com/theoremus-urban-solutions/transit-coverage/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (default: ./config.yml)")
	status := flag.Bool("status", false, "print cache status and exit")
	dryRun := flag.Bool("dry-run", false, "list isochrones that would be fetched, no mutation")
	limit := flag.Int("limit", 170, "max isochrones to fetch this run (0 = unlimited)")
	flag.Parse()

	// Secrets come from the environment; .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := coverage.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	st := store.New(cfg.Cache.Root)
	table, err := stops.Load(cfg.Stops.Path, &cfg.Stops, logger)
	if err != nil {
		logger.Fatal("load stops table", zap.Error(err))
	}

	if *status {
		for _, row := range coverage.CacheStatus(table, st, cfg) {
			fmt.Println(row)
		}
		return
	}

	var client *fetch.Client
	if token := os.Getenv("MAPBOX_API_TOKEN"); token != "" {
		client = fetch.NewClient(&cfg.API, token, logger)
	} else {
		logger.Warn("MAPBOX_API_TOKEN not set, running offline over the existing cache")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := coverage.NewPipeline(cfg, st, table, client, logger)
	summary, err := pipeline.Run(ctx, coverage.Options{Limit: *limit, DryRun: *dryRun})
	if err != nil {
		logger.Error("pipeline aborted", zap.Error(err))
		os.Exit(1)
	}
	if summary.Failed() {
		logger.Error("run failed: nothing succeeded")
		os.Exit(1)
	}
}
