package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Saharshbhardwaj/early-health-guardian1/internal/api"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/config"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/cron"
	"github.com/Saharshbhardwaj/early-health-guardian1/internal/store"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	runOnce    = flag.String("once", "", "Run a batch job once and exit: dispatch, goals, or all")
	version    = "dev"
)

func main() {
	flag.Parse()

	if len(flag.Args()) > 0 && flag.Args()[0] == "version" {
		fmt.Printf("Early Health Guardian %s\n", version)
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Configuration errors are fatal: abort before any work
	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		os.Exit(1)
	}

	st, err := store.New(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Error("Failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	server := api.New(cfg, st, logger)

	// os.Exit skips deferred cleanup, so flush and close explicitly here
	if *runOnce != "" {
		code := runBatchOnce(*runOnce, server, logger)
		st.Close()
		logger.Sync()
		os.Exit(code)
	}

	runServer(cfg, server, logger)
}

// runBatchOnce executes the named batch job(s) and prints the JSON summary.
// Exit is non-zero on a top-level fetch failure; per-item failures are
// reflected only in the summary.
func runBatchOnce(job string, server *api.Server, logger *zap.Logger) int {
	ctx := context.Background()
	now := time.Now()
	code := 0

	if job == "dispatch" || job == "all" {
		summary, err := server.DispatchJob().Run(ctx, now)
		if err != nil {
			logger.Error("Reminder dispatch failed", zap.Error(err))
			code = 1
		} else {
			printSummary(summary)
		}
	}

	if job == "goals" || job == "all" {
		summary, err := server.GoalsJob().Run(ctx, now)
		if err != nil {
			logger.Error("Goal check failed", zap.Error(err))
			code = 1
		} else {
			printSummary(summary)
		}
	}

	if job != "dispatch" && job != "goals" && job != "all" {
		logger.Error("Unknown job", zap.String("job", job))
		return 2
	}

	return code
}

func printSummary(summary interface{}) {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}

func runServer(cfg *config.Config, server *api.Server, logger *zap.Logger) {
	var runner *cron.Runner
	if cfg.Batch.Enabled {
		var err error
		runner, err = cron.NewRunner(cfg.Batch.Schedule, server.DispatchJob(), server.GoalsJob(), logger)
		if err != nil {
			logger.Error("Failed to create batch runner", zap.Error(err))
			os.Exit(1)
		}
		if err := runner.Start(); err != nil {
			logger.Error("Failed to start batch runner", zap.Error(err))
			os.Exit(1)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("Early Health Guardian started",
		zap.String("address", cfg.Server.Address),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("batch_enabled", cfg.Batch.Enabled),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	if runner != nil {
		runner.Stop()
	}
	if err := server.Shutdown(); err != nil {
		logger.Warn("Shutdown error", zap.Error(err))
	}
}
