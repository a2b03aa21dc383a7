package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/textbook-analytics/internal/config"
	"github.com/yungbote/textbook-analytics/internal/data/repos"
	"github.com/yungbote/textbook-analytics/internal/modules/glmm"
	"github.com/yungbote/textbook-analytics/internal/modules/study"
	"github.com/yungbote/textbook-analytics/internal/observability"
	"github.com/yungbote/textbook-analytics/internal/platform/db"
	"github.com/yungbote/textbook-analytics/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the run configuration file")
	flag.Parse()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config load failed", "error", err)
	}

	ctx := context.Background()
	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "textbook-analytics-pipeline",
	})
	if shutdown != nil {
		defer func() { _ = shutdown(ctx) }()
	}

	// Store
	store, err := db.New(cfg.DB.Driver, cfg.DB.DSN, log)
	if err != nil {
		log.Fatal("store init failed", "error", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		log.Fatal("store migration failed", "error", err)
	}
	gdb := store.DB()

	// Repos
	deps := study.RunDeps{
		Log:         log,
		Attempts:    repos.NewAttemptRepo(gdb, log),
		Heldout:     repos.NewHeldoutRepo(gdb, log),
		Runs:        repos.NewModelRunRepo(gdb, log),
		Results:     repos.NewModelResultRepo(gdb, log),
		Predictions: repos.NewHeldoutPredictionRepo(gdb, log),
	}

	out, err := study.Run(ctx, deps, study.RunInput{
		Solver: glmm.FitConfig{
			MaxIRLS:    cfg.Solver.MaxIRLS,
			MaxProfile: cfg.Solver.MaxProfile,
			Tol:        cfg.Solver.Tol,
			Seed:       cfg.Solver.Seed,
		},
		CSVPath: cfg.Output.CSVPath,
	})
	if err != nil {
		log.Fatal("pipeline run failed", "error", err)
	}

	for _, c := range out.Ranking {
		log.Info("model ranked",
			"rank", c.Rank,
			"model", c.Name,
			"aic", c.AIC,
			"bic", c.BIC,
			"rmse", c.RMSE,
			"rows", c.Rows,
			"converged", c.Converged,
		)
	}
	log.Info("pipeline finished",
		"run_id", out.RunID,
		"best_model", out.BestModel,
		"heldout_model", out.HeldoutModel,
		"predictions", len(out.Predictions),
	)
}
