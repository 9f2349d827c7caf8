// Command server exposes the prediction service over HTTP against a
// saved model artifact.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"demandcast/internal/artifact"
	"demandcast/internal/config"
	"demandcast/internal/dataset"
	"demandcast/internal/forecast"
	"demandcast/internal/infrastructure"
	transporthttp "demandcast/internal/transport/http"
)

// version is stamped by the build.
var version = "dev"

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	dataDir := flag.String("data", "", "override data directory")
	artifactPath := flag.String("artifact", "", "override artifact path")
	trace := flag.Bool("trace", false, "emit trace spans to stdout")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Paths.DataDir = *dataDir
	}
	if *artifactPath != "" {
		cfg.Paths.ArtifactFile = *artifactPath
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	shutdownTracing, err := infrastructure.InitializeTracing(*trace)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	art, err := artifact.Load(cfg.Paths.ArtifactFile)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "artifact loaded",
		"model_id", art.ID,
		"created_at", art.CreatedAt,
		"features", art.FeatureWidth())

	rec, err := buildReconstructor(ctx, cfg, art, logger)
	if err != nil {
		return err
	}

	info := transporthttp.ModelInfo{
		ID:           art.ID,
		CreatedAt:    art.CreatedAt,
		Seed:         art.Seed,
		FeatureCount: art.FeatureWidth(),
		TestMAE:      art.TestMetrics.MAE,
		TestRMSE:     art.TestMetrics.RMSE,
	}
	router := transporthttp.NewRouter(cfg, rec, info, version, logger)
	server := transporthttp.NewServer(cfg.Server, router, logger)
	return server.Run(ctx)
}

func buildReconstructor(ctx context.Context, cfg *config.Config, art *artifact.Artifact, logger *slog.Logger) (*forecast.Reconstructor, error) {
	dir := cfg.Paths.DataDir

	salesPath := filepath.Join(dir, cfg.Paths.SalesFile)
	var sales []dataset.SaleEvent
	var err error
	if strings.HasSuffix(salesPath, ".xlsx") {
		sales, err = dataset.LoadSalesXLSX(salesPath)
	} else {
		sales, err = dataset.LoadSales(salesPath)
	}
	if err != nil {
		return nil, err
	}

	var returns []dataset.ReturnRecord
	if p := filepath.Join(dir, cfg.Paths.ReturnsFile); exists(p) {
		if returns, err = dataset.LoadReturns(p); err != nil {
			return nil, err
		}
	}
	var promos []dataset.Promotion
	if p := filepath.Join(dir, cfg.Paths.PromosFile); exists(p) {
		if promos, err = dataset.LoadPromotions(p); err != nil {
			return nil, err
		}
	}
	var holidays []dataset.Holiday
	if p := filepath.Join(dir, cfg.Paths.HolidaysFile); exists(p) {
		if holidays, err = dataset.LoadHolidays(p); err != nil {
			return nil, err
		}
	}

	records, _ := dataset.Join(ctx, sales, returns)
	records = dataset.Annotate(ctx, records, holidays, promos)
	logger.InfoContext(ctx, "history indexed", "records", len(records))
	return forecast.NewReconstructor(cfg, art, records, promos, holidays, logger), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
