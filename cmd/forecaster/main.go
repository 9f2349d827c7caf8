// Command forecaster trains the net-demand model from the event
// history and writes the model artifact and the training report.
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

	"demandcast/internal/analysis"
	"demandcast/internal/config"
	"demandcast/internal/dataset"
	"demandcast/internal/forecast"
	"demandcast/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	dataDir := flag.String("data", "", "override data directory")
	artifactOut := flag.String("artifact", "", "override artifact output path")
	reportOut := flag.String("report", "", "override report output path")
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
	if *artifactOut != "" {
		cfg.Paths.ArtifactFile = *artifactOut
	}
	if *reportOut != "" {
		cfg.Paths.ReportFile = *reportOut
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Training failed", "error", err)
		shutdownTracing(context.Background())
		os.Exit(1)
	}
	shutdownTracing(context.Background())
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	sales, returns, promos, holidays, err := loadInputs(cfg, logger)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "inputs loaded",
		"sales", len(sales),
		"returns", len(returns),
		"promotions", len(promos),
		"holidays", len(holidays))

	trainer := forecast.NewTrainer(cfg, nil, logger)
	art, report, err := trainer.Train(ctx, sales, returns, promos, holidays)
	if err != nil {
		return err
	}

	if err := art.Save(cfg.Paths.ArtifactFile); err != nil {
		return err
	}
	logger.InfoContext(ctx, "artifact saved",
		"path", cfg.Paths.ArtifactFile,
		"model_id", art.ID)

	records, _ := dataset.Join(ctx, sales, returns)
	records = dataset.Annotate(ctx, records, holidays, promos)
	seasonality := analysis.Seasonal(records)
	anomalies := analysis.DetectAnomalies(records)
	if err := analysis.WriteReport(cfg.Paths.ReportFile, report, seasonality, anomalies); err != nil {
		return err
	}
	logger.InfoContext(ctx, "report written",
		"path", cfg.Paths.ReportFile,
		"anomalies", len(anomalies))
	return nil
}

func loadInputs(cfg *config.Config, logger *slog.Logger) (
	[]dataset.SaleEvent, []dataset.ReturnRecord, []dataset.Promotion, []dataset.Holiday, error,
) {
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
		return nil, nil, nil, nil, err
	}

	returns, err := loadOptionalReturns(filepath.Join(dir, cfg.Paths.ReturnsFile), logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	promos, err := loadOptionalPromos(filepath.Join(dir, cfg.Paths.PromosFile), logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	holidays, err := loadOptionalHolidays(filepath.Join(dir, cfg.Paths.HolidaysFile), logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return sales, returns, promos, holidays, nil
}

func loadOptionalReturns(path string, logger *slog.Logger) ([]dataset.ReturnRecord, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warn("Returns file absent, training without returns", "path", path)
		return nil, nil
	}
	return dataset.LoadReturns(path)
}

func loadOptionalPromos(path string, logger *slog.Logger) ([]dataset.Promotion, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warn("Promotions file absent, training without promotions", "path", path)
		return nil, nil
	}
	return dataset.LoadPromotions(path)
}

func loadOptionalHolidays(path string, logger *slog.Logger) ([]dataset.Holiday, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warn("Holidays file absent, training without holidays", "path", path)
		return nil, nil
	}
	return dataset.LoadHolidays(path)
}
