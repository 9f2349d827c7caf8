// Command predictor scores a CSV of forecast cases against a saved
// model artifact, reconstructing each case's features from the event
// history.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"demandcast/internal/artifact"
	"demandcast/internal/config"
	"demandcast/internal/dataset"
	"demandcast/internal/errors"
	"demandcast/internal/forecast"
	"demandcast/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	casesPath := flag.String("cases", "", "CSV file of cases to score (required)")
	outPath := flag.String("out", "predictions.csv", "output CSV path")
	dataDir := flag.String("data", "", "override data directory")
	artifactPath := flag.String("artifact", "", "override artifact path")
	flag.Parse()

	if *casesPath == "" {
		fmt.Fprintln(os.Stderr, "usage: predictor -cases cases.csv [-out predictions.csv]")
		os.Exit(2)
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *casesPath, *outPath); err != nil {
		logger.Error("Prediction failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, casesPath, outPath string) error {
	art, err := artifact.Load(cfg.Paths.ArtifactFile)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "artifact loaded",
		"model_id", art.ID,
		"created_at", art.CreatedAt,
		"test_mae", art.HoldoutMAE)

	rec, err := buildReconstructor(ctx, cfg, art, logger)
	if err != nil {
		return err
	}

	cases, err := loadCases(casesPath)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "cases loaded", "count", len(cases))

	preds, err := rec.PredictBatch(ctx, cases)
	if err != nil {
		return err
	}
	if err := writePredictions(outPath, art.ID, preds); err != nil {
		return err
	}
	logger.InfoContext(ctx, "predictions written", "path", outPath, "count", len(preds))
	return nil
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
	return forecast.NewReconstructor(cfg, art, records, promos, holidays, logger), nil
}

func loadCases(path string) ([]forecast.Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError("open cases file", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrTypeParsing, "read cases file", err)
	}
	if len(rows) < 2 {
		return nil, errors.NewValidationError("cases file has no data rows")
	}

	header := map[string]int{}
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	col := func(row []string, name string) string {
		i, ok := header[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	cases := make([]forecast.Case, 0, len(rows)-1)
	for n, row := range rows[1:] {
		date, err := dataset.ParseDate(col(row, "date"))
		if err != nil {
			return nil, errors.Wrap(errors.ErrTypeParsing,
				fmt.Sprintf("cases row %d: invalid date", n+2), err)
		}
		c := forecast.Case{
			SKU:           col(row, "sku"),
			Store:         col(row, "store"),
			Date:          date,
			PromoCodeUsed: dataset.ParseFlag(col(row, "promo_code_used")),
			Weighted:      dataset.ParseFlag(col(row, "weighted")),
			LoyaltyBucket: col(row, "loyalty_bucket"),
		}
		c.DiscountedPrice, _ = strconv.ParseFloat(col(row, "discounted_price"), 64)
		c.ListPrice, _ = strconv.ParseFloat(col(row, "list_price"), 64)
		c.PromotionID, _ = strconv.ParseInt(col(row, "promotion_id"), 10, 64)
		cases = append(cases, c)
	}
	return cases, nil
}

func writePredictions(path, modelID string, preds []forecast.Prediction) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("create output file", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"sku", "store", "date", "net_units", "history_rows", "neutral", "model_id"}); err != nil {
		return errors.NewStorageError("write output header", err)
	}
	for _, p := range preds {
		row := []string{
			p.Case.SKU,
			p.Case.Store,
			p.Case.Date.Format("2006-01-02"),
			strconv.FormatFloat(p.NetUnits, 'f', 4, 64),
			strconv.Itoa(p.HistoryRows),
			strconv.FormatBool(p.Neutral),
			modelID,
		}
		if err := w.Write(row); err != nil {
			return errors.NewStorageError("write output row", err)
		}
	}
	w.Flush()
	return w.Error()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
