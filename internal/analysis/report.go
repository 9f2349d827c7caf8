package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"demandcast/internal/errors"
	"demandcast/internal/forecast"
)

// WriteReport renders a training run into an xlsx workbook with
// summary, seasonality and anomaly sheets.
func WriteReport(path string, report *forecast.Report, seasonality Seasonality, anomalies []Anomaly) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewStorageError("create report directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummary(f, report); err != nil {
		return err
	}
	if err := writeSeasonality(f, seasonality); err != nil {
		return err
	}
	if err := writeAnomalies(f, anomalies); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return errors.NewStorageError("save report workbook", err)
	}
	return nil
}

func writeSummary(f *excelize.File, r *forecast.Report) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewStorageError("create summary sheet", err)
	}

	rows := [][]interface{}{
		{"Generated", time.Now().UTC().Format(time.RFC3339)},
		{"Duration", r.Duration.String()},
		{},
		{"Sale rows", r.JoinStats.SaleRows},
		{"Return rows", r.JoinStats.ReturnRows},
		{"Matched returns", r.JoinStats.MatchedReturns},
		{"Orphan returns dropped", r.JoinStats.OrphanReturns},
		{"Feature rows", r.RowsTotal},
		{"Rows excluded", r.RowsExcluded},
		{},
		{"CV MAE", r.CVMAE},
		{"Test MAE", r.TestMetrics.MAE},
		{"Test RMSE", r.TestMetrics.RMSE},
		{"Test MAPE %", r.TestMetrics.MAPE},
		{"Test SMAPE %", r.TestMetrics.SMAPE},
		{},
		{"Trials", r.Trials},
		{"Failed trials", r.FailedTrials},
		{"Best round", r.BestRound},
		{"Learning rate", r.BestParams.LearningRate},
		{"Max depth", r.BestParams.MaxDepth},
		{"Num leaves", r.BestParams.NumLeaves},
		{"Min samples leaf", r.BestParams.MinSamplesLeaf},
		{"Feature fraction", r.BestParams.FeatureFrac},
		{"Row fraction", r.BestParams.RowFrac},
	}
	return writeRows(f, sheet, rows)
}

func writeSeasonality(f *excelize.File, s Seasonality) error {
	const sheet = "Seasonality"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewStorageError("create seasonality sheet", err)
	}

	rows := [][]interface{}{
		{"Overall mean net units", s.OverallMean},
		{},
		{"Weekday", "Index"},
	}
	for i, v := range s.Weekday {
		rows = append(rows, []interface{}{WeekdayName(i), v})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Month", "Index"})
	for i, v := range s.Month {
		rows = append(rows, []interface{}{time.Month(i + 1).String(), v})
	}
	return writeRows(f, sheet, rows)
}

func writeAnomalies(f *excelize.File, anomalies []Anomaly) error {
	const sheet = "Anomalies"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.NewStorageError("create anomalies sheet", err)
	}

	rows := [][]interface{}{{"SKU", "Store", "Date", "Net units", "Z-score"}}
	for _, a := range anomalies {
		rows = append(rows, []interface{}{a.SKU, a.Store, a.Date.Format("2006-01-02"), a.NetUnits, a.ZScore})
	}
	return writeRows(f, sheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.NewStorageError("compute cell name", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.NewStorageError(fmt.Sprintf("write %s row %d", sheet, i+1), err)
		}
	}
	return nil
}
