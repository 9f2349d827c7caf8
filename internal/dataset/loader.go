package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Accepted date layouts across the four input tables.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// LoadSales reads sale events from a CSV file. Expected header:
// transaction_id,sku,store,date,quantity,discounted_price,list_price,
// promotion_id,promo_code,weighted,loyalty_bucket
func LoadSales(path string) ([]SaleEvent, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	return parseSales(rows, header)
}

// LoadSalesXLSX reads sale events from the first sheet of an XLSX
// workbook with the same column layout as the CSV form.
func LoadSalesXLSX(path string) ([]SaleEvent, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s is empty", path)
	}
	header := headerIndex(rows[0])
	return parseSales(rows[1:], header)
}

func parseSales(rows [][]string, header map[string]int) ([]SaleEvent, error) {
	events := make([]SaleEvent, 0, len(rows))
	for i, row := range rows {
		date, err := ParseDate(field(row, header, "date"))
		if err != nil {
			return nil, fmt.Errorf("sales row %d: %w", i+2, err)
		}
		events = append(events, SaleEvent{
			TransactionID:   field(row, header, "transaction_id"),
			SKU:             field(row, header, "sku"),
			Store:           field(row, header, "store"),
			Date:            date,
			Quantity:        parseFloat(field(row, header, "quantity")),
			DiscountedPrice: parseFloat(field(row, header, "discounted_price")),
			ListPrice:       parseFloat(field(row, header, "list_price")),
			PromotionID:     parseInt(field(row, header, "promotion_id")),
			PromoCodeUsed:   field(row, header, "promo_code") != "",
			Weighted:        ParseFlag(field(row, header, "weighted")),
			LoyaltyBucket:   field(row, header, "loyalty_bucket"),
		})
	}
	return events, nil
}

// LoadReturns reads return records. Expected header:
// transaction_id,sku,store,return_date,quantity_returned
func LoadReturns(path string) ([]ReturnRecord, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load returns: %w", err)
	}
	records := make([]ReturnRecord, 0, len(rows))
	for i, row := range rows {
		date, err := ParseDate(field(row, header, "return_date"))
		if err != nil {
			return nil, fmt.Errorf("returns row %d: %w", i+2, err)
		}
		records = append(records, ReturnRecord{
			TransactionID: field(row, header, "transaction_id"),
			SKU:           field(row, header, "sku"),
			Store:         field(row, header, "store"),
			ReturnDate:    date,
			Quantity:      parseFloat(field(row, header, "quantity_returned")),
		})
	}
	return records, nil
}

// LoadPromotions reads promotion intervals. Expected header:
// promotion_id,start_date,end_date,type,discount_percent,clearance
func LoadPromotions(path string) ([]Promotion, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}
	promos := make([]Promotion, 0, len(rows))
	for i, row := range rows {
		start, err := ParseDate(field(row, header, "start_date"))
		if err != nil {
			return nil, fmt.Errorf("promotions row %d: %w", i+2, err)
		}
		end, err := ParseDate(field(row, header, "end_date"))
		if err != nil {
			return nil, fmt.Errorf("promotions row %d: %w", i+2, err)
		}
		promos = append(promos, Promotion{
			ID:              parseInt(field(row, header, "promotion_id")),
			Start:           start,
			End:             end,
			Type:            field(row, header, "type"),
			DiscountPercent: parseFloat(field(row, header, "discount_percent")),
			Clearance:       ParseFlag(field(row, header, "clearance")),
		})
	}
	return promos, nil
}

// LoadHolidays reads holiday calendar entries. Expected header:
// date,name,type,day_off
func LoadHolidays(path string) ([]Holiday, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	holidays := make([]Holiday, 0, len(rows))
	for i, row := range rows {
		date, err := ParseDate(field(row, header, "date"))
		if err != nil {
			return nil, fmt.Errorf("holidays row %d: %w", i+2, err)
		}
		holidays = append(holidays, Holiday{
			Date:   date,
			Name:   field(row, header, "name"),
			Type:   field(row, header, "type"),
			DayOff: ParseFlag(field(row, header, "day_off")),
		})
	}
	return holidays, nil
}

// ParseFlag normalizes mixed boolean encodings found in retail exports.
// Source systems emit Russian and English variants side by side.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "да", "true", "yes", "1":
		return true
	default:
		return false
	}
}

func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	headerRow, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header := headerIndex(headerRow)

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

func headerIndex(row []string) map[string]int {
	idx := make(map[string]int, len(row))
	for i, name := range row {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func field(row []string, header map[string]int, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseFloat treats missing or malformed numerics as zero, never fatal.
func parseFloat(s string) float64 {
	if s == "" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	if s == "" || s == "-" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseDate accepts the date layouts retail exports actually use and
// truncates to the calendar day.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
