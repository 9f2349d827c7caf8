package dataset

import (
	"context"
	"log/slog"
	"math"

	"demandcast/internal/infrastructure"
)

// JoinStats reports what the temporal join observed.
type JoinStats struct {
	SaleRows       int `json:"sale_rows"`
	ReturnRows     int `json:"return_rows"`
	OrphanReturns  int `json:"orphan_returns"`
	MatchedReturns int `json:"matched_returns"`
}

// Join merges sale events with their returns and derives
// transaction-level aggregates. For each sale line it looks up the sum
// of returned quantities sharing (transaction, SKU, store), defaulting
// to zero, and computes net units sold. Per transaction it computes the
// basket total and the certificate amount (absolute sum of negative
// discounted prices, which signal a gift-certificate or markdown
// adjustment rather than a real sale).
//
// Returns referencing a transaction id absent from the sales table are
// dropped and counted, never fatal. NaN quantities are treated as zero.
func Join(ctx context.Context, sales []SaleEvent, returns []ReturnRecord) ([]Record, JoinStats) {
	logger := slog.Default()
	stats := JoinStats{SaleRows: len(sales), ReturnRows: len(returns)}

	validTx := make(map[string]struct{}, len(sales))
	for i := range sales {
		validTx[sales[i].TransactionID] = struct{}{}
	}

	returnedByLine := make(map[LineKey]float64)
	for i := range returns {
		r := returns[i]
		if _, ok := validTx[r.TransactionID]; !ok {
			stats.OrphanReturns++
			infrastructure.ReturnsDropped.Inc()
			continue
		}
		stats.MatchedReturns++
		key := LineKey{TransactionID: r.TransactionID, SKU: r.SKU, Store: r.Store}
		returnedByLine[key] += zeroIfNaN(r.Quantity)
	}

	basketTotal := make(map[string]float64, len(validTx))
	certificate := make(map[string]float64, len(validTx))
	for i := range sales {
		s := sales[i]
		price := zeroIfNaN(s.DiscountedPrice)
		basketTotal[s.TransactionID] += price
		if price < 0 {
			certificate[s.TransactionID] += price
		}
	}

	records := make([]Record, len(sales))
	for i := range sales {
		s := sales[i]
		returned := returnedByLine[s.Key()]
		records[i] = Record{
			SaleEvent:         s,
			ReturnedQty:       returned,
			NetUnits:          zeroIfNaN(s.Quantity) - returned,
			BasketTotal:       basketTotal[s.TransactionID],
			CertificateAmount: math.Abs(certificate[s.TransactionID]),
		}
	}

	if stats.OrphanReturns > 0 {
		logger.WarnContext(ctx, "dropped orphan returns",
			"count", stats.OrphanReturns,
			"total_returns", stats.ReturnRows,
		)
	}
	logger.InfoContext(ctx, "temporal join complete",
		"sale_rows", stats.SaleRows,
		"matched_returns", stats.MatchedReturns,
		"orphan_returns", stats.OrphanReturns,
	)

	return records, stats
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
