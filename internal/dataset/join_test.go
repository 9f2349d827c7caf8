package dataset

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestJoin_NetUnits(t *testing.T) {
	sales := []SaleEvent{
		{TransactionID: "tx1", SKU: "A", Store: "s1", Date: day("2024-01-01"), Quantity: 5, DiscountedPrice: 10},
		{TransactionID: "tx2", SKU: "A", Store: "s1", Date: day("2024-01-02"), Quantity: 3, DiscountedPrice: 10},
	}
	returns := []ReturnRecord{
		{TransactionID: "tx1", SKU: "A", Store: "s1", Quantity: 2},
		{TransactionID: "tx1", SKU: "A", Store: "s1", Quantity: 1},
	}

	records, stats := Join(context.Background(), sales, returns)
	require.Len(t, records, 2)

	assert.Equal(t, 3.0, records[0].ReturnedQty)
	assert.Equal(t, 2.0, records[0].NetUnits)
	assert.Equal(t, 0.0, records[1].ReturnedQty)
	assert.Equal(t, 3.0, records[1].NetUnits)
	assert.Equal(t, 2, stats.MatchedReturns)
}

func TestJoin_DropsOrphanReturns(t *testing.T) {
	sales := []SaleEvent{
		{TransactionID: "tx1", SKU: "A", Store: "s1", Date: day("2024-01-01"), Quantity: 4},
	}
	returns := []ReturnRecord{
		{TransactionID: "tx-unknown", SKU: "A", Store: "s1", Quantity: 4},
		{TransactionID: "tx1", SKU: "A", Store: "s1", Quantity: 1},
	}

	records, stats := Join(context.Background(), sales, returns)

	assert.Equal(t, 1, stats.OrphanReturns)
	assert.Equal(t, 1, stats.MatchedReturns)
	assert.Equal(t, 3.0, records[0].NetUnits)
}

func TestJoin_BasketAndCertificate(t *testing.T) {
	sales := []SaleEvent{
		{TransactionID: "tx1", SKU: "A", Store: "s1", Date: day("2024-01-01"), Quantity: 1, DiscountedPrice: 100},
		{TransactionID: "tx1", SKU: "B", Store: "s1", Date: day("2024-01-01"), Quantity: 1, DiscountedPrice: -25},
		{TransactionID: "tx1", SKU: "C", Store: "s1", Date: day("2024-01-01"), Quantity: 1, DiscountedPrice: 40},
		{TransactionID: "tx2", SKU: "A", Store: "s1", Date: day("2024-01-02"), Quantity: 1, DiscountedPrice: 60},
	}

	records, _ := Join(context.Background(), sales, nil)

	for _, r := range records[:3] {
		assert.Equal(t, 115.0, r.BasketTotal)
		assert.Equal(t, 25.0, r.CertificateAmount)
	}
	assert.Equal(t, 60.0, records[3].BasketTotal)
	assert.Equal(t, 0.0, records[3].CertificateAmount)
}

func TestJoin_NaNQuantityTreatedAsZero(t *testing.T) {
	sales := []SaleEvent{
		{TransactionID: "tx1", SKU: "A", Store: "s1", Date: day("2024-01-01"), Quantity: math.NaN()},
	}
	returns := []ReturnRecord{
		{TransactionID: "tx1", SKU: "A", Store: "s1", Quantity: math.NaN()},
	}

	records, _ := Join(context.Background(), sales, returns)
	assert.Equal(t, 0.0, records[0].NetUnits)
}
