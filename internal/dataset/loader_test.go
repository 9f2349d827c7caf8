package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSales(t *testing.T) {
	path := writeFile(t, "sales.csv",
		"transaction_id,sku,store,date,quantity,discounted_price,list_price,promotion_id,promo_code,weighted,loyalty_bucket\n"+
			"tx1,A100,s1,2024-01-15,2,9.5,12.0,7,CODE1,Да,gold\n"+
			"tx2,B200,s2,15.01.2024,1,5,,0,,Нет,\n")

	sales, err := LoadSales(path)
	require.NoError(t, err)
	require.Len(t, sales, 2)

	assert.Equal(t, "A100", sales[0].SKU)
	assert.Equal(t, day("2024-01-15"), sales[0].Date)
	assert.Equal(t, 9.5, sales[0].DiscountedPrice)
	assert.Equal(t, int64(7), sales[0].PromotionID)
	assert.True(t, sales[0].PromoCodeUsed)
	assert.True(t, sales[0].Weighted)

	// alternative date layout, empty numerics default to zero
	assert.Equal(t, day("2024-01-15"), sales[1].Date)
	assert.Equal(t, 0.0, sales[1].ListPrice)
	assert.False(t, sales[1].Weighted)
	assert.False(t, sales[1].PromoCodeUsed)
}

func TestLoadSales_BadDateFails(t *testing.T) {
	path := writeFile(t, "sales.csv",
		"transaction_id,sku,store,date,quantity,discounted_price,list_price,promotion_id,promo_code,weighted,loyalty_bucket\n"+
			"tx1,A,s1,not-a-date,1,1,1,0,,,\n")

	_, err := LoadSales(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestLoadPromotions(t *testing.T) {
	path := writeFile(t, "promotions.csv",
		"promotion_id,start_date,end_date,type,discount_percent,clearance\n"+
			"7,2024-03-01,2024-03-08,percent_off,20,false\n"+
			"9,2024-04-01,2024-04-15,clearance,50,Да\n")

	promos, err := LoadPromotions(path)
	require.NoError(t, err)
	require.Len(t, promos, 2)
	assert.False(t, promos[0].Clearance)
	assert.True(t, promos[1].Clearance)
	assert.Equal(t, 50.0, promos[1].DiscountPercent)
}

func TestLoadHolidays(t *testing.T) {
	path := writeFile(t, "holidays.csv",
		"date,name,type,day_off\n"+
			"2024-01-01,New Year,national,true\n")

	holidays, err := LoadHolidays(path)
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.True(t, holidays[0].DayOff)
	assert.Equal(t, "national", holidays[0].Type)
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Да", true},
		{"да", true},
		{"true", true},
		{"True", true},
		{"yes", true},
		{"1", true},
		{"Нет", false},
		{"false", false},
		{"-", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFlag(tt.in))
		})
	}
}
