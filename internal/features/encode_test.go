package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreezeIsOrderIndependent(t *testing.T) {
	a := Freeze([]string{"b", "a", "c", "a", "b"})
	b := Freeze([]string{"c", "b", "a"})
	assert.Equal(t, a.Values, b.Values)
	assert.Equal(t, []string{"a", "b", "c"}, a.Values)
	assert.Equal(t, 0, a.Code("a"))
	assert.Equal(t, 2, a.Code("c"))
}

func TestCodeUnknownSentinel(t *testing.T) {
	m := Freeze([]string{"x", "y"})
	assert.Equal(t, UnknownCode, m.Code("z"))
	assert.Equal(t, 2, m.Len())

	// unknown values never grow the map
	_ = m.Code("z")
	assert.Equal(t, 2, m.Len())
}

func TestCodeAfterRehydrate(t *testing.T) {
	m := Freeze([]string{"x", "y"})
	// simulate a deserialized map: only Values survives
	restored := CategoryMap{Values: m.Values}
	assert.Equal(t, 1, restored.Code("y")) // linear fallback
	restored.Rehydrate()
	assert.Equal(t, 1, restored.Code("y"))
	assert.Equal(t, UnknownCode, restored.Code("q"))
}

func TestFreezeColumnsCoversAllCategoricals(t *testing.T) {
	records := seriesRecords("sku-1", "store-9", day(2024, time.March, 1), []float64{1, 2})
	records[0].LoyaltyBucket = "gold"
	records[1].LoyaltyBucket = "silver"
	f := NewFrame(records)

	maps := FreezeColumns(f)
	for _, name := range f.CategoricalColumns() {
		_, ok := maps[name]
		assert.True(t, ok, name)
	}
	sku := maps["sku"]
	assert.Equal(t, []string{"sku-1"}, sku.Values)
	loyalty := maps["loyalty_bucket"]
	assert.ElementsMatch(t, []string{"gold", "silver"}, loyalty.Values)
}

func TestEncodeColumn(t *testing.T) {
	m := Freeze([]string{"a", "b"})
	codes := EncodeColumn("store", &m, []string{"b", "a", "nope"})
	require.Len(t, codes, 3)
	assert.Equal(t, []float64{1, 0, float64(UnknownCode)}, codes)
}
