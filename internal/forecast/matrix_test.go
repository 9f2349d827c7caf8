package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/internal/config"
	"demandcast/internal/dataset"
	apperrors "demandcast/internal/errors"
	"demandcast/internal/features"
)

func smallFrame(t *testing.T) *features.Frame {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var records []dataset.Record
	for i := 0; i < 5; i++ {
		records = append(records, dataset.Record{
			SaleEvent: dataset.SaleEvent{
				SKU: "sku-1", Store: "store-1",
				Date:            start.AddDate(0, 0, i),
				DiscountedPrice: 90, ListPrice: 100,
			},
			NetUnits:  3,
			PromoType: dataset.NoPromotion,
		})
	}
	b := features.NewBuilder(config.Default().Features, nil)
	f, err := b.Build(context.Background(), records, nil)
	require.NoError(t, err)
	f.FillUnresolved()
	return f
}

func TestMatrixLayout(t *testing.T) {
	f := smallFrame(t)
	sch := &schema{
		numeric:      f.FeatureSpecs(),
		categoricals: f.CategoricalColumns(),
		maps:         features.FreezeColumns(f),
	}

	X, err := sch.matrix(f, []int{0, 4})
	require.NoError(t, err)
	require.Len(t, X, 2)
	assert.Len(t, X[0], len(sch.numeric)+len(sch.categoricals))

	mask := sch.mask()
	require.Len(t, mask, len(X[0]))
	for i := 0; i < len(sch.numeric); i++ {
		assert.False(t, mask[i])
	}
	for i := len(sch.numeric); i < len(mask); i++ {
		assert.True(t, mask[i])
	}
}

func TestMatrixMissingColumnIsSchemaError(t *testing.T) {
	f := smallFrame(t)
	sch := &schema{
		numeric: append(f.FeatureSpecs(), features.FeatureSpec{Name: "no_such_column", Default: 1.5}),
	}

	_, err := sch.matrix(f, []int{0})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestLenientMatrixPadsDefaults(t *testing.T) {
	f := smallFrame(t)
	sch := &schema{
		numeric:      []features.FeatureSpec{{Name: "lag_1", Default: 0}, {Name: "no_such_column", Default: 1.5}},
		categoricals: []string{"sku", "no_such_cat"},
		maps: map[string]features.CategoryMap{
			"sku": features.Freeze([]string{"sku-1"}),
		},
	}

	X, err := sch.lenientMatrix(f, []int{2})
	require.NoError(t, err)
	require.Len(t, X, 1)
	assert.Equal(t, 1.5, X[0][1])                           // padded default
	assert.Equal(t, 0.0, X[0][2])                           // sku-1 code
	assert.Equal(t, float64(features.UnknownCode), X[0][3]) // absent categorical
}
