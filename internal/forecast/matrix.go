package forecast

import (
	"fmt"

	"demandcast/internal/errors"
	"demandcast/internal/features"
)

// schema fixes the model's input layout: numeric feature columns in
// registration order followed by encoded categorical columns. Training
// derives it from the built frame; inference replays it from the
// artifact so both sides assemble identical rows.
type schema struct {
	numeric      []features.FeatureSpec
	categoricals []string
	maps         map[string]features.CategoryMap
}

// mask reports which matrix columns hold categorical codes.
func (s *schema) mask() []bool {
	m := make([]bool, len(s.numeric)+len(s.categoricals))
	for i := range s.categoricals {
		m[len(s.numeric)+i] = true
	}
	return m
}

// matrix assembles the design matrix for the given rows. During
// training a feature column the frame does not carry is a schema
// mismatch; serving pads such a column with its catalogue default via
// lenientMatrix instead.
func (s *schema) matrix(f *features.Frame, rows []int) ([][]float64, error) {
	return s.assemble(f, rows, false)
}

// lenientMatrix is the serving-side assembly: a missing numeric column
// fills with the artifact's default for it.
func (s *schema) lenientMatrix(f *features.Frame, rows []int) ([][]float64, error) {
	return s.assemble(f, rows, true)
}

func (s *schema) assemble(f *features.Frame, rows []int, lenient bool) ([][]float64, error) {
	cols := make([][]float64, 0, len(s.numeric))
	for _, spec := range s.numeric {
		col := f.Col(spec.Name)
		if col == nil {
			if !lenient {
				return nil, errors.New(errors.ErrTypeSchema,
					fmt.Sprintf("feature column %s missing from input", spec.Name))
			}
			col = constantColumn(f.Len(), spec.Default)
		}
		cols = append(cols, col)
	}

	encoded := make([][]float64, 0, len(s.categoricals))
	for _, name := range s.categoricals {
		raw := f.Cat(name)
		if raw == nil {
			if !lenient {
				return nil, errors.New(errors.ErrTypeSchema,
					fmt.Sprintf("categorical column %s missing from input", name))
			}
			// absent categorical context scores as out-of-vocabulary
			encoded = append(encoded, constantColumn(f.Len(), float64(features.UnknownCode)))
			continue
		}
		m := s.maps[name]
		encoded = append(encoded, features.EncodeColumn(name, &m, raw))
	}

	width := len(cols) + len(encoded)
	X := make([][]float64, len(rows))
	for k, i := range rows {
		row := make([]float64, width)
		for j, col := range cols {
			row[j] = col[i]
		}
		for j, col := range encoded {
			row[len(cols)+j] = col[i]
		}
		X[k] = row
	}
	return X, nil
}

func constantColumn(n int, v float64) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = v
	}
	return col
}

func targetAt(f *features.Frame, column string, rows []int) []float64 {
	col := f.Col(column)
	out := make([]float64, len(rows))
	for k, i := range rows {
		out[k] = col[i]
	}
	return out
}
