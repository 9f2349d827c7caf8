package features

import (
	"sort"

	"demandcast/internal/infrastructure"
)

// UnknownCode is the sentinel for values absent from a frozen map.
const UnknownCode = -1

// CategoryMap is the frozen, ordered list of category values a
// categorical feature may take. It is fixed when training completes;
// inference may only assign codes from this list, and unseen values map
// to UnknownCode without growing the list.
type CategoryMap struct {
	Values []string

	index map[string]int
}

// Freeze captures the category universe of a column. Values are
// deduplicated and sorted so the code assignment is deterministic
// regardless of row order.
func Freeze(values []string) CategoryMap {
	seen := make(map[string]struct{}, len(values))
	var uniq []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		uniq = append(uniq, v)
	}
	sort.Strings(uniq)

	m := CategoryMap{Values: uniq}
	m.Rehydrate()
	return m
}

// Rehydrate rebuilds the lookup index after deserialization. Call once
// before concurrent use; Code falls back to a linear scan otherwise.
func (m *CategoryMap) Rehydrate() {
	m.index = make(map[string]int, len(m.Values))
	for i, v := range m.Values {
		m.index[v] = i
	}
}

// Code returns the frozen code for a value, or UnknownCode when the
// value was not observed at training time. The map never grows.
func (m *CategoryMap) Code(value string) int {
	if m.index != nil {
		if code, ok := m.index[value]; ok {
			return code
		}
		return UnknownCode
	}
	for i, v := range m.Values {
		if v == value {
			return i
		}
	}
	return UnknownCode
}

// Len returns the number of frozen categories.
func (m *CategoryMap) Len() int { return len(m.Values) }

// FreezeColumns freezes a CategoryMap for every categorical column of
// the frame.
func FreezeColumns(f *Frame) map[string]CategoryMap {
	maps := make(map[string]CategoryMap, len(f.catOrder))
	for _, name := range f.catOrder {
		maps[name] = Freeze(f.cats[name])
	}
	return maps
}

// EncodeColumn recasts a raw categorical column against a frozen map.
// Out-of-vocabulary values become UnknownCode and are counted, never a
// crash and never a new category.
func EncodeColumn(column string, m *CategoryMap, values []string) []float64 {
	codes := make([]float64, len(values))
	for i, v := range values {
		code := m.Code(v)
		if code == UnknownCode {
			infrastructure.UnknownCategories.WithLabelValues(column).Inc()
		}
		codes[i] = float64(code)
	}
	return codes
}
