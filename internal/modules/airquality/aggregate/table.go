package aggregate

import (
	"cmp"
	"encoding/json"
	"maps"
	"math"
	"slices"
)

// SummaryTable maps a bucket key to named statistic columns. Cells without a
// computable value hold NaN and encode as JSON null.
type SummaryTable[K cmp.Ordered] struct {
	columns []string
	rows    map[K]map[string]float64
}

func NewSummaryTable[K cmp.Ordered](columns []string) *SummaryTable[K] {
	return &SummaryTable[K]{
		columns: slices.Clone(columns),
		rows:    make(map[K]map[string]float64),
	}
}

func (t *SummaryTable[K]) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *SummaryTable[K]) Len() int {
	return len(t.rows)
}

// Keys returns the bucket keys in ascending order.
func (t *SummaryTable[K]) Keys() []K {
	return slices.Sorted(maps.Keys(t.rows))
}

func (t *SummaryTable[K]) Has(key K) bool {
	_, ok := t.rows[key]
	return ok
}

// Value returns the cell, or NaN when the key or column is absent.
func (t *SummaryTable[K]) Value(key K, column string) float64 {
	row, ok := t.rows[key]
	if !ok {
		return math.NaN()
	}
	v, ok := row[column]
	if !ok {
		return math.NaN()
	}
	return v
}

// Row returns a copy of the cells for key.
func (t *SummaryTable[K]) Row(key K) (map[string]float64, bool) {
	row, ok := t.rows[key]
	if !ok {
		return nil, false
	}
	return maps.Clone(row), true
}

// Column returns the column values in key order.
func (t *SummaryTable[K]) Column(column string) []float64 {
	keys := t.Keys()
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = t.Value(k, column)
	}
	return out
}

// ColumnMean averages the non-NaN values of a column.
func (t *SummaryTable[K]) ColumnMean(column string) float64 {
	return mean(present(t.Column(column)))
}

// ColumnMin is the smallest non-NaN value of a column.
func (t *SummaryTable[K]) ColumnMin(column string) float64 {
	return minimum(present(t.Column(column)))
}

func (t *SummaryTable[K]) addRow(key K) map[string]float64 {
	row, ok := t.rows[key]
	if !ok {
		row = make(map[string]float64, len(t.columns))
		for _, c := range t.columns {
			row[c] = math.NaN()
		}
		t.rows[key] = row
	}
	return row
}

type jsonRow[K cmp.Ordered] struct {
	Key    K                   `json:"key"`
	Values map[string]*float64 `json:"values"`
}

type jsonTable[K cmp.Ordered] struct {
	Columns []string     `json:"columns"`
	Rows    []jsonRow[K] `json:"rows"`
}

func (t *SummaryTable[K]) MarshalJSON() ([]byte, error) {
	out := jsonTable[K]{Columns: t.Columns(), Rows: make([]jsonRow[K], 0, len(t.rows))}
	for _, k := range t.Keys() {
		vals := make(map[string]*float64, len(t.columns))
		for _, c := range t.columns {
			v := t.Value(k, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				vals[c] = nil
				continue
			}
			vals[c] = &v
		}
		out.Rows = append(out.Rows, jsonRow[K]{Key: k, Values: vals})
	}
	return json.Marshal(out)
}
