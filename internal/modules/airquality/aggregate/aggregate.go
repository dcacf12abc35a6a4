// Package aggregate groups records into buckets and computes mean, min and
// max per field over the non-missing values of each bucket.
package aggregate

import (
	"cmp"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/types"
)

// ErrUnknownStatistic is returned for a statistic other than mean, min or max.
var ErrUnknownStatistic = errors.New("unknown statistic")

type Statistic string

const (
	Mean Statistic = "mean"
	Min  Statistic = "min"
	Max  Statistic = "max"
)

// AllStatistics is the mean/min/max triple requested by every monthly and
// weekly view.
var AllStatistics = []Statistic{Mean, Min, Max}

// Metric requests statistics for one field.
type Metric struct {
	Field types.Field
	Stats []Statistic
}

// Metrics builds the same statistics for each field.
func Metrics(fields []types.Field, stats ...Statistic) []Metric {
	out := make([]Metric, len(fields))
	for i, f := range fields {
		out[i] = Metric{Field: f, Stats: stats}
	}
	return out
}

// ColumnName is the flattened column label, e.g. "PM2.5_mean".
func ColumnName(field types.Field, stat Statistic) string {
	return string(field) + "_" + string(stat)
}

// Columns lists the output columns for metrics in request order.
func Columns(metrics []Metric) []string {
	var out []string
	for _, m := range metrics {
		for _, s := range m.Stats {
			out = append(out, ColumnName(m.Field, s))
		}
	}
	return out
}

// Aggregate groups records by bucketFn and computes every requested
// statistic. A bucket function error stops aggregation and is returned
// wrapped. An empty record set yields an empty table.
func Aggregate[K cmp.Ordered](records dataset.RecordSet, bucketFn func(types.Record) (K, error), metrics []Metric) (*SummaryTable[K], error) {
	for _, m := range metrics {
		for _, s := range m.Stats {
			if _, err := compute(s, nil); err != nil {
				return nil, fmt.Errorf("metric %s: %w", m.Field, err)
			}
		}
	}
	table := NewSummaryTable[K](Columns(metrics))

	groups := make(map[K]map[types.Field][]float64)
	for i, r := range records.All {
		key, err := bucketFn(r)
		if err != nil {
			return nil, fmt.Errorf("bucket record %d: %w", i, err)
		}
		g, ok := groups[key]
		if !ok {
			g = make(map[types.Field][]float64, len(metrics))
			groups[key] = g
		}
		for _, m := range metrics {
			if v, ok := r.Value(m.Field); ok && !math.IsNaN(v) {
				g[m.Field] = append(g[m.Field], v)
			}
		}
	}

	for key, g := range groups {
		row := table.addRow(key)
		for _, m := range metrics {
			vals := g[m.Field]
			for _, s := range m.Stats {
				v, err := compute(s, vals)
				if err != nil {
					return nil, fmt.Errorf("metric %s: %w", m.Field, err)
				}
				row[ColumnName(m.Field, s)] = v
			}
		}
	}
	return table, nil
}

// Regroup re-buckets an already aggregated table, averaging the given
// columns of every source row that maps to the same new key. NaN cells are
// skipped, so a new bucket whose sources are all NaN stays NaN.
func Regroup[K, J cmp.Ordered](src *SummaryTable[K], keyFn func(K) (J, error), columns []string) (*SummaryTable[J], error) {
	table := NewSummaryTable[J](columns)

	groups := make(map[J]map[string][]float64)
	for _, k := range src.Keys() {
		key, err := keyFn(k)
		if err != nil {
			return nil, fmt.Errorf("regroup key %v: %w", k, err)
		}
		g, ok := groups[key]
		if !ok {
			g = make(map[string][]float64, len(columns))
			groups[key] = g
		}
		for _, c := range columns {
			if v := src.Value(k, c); !math.IsNaN(v) {
				g[c] = append(g[c], v)
			}
		}
	}

	for key, g := range groups {
		row := table.addRow(key)
		for _, c := range columns {
			row[c] = mean(g[c])
		}
	}
	return table, nil
}

// compute returns NaN for no values.
func compute(s Statistic, vals []float64) (float64, error) {
	switch s {
	case Mean:
		return mean(vals), nil
	case Min:
		return minimum(vals), nil
	case Max:
		if len(vals) == 0 {
			return math.NaN(), nil
		}
		return floats.Max(vals), nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownStatistic, s)
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

func minimum(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return floats.Min(vals)
}

func present(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
