package dataset

import (
	"airquality-server/internal/modules/airquality/types"
)

// RecordSet is an immutable, ordered view over loaded records. Filtering
// returns a new view over the same backing slice.
type RecordSet struct {
	records []types.Record
	idx     []int // nil selects every record
}

// NewRecordSet copies records so later changes by the caller are not observed.
func NewRecordSet(records []types.Record) RecordSet {
	cp := make([]types.Record, len(records))
	copy(cp, records)
	return RecordSet{records: cp}
}

func (rs RecordSet) Len() int {
	if rs.idx == nil {
		return len(rs.records)
	}
	return len(rs.idx)
}

// At returns the i-th record of the view.
func (rs RecordSet) At(i int) types.Record {
	if rs.idx == nil {
		return rs.records[i]
	}
	return rs.records[rs.idx[i]]
}

// All iterates the view in order.
func (rs RecordSet) All(yield func(int, types.Record) bool) {
	for i := 0; i < rs.Len(); i++ {
		if !yield(i, rs.At(i)) {
			return
		}
	}
}

// Records returns a copy of the records in the view.
func (rs RecordSet) Records() []types.Record {
	out := make([]types.Record, 0, rs.Len())
	for _, r := range rs.All {
		out = append(out, r)
	}
	return out
}

func (rs RecordSet) Filter(keep func(types.Record) bool) RecordSet {
	idx := make([]int, 0)
	for i := 0; i < rs.Len(); i++ {
		pos := i
		if rs.idx != nil {
			pos = rs.idx[i]
		}
		if keep(rs.records[pos]) {
			idx = append(idx, pos)
		}
	}
	return RecordSet{records: rs.records, idx: idx}
}

func (rs RecordSet) ForYearStation(year int, station string) RecordSet {
	return rs.Filter(func(r types.Record) bool {
		return r.Year == year && r.Station == station
	})
}

func (rs RecordSet) ForMonth(month int) RecordSet {
	return rs.Filter(func(r types.Record) bool {
		return r.Month == month
	})
}

// Years returns the distinct years in order of first appearance.
func (rs RecordSet) Years() []int {
	return distinct(rs, func(r types.Record) int { return r.Year })
}

// Stations returns the distinct station names in order of first appearance.
func (rs RecordSet) Stations() []string {
	return distinct(rs, func(r types.Record) string { return r.Station })
}

// Months returns the distinct months in order of first appearance.
func (rs RecordSet) Months() []int {
	return distinct(rs, func(r types.Record) int { return r.Month })
}

func distinct[T comparable](rs RecordSet, key func(types.Record) T) []T {
	seen := make(map[T]struct{})
	var out []T
	for _, r := range rs.All {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
