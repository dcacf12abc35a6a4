package report

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"airquality-server/internal/modules/airquality/aggregate"
	"airquality-server/internal/modules/airquality/bucket"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/types"
)

// Selection is the user's filter state. Zero values mean "not chosen".
type Selection struct {
	Year    int    `json:"year"`
	Station string `json:"station"`
	Month   int    `json:"month"`
}

// Filters are the choices offered for a selection: years and stations of the
// whole dataset, months of the selected year and station.
type Filters struct {
	Years    []int    `json:"years"`
	Stations []string `json:"stations"`
	Months   []int    `json:"months"`
}

// Headline is the mean of a gas over the monthly means, rounded to two
// decimals. Value is NaN when the gas has no readings.
type Headline struct {
	Field types.Field `json:"field"`
	Value float64     `json:"-"`
}

type jsonHeadline struct {
	Field types.Field `json:"field"`
	Value *float64    `json:"value"`
}

func (h Headline) MarshalJSON() ([]byte, error) {
	out := jsonHeadline{Field: h.Field}
	if !math.IsNaN(h.Value) && !math.IsInf(h.Value, 0) {
		out.Value = &h.Value
	}
	return json.Marshal(out)
}

type Views struct {
	Selection          Selection                              `json:"selection"`
	Filters            Filters                                `json:"filters"`
	Headlines          []Headline                             `json:"headlines"`
	ParticulateMonthly *aggregate.SummaryTable[int]           `json:"particulate_monthly"`
	GasMonthly         *aggregate.SummaryTable[int]           `json:"gas_monthly"`
	GasSeasonal        *aggregate.SummaryTable[bucket.Season] `json:"gas_seasonal"`
	WeatherWeekly      *aggregate.SummaryTable[int]           `json:"weather_weekly"`
}

// Table returns the named view as a JSON-encodable value.
func (v *Views) Table(name string) (any, bool) {
	switch name {
	case ViewParticulateMonthly:
		return v.ParticulateMonthly, true
	case ViewGasMonthly:
		return v.GasMonthly, true
	case ViewGasSeasonal:
		return v.GasSeasonal, true
	case ViewWeatherWeekly:
		return v.WeatherWeekly, true
	default:
		return nil, false
	}
}

// Validate rejects values that cannot come from a calendar.
func (s Selection) Validate() error {
	if s.Month != 0 && (s.Month < 1 || s.Month > 12) {
		return fmt.Errorf("month %d out of range 1-12: %w", s.Month, bucket.ErrInvalidInput)
	}
	if s.Year < 0 {
		return fmt.Errorf("year %d is negative: %w", s.Year, bucket.ErrInvalidInput)
	}
	return nil
}

// Resolve fills unchosen fields with the first value offered, the way the
// selection controls default to their first option. A month not present for
// the chosen year and station falls back to the first available month.
func Resolve(data dataset.RecordSet, sel Selection) (Selection, Filters) {
	f := Filters{Years: data.Years(), Stations: data.Stations()}
	if sel.Year == 0 && len(f.Years) > 0 {
		sel.Year = f.Years[0]
	}
	if sel.Station == "" && len(f.Stations) > 0 {
		sel.Station = f.Stations[0]
	}
	f.Months = data.ForYearStation(sel.Year, sel.Station).Months()
	if !slices.Contains(f.Months, sel.Month) {
		sel.Month = 0
		if len(f.Months) > 0 {
			sel.Month = f.Months[0]
		}
	}
	return sel, f
}

// Recompute derives every view for a selection. It is called on each
// selection change and keeps no state between calls.
func Recompute(data dataset.RecordSet, sel Selection) (*Views, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	sel, filters := Resolve(data, sel)
	subset := data.ForYearStation(sel.Year, sel.Station)

	particulate, err := ParticulateMonthly(subset)
	if err != nil {
		return nil, fmt.Errorf("particulate monthly: %w", err)
	}
	gasMonthly, err := GasMonthly(subset)
	if err != nil {
		return nil, fmt.Errorf("gas monthly: %w", err)
	}
	gasSeasonal, err := GasSeasonalFromMonthly(gasMonthly)
	if err != nil {
		return nil, fmt.Errorf("gas seasonal: %w", err)
	}
	weather, err := WeatherWeekly(subset.ForMonth(sel.Month))
	if err != nil {
		return nil, fmt.Errorf("weather weekly: %w", err)
	}

	return &Views{
		Selection:          sel,
		Filters:            filters,
		Headlines:          GasHeadlines(gasMonthly),
		ParticulateMonthly: particulate,
		GasMonthly:         gasMonthly,
		GasSeasonal:        gasSeasonal,
		WeatherWeekly:      weather,
	}, nil
}

func GasHeadlines(monthly *aggregate.SummaryTable[int]) []Headline {
	out := make([]Headline, len(types.Gases))
	for i, g := range types.Gases {
		v := monthly.ColumnMean(aggregate.ColumnName(g, aggregate.Mean))
		out[i] = Headline{Field: g, Value: Round2(v)}
	}
	return out
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}
