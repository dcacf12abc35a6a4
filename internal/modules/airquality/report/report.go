// Package report assembles the dashboard views from a record set filtered to
// one year and station.
package report

import (
	"fmt"

	"airquality-server/internal/modules/airquality/aggregate"
	"airquality-server/internal/modules/airquality/bucket"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/types"
)

// View names, as used by the HTTP and export surfaces.
const (
	ViewParticulateMonthly = "particulate_monthly"
	ViewGasMonthly         = "gas_monthly"
	ViewGasSeasonal        = "gas_seasonal"
	ViewWeatherWeekly      = "weather_weekly"
)

var ViewNames = []string{ViewParticulateMonthly, ViewGasMonthly, ViewGasSeasonal, ViewWeatherWeekly}

var (
	particulateMetrics = aggregate.Metrics(types.Particulates, aggregate.AllStatistics...)
	gasMetrics         = aggregate.Metrics(types.Gases, aggregate.AllStatistics...)
	weatherMetrics     = aggregate.Metrics(types.Weather, aggregate.AllStatistics...)
)

func ParticulateMonthly(rs dataset.RecordSet) (*aggregate.SummaryTable[int], error) {
	return aggregate.Aggregate(rs, bucket.ByMonth, particulateMetrics)
}

func GasMonthly(rs dataset.RecordSet) (*aggregate.SummaryTable[int], error) {
	return aggregate.Aggregate(rs, bucket.ByMonth, gasMetrics)
}

// GasSeasonal averages the monthly gas means per season. It is a second pass
// over GasMonthly, so every month weighs the same regardless of how many
// readings it holds.
func GasSeasonal(rs dataset.RecordSet) (*aggregate.SummaryTable[bucket.Season], error) {
	monthly, err := GasMonthly(rs)
	if err != nil {
		return nil, err
	}
	return GasSeasonalFromMonthly(monthly)
}

func GasSeasonalFromMonthly(monthly *aggregate.SummaryTable[int]) (*aggregate.SummaryTable[bucket.Season], error) {
	return aggregate.Regroup(monthly, bucket.SeasonOf, SeasonalColumns())
}

// SeasonalColumns are the mean column of each gas.
func SeasonalColumns() []string {
	out := make([]string, len(types.Gases))
	for i, g := range types.Gases {
		out[i] = aggregate.ColumnName(g, aggregate.Mean)
	}
	return out
}

// WeatherWeekly needs records from a single month; week buckets of different
// months would otherwise be merged.
func WeatherWeekly(rs dataset.RecordSet) (*aggregate.SummaryTable[int], error) {
	if months := rs.Months(); len(months) > 1 {
		return nil, fmt.Errorf("weather weekly: records span %d months: %w", len(months), bucket.ErrInvalidInput)
	}
	return aggregate.Aggregate(rs, bucket.ByWeek, weatherMetrics)
}
