package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"airquality-server/internal/modules/airquality/aggregate"
	"airquality-server/internal/modules/airquality/charts"
	"airquality-server/internal/modules/airquality/report"
	"airquality-server/internal/modules/airquality/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// parseSelection reads year, station and month from the query. Missing values
// stay zero and are resolved to defaults later.
func parseSelection(r *http.Request) (report.Selection, error) {
	q := r.URL.Query()
	var sel report.Selection

	if s := strings.TrimSpace(q.Get("year")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return report.Selection{}, errors.New("invalid 'year' (expected integer)")
		}
		sel.Year = n
	}
	sel.Station = strings.TrimSpace(q.Get("station"))
	if s := strings.TrimSpace(q.Get("month")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return report.Selection{}, errors.New("invalid 'month' (expected integer)")
		}
		sel.Month = n
	}

	if err := sel.Validate(); err != nil {
		return report.Selection{}, err
	}
	return sel, nil
}

type chartFunc func(w io.Writer, v *report.Views) error

// chartFor maps a chart name to its renderer:
// particulate_{mean,min,max}, gas_seasonal_{gas} and weather_{field}.
func chartFor(name string) (chartFunc, bool) {
	if rest, ok := strings.CutPrefix(name, "particulate_"); ok {
		stat := aggregate.Statistic(rest)
		if !slices.Contains(aggregate.AllStatistics, stat) {
			return nil, false
		}
		return func(w io.Writer, v *report.Views) error {
			title := fmt.Sprintf("Particulate %s per month", stat)
			return charts.MonthlyLine(w, v.ParticulateMonthly, types.Particulates, stat, title)
		}, true
	}
	if rest, ok := strings.CutPrefix(name, "gas_seasonal_"); ok {
		gas := types.Field(rest)
		if !slices.Contains(types.Gases, gas) {
			return nil, false
		}
		return func(w io.Writer, v *report.Views) error {
			title := fmt.Sprintf("%s average per season", gas)
			return charts.SeasonalBar(w, v.GasSeasonal, aggregate.ColumnName(gas, aggregate.Mean), title)
		}, true
	}
	if rest, ok := strings.CutPrefix(name, "weather_"); ok {
		field := types.Field(rest)
		if !slices.Contains(types.Weather, field) {
			return nil, false
		}
		return func(w io.Writer, v *report.Views) error {
			title := fmt.Sprintf("%s share per week", field)
			return charts.WeeklyShare(w, v.WeatherWeekly, field, title)
		}, true
	}
	return nil, false
}

func exportFilename(sel report.Selection) string {
	station := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, sel.Station)
	if station == "" {
		station = "all"
	}
	return fmt.Sprintf("airquality-%s-%d-%02d.xlsx", station, sel.Year, sel.Month)
}
