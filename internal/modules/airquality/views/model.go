package views

import (
	"cmp"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"airquality-server/internal/modules/airquality/aggregate"
	"airquality-server/internal/modules/airquality/bucket"
	"airquality-server/internal/modules/airquality/charts"
	"airquality-server/internal/modules/airquality/report"
	"airquality-server/internal/modules/airquality/types"
)

var printer = message.NewPrinter(language.English)

var funcs = template.FuncMap{
	"num":       formatNumber,
	"monthName": monthName,
}

// formatNumber prints two decimals with thousands grouping, or "n/a" for
// missing values.
func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return printer.Sprintf("%.2f", v)
}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return strconv.Itoa(m)
	}
	return time.Month(m).String()
}

type Option struct {
	Value    string
	Label    string
	Selected bool
}

type Headline struct {
	Label string
	Value float64
}

type Chart struct {
	Title string
	URL   string
	// Error replaces the chart when it cannot be drawn.
	Error string
}

type TableRow struct {
	Key   string
	Cells []float64
}

type Table struct {
	Name     string
	KeyLabel string
	Columns  []string
	Rows     []TableRow
}

type WeatherData struct {
	Year    int
	Station string
	Month   int
	Months  []Option
	Charts  []Chart
	Table   Table
}

type DashboardData struct {
	Years       []Option
	Stations    []Option
	Selection   report.Selection
	Headlines   []Headline
	Particulate []Chart
	Seasonal    []Chart
	Weather     WeatherData
	Tables      []Table
}

var weatherTitles = map[types.Field]string{
	types.TEMP: "Average temperature per week",
	types.WSPM: "Average wind speed per week",
	types.PRES: "Average pressure per week",
	types.DEWP: "Average dew point per week",
}

// Weekly charts in display order.
var weatherOrder = []types.Field{types.TEMP, types.WSPM, types.PRES, types.DEWP}

// NewDashboardData turns computed views into the page model.
func NewDashboardData(v *report.Views) *DashboardData {
	sel := v.Selection
	d := &DashboardData{Selection: sel}

	for _, y := range v.Filters.Years {
		s := strconv.Itoa(y)
		d.Years = append(d.Years, Option{Value: s, Label: s, Selected: y == sel.Year})
	}
	for _, st := range v.Filters.Stations {
		d.Stations = append(d.Stations, Option{Value: st, Label: st, Selected: st == sel.Station})
	}
	for _, h := range v.Headlines {
		d.Headlines = append(d.Headlines, Headline{Label: "Average " + string(h.Field), Value: h.Value})
	}
	for _, s := range aggregate.AllStatistics {
		d.Particulate = append(d.Particulate, Chart{
			Title: "Particulate " + string(s) + " per month",
			URL:   ChartURL("particulate_"+string(s), sel),
		})
	}
	for _, g := range types.Gases {
		d.Seasonal = append(d.Seasonal, Chart{
			Title: string(g) + " average per season",
			URL:   ChartURL("gas_seasonal_"+string(g), sel),
		})
	}
	d.Weather = *NewWeatherData(v)
	d.Tables = []Table{
		newTable(report.ViewParticulateMonthly, "Month", v.ParticulateMonthly, strconv.Itoa),
		newTable(report.ViewGasMonthly, "Month", v.GasMonthly, strconv.Itoa),
		newTable(report.ViewGasSeasonal, "Season", v.GasSeasonal, func(s bucket.Season) string { return string(s) }),
	}
	return d
}

// NewWeatherData builds the weekly weather section, substituting an error
// message for charts that cannot be drawn.
func NewWeatherData(v *report.Views) *WeatherData {
	sel := v.Selection
	w := &WeatherData{Year: sel.Year, Station: sel.Station, Month: sel.Month}
	for _, m := range v.Filters.Months {
		w.Months = append(w.Months, Option{Value: strconv.Itoa(m), Label: monthName(m), Selected: m == sel.Month})
	}
	for _, f := range weatherOrder {
		c := Chart{Title: weatherTitles[f]}
		switch err := charts.CheckWeekly(v.WeatherWeekly, f); {
		case err == nil:
			c.URL = ChartURL("weather_"+string(f), sel)
		case errors.Is(err, charts.ErrNegativeMinimum):
			c.Error = fmt.Sprintf("Some %s values are negative", f)
		default:
			c.Error = fmt.Sprintf("No %s data for this month", f)
		}
		w.Charts = append(w.Charts, c)
	}
	w.Table = newTable(report.ViewWeatherWeekly, "Week", v.WeatherWeekly, strconv.Itoa)
	return w
}

// ChartURL links a chart image to the selection it was computed for.
func ChartURL(name string, sel report.Selection) string {
	q := url.Values{}
	q.Set("year", strconv.Itoa(sel.Year))
	q.Set("station", sel.Station)
	q.Set("month", strconv.Itoa(sel.Month))
	return "/charts/" + url.PathEscape(name) + "?" + q.Encode()
}

func newTable[K cmp.Ordered](name, keyLabel string, t *aggregate.SummaryTable[K], key func(K) string) Table {
	out := Table{Name: name, KeyLabel: keyLabel, Columns: t.Columns()}
	for _, k := range t.Keys() {
		row := TableRow{Key: key(k)}
		for _, c := range out.Columns {
			row.Cells = append(row.Cells, t.Value(k, c))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
