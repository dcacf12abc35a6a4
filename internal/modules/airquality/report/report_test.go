package report

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-server/internal/modules/airquality/bucket"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/types"
)

func gasRecord(month, day int, so2 float64) types.Record {
	return types.Record{Year: 2014, Month: month, Day: day, Station: "Dongsi", SO2: types.Float(so2)}
}

func TestGasSeasonal_averagesMonthlyMeans(t *testing.T) {
	// Monthly SO2 means are Dec 10, Jan 20, Feb 30; the raw readings average 23.33.
	rs := dataset.NewRecordSet([]types.Record{
		gasRecord(12, 1, 10),
		gasRecord(1, 1, 15),
		gasRecord(1, 2, 25),
		gasRecord(2, 1, 30),
		gasRecord(2, 2, 30),
		gasRecord(2, 3, 30),
	})

	seasonal, err := GasSeasonal(rs)
	require.NoError(t, err)

	assert.Equal(t, []bucket.Season{bucket.Winter}, seasonal.Keys())
	assert.Equal(t, 20.0, seasonal.Value(bucket.Winter, "SO2_mean"))
	assert.True(t, math.IsNaN(seasonal.Value(bucket.Winter, "NO2_mean")))
	assert.Equal(t, []string{"SO2_mean", "NO2_mean", "CO_mean", "O3_mean"}, seasonal.Columns())
}

func TestWeatherWeekly_januaryFourWeeks(t *testing.T) {
	var records []types.Record
	for d := 1; d <= 28; d++ {
		records = append(records, types.Record{
			Year: 2015, Month: 1, Day: d, Station: "Dongsi",
			TEMP: types.Float(float64(d)),
		})
	}

	weekly, err := WeatherWeekly(dataset.NewRecordSet(records))
	require.NoError(t, err)

	require.Equal(t, []int{1, 2, 3, 4}, weekly.Keys())
	for w, want := range map[int]float64{1: 4, 2: 11, 3: 18, 4: 25} {
		assert.InDelta(t, want, weekly.Value(w, "TEMP_mean"), 1e-9, "week %d", w)
		assert.Equal(t, want-3, weekly.Value(w, "TEMP_min"), "week %d", w)
		assert.Equal(t, want+3, weekly.Value(w, "TEMP_max"), "week %d", w)
	}
	assert.True(t, math.IsNaN(weekly.Value(1, "PRES_mean")))
}

func TestWeatherWeekly_rejectsSeveralMonths(t *testing.T) {
	rs := dataset.NewRecordSet([]types.Record{
		{Year: 2015, Month: 1, Day: 1, Station: "A"},
		{Year: 2015, Month: 2, Day: 1, Station: "A"},
	})
	_, err := WeatherWeekly(rs)
	assert.ErrorIs(t, err, bucket.ErrInvalidInput)
}

func TestWeatherWeekly_keepsNegativeMinimum(t *testing.T) {
	rs := dataset.NewRecordSet([]types.Record{
		{Year: 2015, Month: 1, Day: 2, Station: "A", TEMP: types.Float(-7.5)},
		{Year: 2015, Month: 1, Day: 3, Station: "A", TEMP: types.Float(1.5)},
	})
	weekly, err := WeatherWeekly(rs)
	require.NoError(t, err)
	assert.Equal(t, -7.5, weekly.Value(1, "TEMP_min"))
	assert.Equal(t, -3.0, weekly.Value(1, "TEMP_mean"))
}

func TestMonthlyViews_columns(t *testing.T) {
	empty := dataset.NewRecordSet(nil)

	p, err := ParticulateMonthly(empty)
	require.NoError(t, err)
	assert.Equal(t, []string{"PM2.5_mean", "PM2.5_min", "PM2.5_max", "PM10_mean", "PM10_min", "PM10_max"}, p.Columns())
	assert.Equal(t, 0, p.Len())

	g, err := GasMonthly(empty)
	require.NoError(t, err)
	assert.Len(t, g.Columns(), 12)

	s, err := GasSeasonal(empty)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func loadSample(t *testing.T) dataset.RecordSet {
	t.Helper()
	rs, err := dataset.Open(filepath.Join("..", "dataset", "testdata", "sample.csv"))
	require.NoError(t, err)
	return rs
}

func TestRecompute_defaultSelection(t *testing.T) {
	data := loadSample(t)

	views, err := Recompute(data, Selection{})
	require.NoError(t, err)

	assert.Equal(t, Selection{Year: 2013, Station: "Aotizhongxin", Month: 3}, views.Selection)
	assert.Equal(t, []int{2013, 2014}, views.Filters.Years)
	assert.Equal(t, []string{"Aotizhongxin", "Changping"}, views.Filters.Stations)
	assert.Equal(t, []int{3, 4}, views.Filters.Months)

	assert.Equal(t, []int{3, 4}, views.ParticulateMonthly.Keys())
	assert.Equal(t, 15.5, views.ParticulateMonthly.Value(3, "PM2.5_mean"))
	assert.InDelta(t, 6.4, views.GasMonthly.Value(3, "SO2_mean"), 1e-9)
	assert.Equal(t, []bucket.Season{bucket.Spring}, views.GasSeasonal.Keys())
	assert.InDelta(t, 9.7, views.GasSeasonal.Value(bucket.Spring, "SO2_mean"), 1e-9)

	assert.Equal(t, []int{1, 2, 3, 4}, views.WeatherWeekly.Keys())
	assert.Equal(t, -1.1, views.WeatherWeekly.Value(1, "TEMP_min"))

	want := map[types.Field]float64{types.SO2: 9.7, types.NO2: 30.5, types.CO: 585, types.O3: 50.9}
	require.Len(t, views.Headlines, 4)
	for _, h := range views.Headlines {
		assert.InDelta(t, want[h.Field], h.Value, 1e-9, "headline %s", h.Field)
	}
}

func TestRecompute_explicitSelection(t *testing.T) {
	data := loadSample(t)

	views, err := Recompute(data, Selection{Year: 2013, Station: "Aotizhongxin", Month: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, views.Selection.Month)
	assert.Equal(t, []int{1, 2}, views.WeatherWeekly.Keys())

	other, err := Recompute(data, Selection{Year: 2014, Station: "Aotizhongxin", Month: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, other.Selection.Month, "month not present falls back to the first one")
	assert.Equal(t, []bucket.Season{bucket.Winter}, other.GasSeasonal.Keys())
}

func TestRecompute_unknownStationYieldsEmptyViews(t *testing.T) {
	views, err := Recompute(loadSample(t), Selection{Year: 2013, Station: "Nowhere"})
	require.NoError(t, err)
	assert.Equal(t, 0, views.ParticulateMonthly.Len())
	assert.Equal(t, 0, views.WeatherWeekly.Len())
	assert.Empty(t, views.Filters.Months)
	for _, h := range views.Headlines {
		assert.True(t, math.IsNaN(h.Value))
	}
}

func TestRecompute_invalidMonth(t *testing.T) {
	_, err := Recompute(loadSample(t), Selection{Month: 13})
	assert.ErrorIs(t, err, bucket.ErrInvalidInput)
}

func TestViews_JSON(t *testing.T) {
	views, err := Recompute(loadSample(t), Selection{})
	require.NoError(t, err)

	b, err := json.Marshal(views)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &decoded))
	for _, name := range ViewNames {
		assert.Contains(t, decoded, name)
		table, ok := views.Table(name)
		assert.True(t, ok)
		assert.NotNil(t, table)
	}
	_, ok := views.Table("nope")
	assert.False(t, ok)
	assert.Contains(t, string(decoded["headlines"]), `"field":"SO2","value":9.7`)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, -2.5, Round2(-2.499))
	assert.True(t, math.IsNaN(Round2(math.NaN())))
}

func TestHeadline_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Headline
		want string
	}{
		{"value", Headline{Field: types.SO2, Value: 9.7}, `{"field":"SO2","value":9.7}`},
		{"missing is null", Headline{Field: types.CO, Value: math.NaN()}, `{"field":"CO","value":null}`},
		{"infinite is null", Headline{Field: types.O3, Value: math.Inf(1)}, `{"field":"O3","value":null}`},
		{"large value stays a JSON number", Headline{Field: types.CO, Value: 1e21}, `{"field":"CO","value":1e+21}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}
