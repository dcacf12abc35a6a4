package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"airquality-server/internal/modules/airquality/types"
)

var ErrUnsupportedFormat = errors.New("unsupported dataset format")

const (
	colYear    = "year"
	colMonth   = "month"
	colDay     = "day"
	colHour    = "hour"
	colStation = "station"
)

// Values treated as missing when parsing numeric columns.
var nanValues = []string{"", "NA", "NaN", "nan", "<nil>"}

func loadOptions() []dataframe.LoadOption {
	colTypes := map[string]series.Type{
		colYear:    series.Float,
		colMonth:   series.Float,
		colDay:     series.Float,
		colHour:    series.Float,
		colStation: series.String,
	}
	for _, f := range types.Fields() {
		colTypes[string(f)] = series.Float
	}
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
		dataframe.WithTypes(colTypes),
	}
}

// Open loads a dataset file, choosing the parser by extension.
func Open(path string) (RecordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return RecordSet{}, fmt.Errorf("open dataset: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close dataset file", "path", path, "error", err)
		}
	}()

	var rs RecordSet
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		rs, err = LoadCSV(f)
	case ".xlsx":
		rs, err = LoadXLSX(f)
	default:
		return RecordSet{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return RecordSet{}, fmt.Errorf("load %s: %w", path, err)
	}
	slog.Info("dataset loaded", "path", path, "records", rs.Len())
	return rs, nil
}

func LoadCSV(r io.Reader) (RecordSet, error) {
	df := dataframe.ReadCSV(r, loadOptions()...)
	if df.Err != nil {
		return RecordSet{}, fmt.Errorf("read csv: %w", df.Err)
	}
	return FromDataFrame(df)
}

// LoadXLSX reads the first sheet of a workbook whose first row is the header.
func LoadXLSX(r io.Reader) (RecordSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return RecordSet{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close xlsx", "error", err)
		}
	}()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return RecordSet{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return RecordSet{}, fmt.Errorf("sheet %q is empty", sheet)
	}
	// GetRows drops trailing empty cells; gota needs rectangular input.
	width := len(rows[0])
	for i, row := range rows {
		if len(row) < width {
			rows[i] = append(row, make([]string, width-len(row))...)
		}
	}

	df := dataframe.LoadRecords(rows, loadOptions()...)
	if df.Err != nil {
		return RecordSet{}, fmt.Errorf("load rows: %w", df.Err)
	}
	return FromDataFrame(df)
}

// FromDataFrame converts a frame with the dataset header into records.
// Missing numeric cells become nil measurements; missing time or station
// cells are rejected.
func FromDataFrame(df dataframe.DataFrame) (RecordSet, error) {
	names := df.Names()
	required := []string{colYear, colMonth, colDay, colStation}
	for _, f := range types.Fields() {
		required = append(required, string(f))
	}
	for _, name := range required {
		if !slices.Contains(names, name) {
			return RecordSet{}, fmt.Errorf("missing column %q", name)
		}
	}

	n := df.Nrow()
	years := df.Col(colYear).Float()
	months := df.Col(colMonth).Float()
	days := df.Col(colDay).Float()
	stations := df.Col(colStation).Records()
	var hours []float64
	if slices.Contains(names, colHour) {
		hours = df.Col(colHour).Float()
	}
	values := make(map[types.Field][]float64, len(types.Fields()))
	for _, f := range types.Fields() {
		values[f] = df.Col(string(f)).Float()
	}

	records := make([]types.Record, n)
	for i := 0; i < n; i++ {
		year, err := wholeNumber(colYear, i, years[i])
		if err != nil {
			return RecordSet{}, err
		}
		month, err := wholeNumber(colMonth, i, months[i])
		if err != nil {
			return RecordSet{}, err
		}
		day, err := wholeNumber(colDay, i, days[i])
		if err != nil {
			return RecordSet{}, err
		}
		station := strings.TrimSpace(stations[i])
		if station == "" || slices.Contains(nanValues, station) {
			return RecordSet{}, fmt.Errorf("row %d: missing station", i+1)
		}
		rec := types.Record{Year: year, Month: month, Day: day, Station: station}
		if hours != nil && !math.IsNaN(hours[i]) {
			rec.Hour = int(hours[i])
		}
		for _, f := range types.Fields() {
			v := values[f][i]
			if math.IsNaN(v) {
				continue
			}
			rec.Set(f, types.Float(v))
		}
		records[i] = rec
	}
	return RecordSet{records: records}, nil
}

func wholeNumber(col string, row int, v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("row %d: missing %s", row+1, col)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("row %d: %s %v is not a whole number", row+1, col, v)
	}
	return int(v), nil
}
