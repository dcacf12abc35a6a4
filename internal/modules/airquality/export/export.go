// Package export writes the dashboard views to an XLSX workbook, one sheet
// per view plus a summary sheet with the selection and headline metrics.
package export

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/xuri/excelize/v2"

	"airquality-server/internal/modules/airquality/aggregate"
	"airquality-server/internal/modules/airquality/report"
)

const summarySheet = "summary"

// Workbook builds the workbook in memory. The caller owns the returned file
// and must Close it.
func Workbook(v *report.Views) (*excelize.File, error) {
	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			if err := f.Close(); err != nil {
				slog.Error("close workbook", "error", err)
			}
		}
	}()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}
	if err := writeSummary(f, v, header); err != nil {
		return nil, err
	}

	sheets := []struct {
		name  string
		write func(sheet string) error
	}{
		{report.ViewParticulateMonthly, func(s string) error { return writeTable(f, s, "month", v.ParticulateMonthly, header) }},
		{report.ViewGasMonthly, func(s string) error { return writeTable(f, s, "month", v.GasMonthly, header) }},
		{report.ViewGasSeasonal, func(s string) error { return writeTable(f, s, "season", v.GasSeasonal, header) }},
		{report.ViewWeatherWeekly, func(s string) error { return writeTable(f, s, "week", v.WeatherWeekly, header) }},
	}
	for _, s := range sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", s.name, err)
		}
		if err := s.write(s.name); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)

	ok = true
	return f, nil
}

// Write streams the workbook for v to w.
func Write(w io.Writer, v *report.Views) error {
	f, err := Workbook(v)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close workbook", "error", err)
		}
	}()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, v *report.Views, header int) error {
	rows := [][]any{
		{"year", v.Selection.Year},
		{"station", v.Selection.Station},
		{"month", v.Selection.Month},
		{},
		{"gas", "average"},
	}
	for _, h := range v.Headlines {
		rows = append(rows, []any{string(h.Field), cell(h.Value)})
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}
	return f.SetRowStyle(summarySheet, 5, 5, header)
}

func writeTable[K cmp.Ordered](f *excelize.File, sheet, keyName string, t *aggregate.SummaryTable[K], header int) error {
	cols := t.Columns()
	head := make([]any, 0, len(cols)+1)
	head = append(head, keyName)
	for _, c := range cols {
		head = append(head, c)
	}
	if err := setRow(f, sheet, 1, head); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
		return err
	}
	for i, k := range t.Keys() {
		row := make([]any, 0, len(cols)+1)
		row = append(row, k)
		for _, c := range cols {
			row = append(row, cell(t.Value(k, c)))
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	addr, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, addr, &values)
}

// cell leaves missing values blank instead of writing NaN.
func cell(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
