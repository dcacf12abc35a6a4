package controller

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"airquality-server/internal/modules/airquality/bucket"
	"airquality-server/internal/modules/airquality/charts"
	"airquality-server/internal/modules/airquality/export"
	"airquality-server/internal/modules/airquality/report"
	"airquality-server/internal/modules/airquality/views"
	"airquality-server/internal/utils"
)

// compute parses the selection and recomputes the views, writing the error
// response itself when it returns false.
func (c *airQualityControllerImpl) compute(w http.ResponseWriter, r *http.Request) (*report.Views, bool) {
	sel, err := parseSelection(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	v, err := report.Recompute(c.data, sel)
	if err != nil {
		if errors.Is(err, bucket.ErrInvalidInput) {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		slog.Error("recompute views failed", "year", sel.Year, "station", sel.Station, "month", sel.Month, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to compute views")
		return nil, false
	}
	return v, true
}

func (c *airQualityControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	v, ok := c.compute(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, views.NewDashboardData(v)); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteBytes(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (c *airQualityControllerImpl) handleWeatherPartial(w http.ResponseWriter, r *http.Request) {
	v, ok := c.compute(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := views.RenderWeatherPartial(&buf, views.NewWeatherData(v)); err != nil {
		slog.Error("weather partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteBytes(w, http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (c *airQualityControllerImpl) handleFilters(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sel, filters := report.Resolve(c.data, sel)
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"selection": sel,
		"filters":   filters,
	})
}

func (c *airQualityControllerImpl) handleViews(w http.ResponseWriter, r *http.Request) {
	v, ok := c.compute(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, v)
}

func (c *airQualityControllerImpl) handleView(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	v, ok := c.compute(w, r)
	if !ok {
		return
	}
	table, found := v.Table(name)
	if !found {
		utils.WriteError(w, http.StatusNotFound, fmt.Sprintf("unknown view %q", name))
		return
	}
	utils.WriteJSON(w, http.StatusOK, table)
}

func (c *airQualityControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	render, found := chartFor(name)
	if !found {
		utils.WriteError(w, http.StatusNotFound, fmt.Sprintf("unknown chart %q", name))
		return
	}
	v, ok := c.compute(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, v); err != nil {
		if errors.Is(err, charts.ErrNegativeMinimum) || errors.Is(err, charts.ErrNoData) {
			utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.Error("chart render failed", "chart", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	utils.WriteBytes(w, http.StatusOK, "image/png", buf.Bytes())
}

func (c *airQualityControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	v, ok := c.compute(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, v); err != nil {
		slog.Error("export workbook failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to export")
		return
	}
	utils.WriteAttachment(w, exportFilename(v.Selection), xlsxContentType, buf.Bytes())
}
