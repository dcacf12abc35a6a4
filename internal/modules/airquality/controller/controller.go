package controller

import (
	"net/http"

	"airquality-server/internal/modules/airquality/dataset"
)

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type airQualityControllerImpl struct {
	data dataset.RecordSet
}

func NewAirQualityController(data dataset.RecordSet) AirQualityController {
	return &airQualityControllerImpl{data: data}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/weather", c.handleWeatherPartial)
	mux.HandleFunc("GET /charts/{name}", c.handleChart)
	mux.HandleFunc("GET /api/v1/filters", c.handleFilters)
	mux.HandleFunc("GET /api/v1/views", c.handleViews)
	mux.HandleFunc("GET /api/v1/views/{name}", c.handleView)
	mux.HandleFunc("GET /api/v1/export.xlsx", c.handleExport)
}
