package airquality

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"airquality-server/internal/config"
	"airquality-server/internal/modules/airquality/controller"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/service"
)

// LoadDataset reads the measurements from the configured source. The sqlite
// source reads what `aqtool import` stored.
func LoadDataset(ctx context.Context, cfg config.Config, db *sql.DB) (dataset.RecordSet, error) {
	switch cfg.DatasetSource {
	case config.SourceCSV, config.SourceXLSX:
		return dataset.Open(cfg.DatasetPath)
	case config.SourceSQLite:
		repo := repository.NewRepository(db)
		records, err := repo.GetRecords(ctx)
		if err != nil {
			return dataset.RecordSet{}, fmt.Errorf("load records from sqlite: %w", err)
		}
		stations, err := repo.GetStations(ctx)
		if err != nil {
			return dataset.RecordSet{}, fmt.Errorf("load stations from sqlite: %w", err)
		}
		slog.Info("dataset loaded", "source", cfg.DatasetSource, "records", len(records), "stations", len(stations))
		return dataset.NewRecordSet(records), nil
	default:
		return dataset.RecordSet{}, fmt.Errorf("dataset source %q: %w", cfg.DatasetSource, dataset.ErrUnsupportedFormat)
	}
}

func RegisterFeature(mux *http.ServeMux, data dataset.RecordSet) {
	airQualityController := controller.NewAirQualityController(data)
	airQualityController.RegisterRoutes(mux)
}

// RegisterMessaging answers selection events from sub with views on pub.
func RegisterMessaging(sub service.Subscriber, pub service.Publisher, data dataset.RecordSet, cfg config.Config, logger *slog.Logger) *service.Service {
	svc := service.NewService(data, pub, cfg.MQTTViewsTopicPrefix, cfg.MQTTMaxSessions, logger)
	svc.Register(sub)
	return svc
}
