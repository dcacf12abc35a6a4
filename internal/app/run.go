package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airquality-server/internal/config"
	db "airquality-server/internal/db"
	httpapi "airquality-server/internal/httpapi"
	"airquality-server/internal/migrate"
	airquality "airquality-server/internal/modules/airquality"
	"airquality-server/internal/modules/airquality/views"
	"airquality-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"datasetSource", cfg.DatasetSource,
		"datasetPath", cfg.DatasetPath,
		"dbDriver", cfg.DBDriver,
		"sqlitePath", cfg.SQLitePath,
		"dbMaxOpenConns", cfg.DBMaxOpenConns,
		"dbMaxIdleConns", cfg.DBMaxIdleConns,
		"dbConnMaxLifetime", cfg.DBConnMaxLifetime,
		"dbLogQueries", cfg.DBLogQueries,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttSelectionTopic", cfg.MQTTSelectionTopic,
		"mqttMaxSessions", cfg.MQTTMaxSessions,
	)
	dbConn, err := db.Open(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if _, err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}
	slog.Info("database connection successful")

	data, err := airquality.LoadDataset(ctx, cfg, dbConn)
	if err != nil {
		return err
	}
	if data.Len() == 0 {
		slog.Warn("dataset is empty; views will have no rows", "source", cfg.DatasetSource)
	}

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	mux := httpapi.NewMux(dbConn, cfg.StaticDir)
	airquality.RegisterFeature(mux, data)

	var mqttClient *mqtt.Client
	if cfg.MQTTEnabled {
		mqttClient = mqtt.NewClient(cfg, slog.Default())
		// Handler before Connect: the broker may deliver right after CONNACK.
		airquality.RegisterMessaging(mqttClient, mqttClient, data, cfg, slog.Default())

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = mqttClient.Connect(connectCtx)
		connectCancel()
		if err != nil {
			// HTTP keeps serving without MQTT; paho retries in the background.
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if mqttClient != nil {
		slog.Info("mqtt disconnecting")
		mqttClient.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
