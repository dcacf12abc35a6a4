package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"airquality-server/internal/modules/airquality/types"
)

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-station-id-by-name.sql
var getStationIDByNameSQL string

//go:embed sql/upsert-station.sql
var upsertStationSQL string

//go:embed sql/get-records.sql
var getRecordsSQL string

//go:embed sql/get-records-count.sql
var getRecordsCountSQL string

//go:embed sql/insert-measurement.sql
var insertMeasurementSQL string

//go:embed sql/delete-measurements.sql
var deleteMeasurementsSQL string

type AirQualityRepository interface {
	GetStations(ctx context.Context) ([]types.Station, error)
	GetRecords(ctx context.Context) ([]types.Record, error)
	GetRecordsCount(ctx context.Context) (int, error)
	// InsertRecords appends records in one transaction, creating stations
	// on first sight, and returns the number of rows written.
	InsertRecords(ctx context.Context, records []types.Record) (int, error)
	// ReplaceRecords swaps every stored measurement for records in one
	// transaction.
	ReplaceRecords(ctx context.Context, records []types.Record) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) AirQualityRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	var out []types.Station
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetRecords(ctx context.Context) ([]types.Record, error) {
	rows, err := r.db.QueryContext(ctx, getRecordsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close records rows", "error", err)
		}
	}()
	var out []types.Record
	for rows.Next() {
		var rec types.Record
		err := rows.Scan(
			&rec.Station, &rec.Year, &rec.Month, &rec.Day, &rec.Hour,
			&rec.PM25, &rec.PM10, &rec.SO2, &rec.NO2, &rec.CO, &rec.O3,
			&rec.TEMP, &rec.PRES, &rec.DEWP, &rec.WSPM,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetRecordsCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, getRecordsCountSQL).Scan(&n)
	return n, err
}

func (r *repositoryImpl) InsertRecords(ctx context.Context, records []types.Record) (int, error) {
	return r.write(ctx, records, false)
}

func (r *repositoryImpl) ReplaceRecords(ctx context.Context, records []types.Record) (int, error) {
	return r.write(ctx, records, true)
}

func (r *repositoryImpl) write(ctx context.Context, records []types.Record, replace bool) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if replace {
		if _, err := tx.ExecContext(ctx, deleteMeasurementsSQL); err != nil {
			return 0, fmt.Errorf("delete measurements: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, insertMeasurementSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close insert statement", "error", err)
		}
	}()

	stationIDs := make(map[string]int64)
	written := 0
	for i, rec := range records {
		name := strings.TrimSpace(rec.Station)
		if name == "" {
			return 0, fmt.Errorf("record %d: missing station", i)
		}
		id, ok := stationIDs[name]
		if !ok {
			id, err = ensureStation(ctx, tx, name)
			if err != nil {
				return 0, err
			}
			stationIDs[name] = id
		}
		res, err := stmt.ExecContext(ctx,
			id, rec.Year, rec.Month, rec.Day, rec.Hour,
			rec.PM25, rec.PM10, rec.SO2, rec.NO2, rec.CO, rec.O3,
			rec.TEMP, rec.PRES, rec.DEWP, rec.WSPM,
		)
		if err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

func ensureStation(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx, upsertStationSQL, name); err != nil {
		return 0, fmt.Errorf("upsert station %q: %w", name, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, getStationIDByNameSQL, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup station %q: %w", name, err)
	}
	return id, nil
}
