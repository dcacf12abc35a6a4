package airquality

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"airquality-server/internal/config"
	"airquality-server/internal/migrate"
	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/repository"
	"airquality-server/internal/modules/airquality/types"
)

func sampleCSV() string {
	return filepath.Join("dataset", "testdata", "sample.csv")
}

func memDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	if _, err := migrate.Run(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestLoadDataset_CSV(t *testing.T) {
	cfg := config.Config{DatasetSource: config.SourceCSV, DatasetPath: sampleCSV()}
	data, err := LoadDataset(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if data.Len() != 9 {
		t.Errorf("Len = %d; want 9", data.Len())
	}
}

func TestLoadDataset_SQLite(t *testing.T) {
	ctx := context.Background()
	conn := memDB(t)
	src, err := dataset.Open(sampleCSV())
	if err != nil {
		t.Fatalf("open sample: %v", err)
	}
	if _, err := repository.NewRepository(conn).InsertRecords(ctx, src.Records()); err != nil {
		t.Fatalf("InsertRecords: %v", err)
	}

	data, err := LoadDataset(ctx, config.Config{DatasetSource: config.SourceSQLite}, conn)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if data.Len() != src.Len() {
		t.Fatalf("Len = %d; want %d", data.Len(), src.Len())
	}
	if got := data.Stations(); len(got) != 2 || got[0] != "Aotizhongxin" {
		t.Errorf("Stations = %v", got)
	}
	if _, ok := data.At(2).Value(types.PM25); ok {
		t.Error("missing PM2.5 should survive the round trip as missing")
	}
}

func TestLoadDataset_Unsupported(t *testing.T) {
	_, err := LoadDataset(context.Background(), config.Config{DatasetSource: "parquet"}, nil)
	if !errors.Is(err, dataset.ErrUnsupportedFormat) {
		t.Fatalf("LoadDataset error = %v; want ErrUnsupportedFormat", err)
	}
}

func TestRegisterFeature(t *testing.T) {
	data, err := dataset.Open(sampleCSV())
	if err != nil {
		t.Fatalf("open sample: %v", err)
	}
	mux := http.NewServeMux()
	RegisterFeature(mux, data)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/filters", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusOK)
	}
}

type recordingPublisher struct{ topics []string }

func (p *recordingPublisher) PublishJSON(topic string, _ any) error {
	p.topics = append(p.topics, topic)
	return nil
}

type handlerHolder struct{ h func(string, []byte) }

func (s *handlerHolder) SetMessageHandler(h func(string, []byte)) { s.h = h }

func TestRegisterMessaging(t *testing.T) {
	data, err := dataset.Open(sampleCSV())
	if err != nil {
		t.Fatalf("open sample: %v", err)
	}
	sub := &handlerHolder{}
	pub := &recordingPublisher{}
	cfg := config.Config{MQTTViewsTopicPrefix: "aq/sessions"}

	svc := RegisterMessaging(sub, pub, data, cfg, nil)
	if svc == nil || sub.h == nil {
		t.Fatal("RegisterMessaging did not install a handler")
	}
	sub.h("aq/sessions/tab-1/selection", []byte(`{"year":2014}`))
	if len(pub.topics) != 1 || pub.topics[0] != "aq/sessions/tab-1/views" {
		t.Errorf("published topics = %v", pub.topics)
	}
}
