package db

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"airquality-server/internal/config"
)

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "explicit DSN wins",
			cfg:  config.Config{DBDSN: "file::memory:", SQLitePath: filepath.Join(dir, "ignored.db")},
			want: "file::memory:",
		},
		{
			name: "plain path",
			cfg:  config.Config{SQLitePath: filepath.Join(dir, "app.db")},
			want: "file:" + filepath.Join(dir, "app.db") + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
		{
			name: "file URI with params",
			cfg:  config.Config{SQLitePath: "file:" + filepath.Join(dir, "x.db") + "?mode=rwc"},
			want: "file:" + filepath.Join(dir, "x.db") + "?mode=rwc&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN: %v", err)
			}
			if got != tt.want {
				t.Errorf("buildDSN = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_createsParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "aq.db")
	cfg := config.Config{DBDriver: "sqlite3", SQLitePath: path, DBMaxOpenConns: 1, DBMaxIdleConns: 1}

	conn, err := Open(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = Close(conn) }()

	if _, err := conn.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatalf("exec: %v", err)
	}
}

func TestOpen_logQueries(t *testing.T) {
	handler := &captureHandler{}
	cfg := config.Config{DBDriver: "sqlite3", DBDSN: ":memory:", DBMaxOpenConns: 1, DBLogQueries: true}

	conn, err := Open(context.Background(), cfg, slog.New(handler))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = Close(conn) }()

	if _, err := conn.Exec(`SELECT 1`); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(handler.recordsFor(t, "sql")) == 0 {
		t.Error("expected sql log records with DBLogQueries")
	}
}

func TestOpen_logQueriesRequiresSQLite(t *testing.T) {
	cfg := config.Config{DBDriver: "postgres", DBDSN: "x", DBLogQueries: true}
	_, err := Open(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "sqlite3") {
		t.Fatalf("Open error = %v, want sqlite3 driver error", err)
	}
}

func TestClose_nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Errorf("Close(nil) = %v, want nil", err)
	}
}
