package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable LoadFromEnv reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "STATIC_DIR",
		"DATASET_SOURCE", "DATASET_PATH",
		"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME", "DB_LOG_QUERIES",
		"MQTT_ENABLED", "MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID",
		"MQTT_SELECTION_TOPIC", "MQTT_VIEWS_TOPIC_PREFIX", "MQTT_MAX_SESSIONS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if !filepath.IsAbs(got.StaticDir) || filepath.Base(got.StaticDir) != "static" {
		t.Errorf("StaticDir = %q, want absolute path ending in static", got.StaticDir)
	}
	if got.DatasetSource != SourceCSV {
		t.Errorf("DatasetSource = %q, want %q", got.DatasetSource, SourceCSV)
	}
	if got.DatasetPath != "../dev/data/PRSA_Data_20130301-20170228.csv" {
		t.Errorf("DatasetPath = %q", got.DatasetPath)
	}
	if got.DBDriver != "sqlite3" || got.SQLitePath != "../dev/sqlite/app.db" || got.DBDSN != "" {
		t.Errorf("db = %q %q %q", got.DBDriver, got.SQLitePath, got.DBDSN)
	}
	if got.DBMaxOpenConns != 1 || got.DBMaxIdleConns != 1 || got.DBConnMaxLifetime != 0 {
		t.Errorf("pool = %d/%d/%v, want 1/1/0s", got.DBMaxOpenConns, got.DBMaxIdleConns, got.DBConnMaxLifetime)
	}
	if got.DBLogQueries {
		t.Error("DBLogQueries = true, want false")
	}
	if got.MQTTEnabled {
		t.Error("MQTTEnabled = true, want false")
	}
	if got.MQTTBroker != "localhost" || got.MQTTPort != 1883 || got.MQTTClientID != "airquality-server" {
		t.Errorf("mqtt = %q:%d %q", got.MQTTBroker, got.MQTTPort, got.MQTTClientID)
	}
	if got.MQTTSelectionTopic != "airquality/sessions/+/selection" {
		t.Errorf("MQTTSelectionTopic = %q", got.MQTTSelectionTopic)
	}
	if got.MQTTViewsTopicPrefix != "airquality/sessions" {
		t.Errorf("MQTTViewsTopicPrefix = %q", got.MQTTViewsTopicPrefix)
	}
	if got.MQTTMaxSessions != 1024 {
		t.Errorf("MQTTMaxSessions = %d, want 1024", got.MQTTMaxSessions)
	}
}

func TestLoadFromEnv_AppEnv_Valid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		want   string
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod", appEnv: "prod", want: "prod"},
		{name: "dev with whitespace", appEnv: "  dev  ", want: "dev"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_AppEnv_Invalid(t *testing.T) {
	for _, appEnv := range []string{"staging", "qa", "DEV", "whatever"} {
		t.Run(appEnv, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", appEnv)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadFromEnv_HTTPAddr(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "default when empty", in: "", want: ":8080"},
		{name: "trims whitespace", in: "  :9090  ", want: ":9090"},
		{name: "host:port", in: "127.0.0.1:8081", want: "127.0.0.1:8081"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("HTTP_ADDR", tt.in)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.HTTPAddr != tt.want {
				t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_DatasetSource(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "csv", want: SourceCSV},
		{in: "XLSX", want: SourceXLSX},
		{in: " sqlite ", want: SourceSQLite},
		{in: "parquet", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATASET_SOURCE", tt.in)

			got, err := LoadFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("LoadFromEnv() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.DatasetSource != tt.want {
				t.Errorf("DatasetSource = %q, want %q", got.DatasetSource, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")
	t.Setenv("DB_LOG_QUERIES", "true")
	t.Setenv("MQTT_ENABLED", "1")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_VIEWS_TOPIC_PREFIX", "aq/sessions/")
	t.Setenv("MQTT_MAX_SESSIONS", "16")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.DBMaxOpenConns != 4 {
		t.Errorf("DBMaxOpenConns = %d, want 4", got.DBMaxOpenConns)
	}
	if got.DBConnMaxLifetime != 5*time.Minute {
		t.Errorf("DBConnMaxLifetime = %v, want 5m", got.DBConnMaxLifetime)
	}
	if !got.DBLogQueries || !got.MQTTEnabled {
		t.Errorf("DBLogQueries = %v, MQTTEnabled = %v; want both true", got.DBLogQueries, got.MQTTEnabled)
	}
	if got.MQTTPort != 8883 {
		t.Errorf("MQTTPort = %d, want 8883", got.MQTTPort)
	}
	if got.MQTTViewsTopicPrefix != "aq/sessions" {
		t.Errorf("MQTTViewsTopicPrefix = %q, want trailing slash trimmed", got.MQTTViewsTopicPrefix)
	}
	if got.MQTTMaxSessions != 16 {
		t.Errorf("MQTTMaxSessions = %d, want 16", got.MQTTMaxSessions)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key string
		val string
	}{
		{"DB_MAX_OPEN_CONNS", "many"},
		{"DB_MAX_IDLE_CONNS", "1.5"},
		{"DB_CONN_MAX_LIFETIME", "forever"},
		{"DB_LOG_QUERIES", "sometimes"},
		{"MQTT_ENABLED", "yes please"},
		{"MQTT_PORT", "0"},
		{"MQTT_PORT", "70000"},
		{"MQTT_SELECTION_TOPIC", "airquality/sessions/+"},
		{"MQTT_MAX_SESSIONS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
		})
	}
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warn", in: "warn", want: slog.LevelWarn},
		{name: "warning", in: "warning", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		t.Run(in, func(t *testing.T) {
			got, err := parseLogLevel(in)
			if err == nil {
				t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", in)
			}
			if got != slog.LevelInfo {
				t.Errorf("parseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
			}
		})
	}
}
