package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Dataset sources.
const (
	SourceCSV    = "csv"
	SourceXLSX   = "xlsx"
	SourceSQLite = "sqlite"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	DatasetSource string
	DatasetPath   string

	DBDriver          string
	DBDSN             string
	SQLitePath        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBLogQueries      bool

	MQTTEnabled          bool
	MQTTBroker           string
	MQTTPort             int
	MQTTClientID         string
	MQTTSelectionTopic   string
	MQTTViewsTopicPrefix string
	MQTTMaxSessions      int
}

func LoadFromEnv() (Config, error) {
	appEnv := env("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	staticDir := env("STATIC_DIR", "static")
	staticDir, err = filepath.Abs(staticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	source := strings.ToLower(env("DATASET_SOURCE", SourceCSV))
	switch source {
	case SourceCSV, SourceXLSX, SourceSQLite:
	default:
		return Config{}, fmt.Errorf("invalid DATASET_SOURCE %q (allowed: csv, xlsx, sqlite)", source)
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetimeStr := env("DB_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}
	logQueries, err := envBool("DB_LOG_QUERIES", false)
	if err != nil {
		return Config{}, err
	}

	mqttEnabled, err := envBool("MQTT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (allowed: 1-65535)", mqttPort)
	}
	maxSessions, err := envInt("MQTT_MAX_SESSIONS", 1024)
	if err != nil {
		return Config{}, err
	}
	if maxSessions <= 0 {
		return Config{}, fmt.Errorf("invalid MQTT_MAX_SESSIONS %d (must be positive)", maxSessions)
	}
	selectionTopic := env("MQTT_SELECTION_TOPIC", "airquality/sessions/+/selection")
	if !strings.HasSuffix(selectionTopic, "/selection") {
		return Config{}, fmt.Errorf("invalid MQTT_SELECTION_TOPIC %q (must end with /selection)", selectionTopic)
	}

	return Config{
		AppEnv:               appEnv,
		LogLevel:             level,
		HTTPAddr:             env("HTTP_ADDR", ":8080"),
		StaticDir:            staticDir,
		DatasetSource:        source,
		DatasetPath:          env("DATASET_PATH", "../dev/data/PRSA_Data_20130301-20170228.csv"),
		DBDriver:             env("DB_DRIVER", "sqlite3"),
		DBDSN:                env("DB_DSN", ""),
		SQLitePath:           env("SQLITE_PATH", "../dev/sqlite/app.db"),
		DBMaxOpenConns:       maxOpenConns,
		DBMaxIdleConns:       maxIdleConns,
		DBConnMaxLifetime:    connMaxLifetime,
		DBLogQueries:         logQueries,
		MQTTEnabled:          mqttEnabled,
		MQTTBroker:           env("MQTT_BROKER", "localhost"),
		MQTTPort:             mqttPort,
		MQTTClientID:         env("MQTT_CLIENT_ID", "airquality-server"),
		MQTTSelectionTopic:   selectionTopic,
		MQTTViewsTopicPrefix: strings.TrimSuffix(env("MQTT_VIEWS_TOPIC_PREFIX", "airquality/sessions"), "/"),
		MQTTMaxSessions:      maxSessions,
	}, nil
}

// env returns the trimmed value of key, or def when it is unset or blank.
func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
