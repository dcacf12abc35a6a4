package httpapi

import (
	"net/http"
	"time"

	"airquality-server/internal/config"
)

// NewServer wraps the handler with request logging. Chart rendering and the
// XLSX export can take a while on a full year, hence the generous write timeout.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(handler),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
