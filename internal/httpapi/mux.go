package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux registers the health check and static assets. Feature modules add
// their own routes to the returned mux.
func NewMux(db *sql.DB, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	if staticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	return mux
}
