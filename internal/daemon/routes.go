//go:build unix

package daemon

import (
	"net/http"
)

func (d *Daemon) setupRoutes(mux *http.ServeMux) {
	// Health endpoint
	mux.HandleFunc("/health", d.handleHealth)

	// Campground endpoints
	mux.HandleFunc("/api/campgrounds", d.handleListCampgrounds)
	mux.HandleFunc("/api/campgrounds/", d.handleCampgroundByID)
}
