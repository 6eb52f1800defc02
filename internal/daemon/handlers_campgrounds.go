//go:build unix

package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gurisko/campwatch/internal/campground"
	"github.com/gurisko/campwatch/internal/registry"
)

// Request/Response types

type HealthResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	RunID     string  `json:"run_id"`
	Available int     `json:"available"`
	Pending   int     `json:"pending"`
	Stats     Stats   `json:"stats"`
}

type ListCampgroundsResponse struct {
	StartDate   string                `json:"start_date"`
	NumDays     int                   `json:"num_days"`
	Campgrounds []campground.Snapshot `json:"campgrounds"`
}

type ShowCampgroundResponse struct {
	Campground campground.Snapshot `json:"campground"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler methods

func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{
		Status: "ok",
		Uptime: time.Since(d.startTime).Seconds(),
		RunID:  d.runID,
	}
	if d.registry != nil {
		resp.Available, resp.Pending = d.registry.Counts()
	}
	if d.poller != nil {
		resp.Stats = d.poller.Stats()
	}
	writeJSON(w, resp, http.StatusOK)
}

func (d *Daemon) handleListCampgrounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := ListCampgroundsResponse{
		Campgrounds: d.registry.Snapshot(),
	}
	if d.poller != nil {
		cfg := d.poller.Config()
		resp.StartDate = cfg.StartDate.Format(time.DateOnly)
		resp.NumDays = cfg.NumDays
	}
	writeJSON(w, resp, http.StatusOK)
}

// handleCampgroundByID serves /api/campgrounds/{id}
func (d *Daemon) handleCampgroundByID(w http.ResponseWriter, r *http.Request) {
	facilityID := strings.TrimPrefix(r.URL.Path, "/api/campgrounds/")
	if facilityID == "" || facilityID == r.URL.Path || strings.Contains(facilityID, "/") {
		writeError(w, "facility ID is required", http.StatusBadRequest)
		return
	}

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := d.registry.Get(facilityID)
	if err != nil {
		if errors.Is(err, registry.ErrCampgroundNotFound) {
			writeError(w, "campground not found", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, ShowCampgroundResponse{Campground: snap}, http.StatusOK)
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	buf, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

func writeError(w http.ResponseWriter, message string, status int) {
	resp := ErrorResponse{
		Error: message,
	}
	writeJSON(w, resp, status)
}
