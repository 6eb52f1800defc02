//go:build unix

package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gurisko/campwatch/internal/campground"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(t *testing.T) (*http.ServeMux, *Daemon) {
	t.Helper()
	reg := newTestRegistry(t, "233116,231962")
	_, err := reg.MarkAvailable("233116")
	require.NoError(t, err)

	poller := newTestPoller(reg, &fakeChecker{}, &recordingNotifier{}, PollerConfig{
		StartDate: time.Date(2030, time.September, 17, 0, 0, 0, 0, time.Local),
		NumDays:   3,
	})
	d := New(&Config{Registry: reg, Poller: poller})

	mux := http.NewServeMux()
	d.setupRoutes(mux)
	return mux, d
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	mux, d := newTestMux(t)

	rec := serve(mux, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, d.runID, resp.RunID)
	assert.Equal(t, 1, resp.Available)
	assert.Equal(t, 1, resp.Pending)
}

func TestHandleListCampgrounds(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := serve(mux, http.MethodGet, "/api/campgrounds")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListCampgroundsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2030-09-17", resp.StartDate)
	assert.Equal(t, 3, resp.NumDays)
	require.Len(t, resp.Campgrounds, 2)
	assert.Equal(t, "233116", resp.Campgrounds[0].FacilityID)
	assert.True(t, resp.Campgrounds[0].Available)
	assert.Equal(t, campground.BaseURL+"/233116/availability", resp.Campgrounds[0].URL)
	assert.Equal(t, "231962", resp.Campgrounds[1].FacilityID)
	assert.False(t, resp.Campgrounds[1].Available)
}

func TestHandleCampgroundByID(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := serve(mux, http.MethodGet, "/api/campgrounds/231962")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ShowCampgroundResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "231962", resp.Campground.FacilityID)
	assert.Equal(t, campground.UnknownName, resp.Campground.Name)
}

func TestHandleCampgroundErrors(t *testing.T) {
	mux, _ := newTestMux(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/campgrounds/999999", http.StatusNotFound},
		{http.MethodGet, "/api/campgrounds/", http.StatusBadRequest},
		{http.MethodDelete, "/api/campgrounds/231962", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/campgrounds", http.StatusMethodNotAllowed},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		rec := serve(mux, tt.method, tt.path)
		assert.Equal(t, tt.status, rec.Code, "%s %s", tt.method, tt.path)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
	}
}
