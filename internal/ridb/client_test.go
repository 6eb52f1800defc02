package ridb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gurisko/campwatch/internal/campground"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFacilities(t *testing.T) {
	body := `{
		"RECDATA": [
			{"FacilityID": "233116", "FacilityName": "KIRK CREEK", "FacilityTypeDescription": "Campground"},
			{"FacilityID": 231959, "FacilityName": "plaskett  creek campground", "FacilityTypeDescription": "Campground"},
			{"FacilityID": "1000", "FacilityName": "Some Trailhead", "FacilityTypeDescription": "Trailhead"}
		],
		"METADATA": {"RESULTS": {"CURRENT_COUNT": 3, "TOTAL_COUNT": 3}}
	}`

	srv := newTestServer(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		q := r.URL.Query()
		assert.Equal(t, "35.994431", q.Get("latitude"))
		assert.Equal(t, "-121.394325", q.Get("longitude"))
		assert.Equal(t, "20", q.Get("radius"))
		assert.Equal(t, "Campground", q.Get("FacilityTypeDescription"))
		assert.Equal(t, "20", q.Get("limit"))
	})

	c := NewClient(srv.URL, "secret")
	got, err := c.Facilities(context.Background(), SearchParams{Latitude: 35.994431, Longitude: -121.394325, RadiusMiles: 20})
	require.NoError(t, err)

	assert.Equal(t, []campground.Facility{
		{Name: "Kirk Creek", ID: "233116"},
		{Name: "Plaskett Creek Campground", ID: "231959"},
	}, got)
}

func TestFacilities_CustomLimit(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"RECDATA": []}`, func(r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
	})

	got, err := NewClient(srv.URL, "k", WithLimit(5)).Facilities(context.Background(), SearchParams{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFacilities_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "forbidden", status: http.StatusForbidden, body: `{"error":"bad key"}`, wantErr: ErrUnavailable},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: ErrUnavailable},
		{name: "no recdata", status: http.StatusOK, body: `{"METADATA": {}}`, wantErr: ErrMalformedResponse},
		{name: "no type", status: http.StatusOK, body: `{"RECDATA": [{"FacilityID": "1", "FacilityName": "x"}]}`, wantErr: ErrMalformedResponse},
		{name: "no id", status: http.StatusOK, body: `{"RECDATA": [{"FacilityName": "x", "FacilityTypeDescription": "Campground"}]}`, wantErr: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body, nil)
			_, err := NewClient(srv.URL, "k").Facilities(context.Background(), SearchParams{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFacilities_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{not json`, nil)
	_, err := NewClient(srv.URL, "k").Facilities(context.Background(), SearchParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode RIDB response")
}

func TestFormatName(t *testing.T) {
	tests := map[string]string{
		"KIRK CREEK":           "Kirk Creek",
		"  plaskett   creek  ": "Plaskett Creek",
		"McGILL CAMPGROUND":    "Mcgill Campground",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatName(in), "input %q", in)
	}
}
