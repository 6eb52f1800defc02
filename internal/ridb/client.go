package ridb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gurisko/campwatch/internal/campground"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrUnavailable indicates RIDB did not answer with a success status
	ErrUnavailable = errors.New("unable to access RIDB API; check connection and API key")
	// ErrMalformedResponse indicates expected fields were missing from the response
	ErrMalformedResponse = errors.New("unexpected RIDB response; check RIDB API specs")
)

// Client is a lightweight RIDB facilities search client
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limit      int
	log        zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimit sets the number of facilities requested per search
func WithLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithLogger sets the client's logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new RIDB API client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limit:      DefaultLimit,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest executes a GET with the RIDB API key header
func (c *Client) doRequest(ctx context.Context, query url.Values) (*http.Response, error) {
	u := c.baseURL
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp, nil
}

// Facilities searches for campgrounds within a radius of a coordinate and
// returns their display names and facility IDs.
func (c *Client) Facilities(ctx context.Context, p SearchParams) ([]campground.Facility, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	query.Set("radius", strconv.FormatFloat(p.RadiusMiles, 'f', -1, 64))
	query.Set("FacilityTypeDescription", CampgroundType)
	query.Set("limit", strconv.Itoa(c.limit))

	c.log.Debug().
		Float64("latitude", p.Latitude).
		Float64("longitude", p.Longitude).
		Float64("radius", p.RadiusMiles).
		Msg("Searching RIDB for campgrounds")

	resp, err := c.doRequest(ctx, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxSearchResponseSize)).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode RIDB response: %w", err)
	}
	if sr.RecData == nil {
		return nil, fmt.Errorf("%w: no RECDATA element", ErrMalformedResponse)
	}

	records := make([]facilityRecord, 0, len(sr.RecData))
	for _, rec := range sr.RecData {
		if rec.FacilityType == nil {
			return nil, fmt.Errorf("%w: no FacilityTypeDescription field in RECDATA element", ErrMalformedResponse)
		}
		if *rec.FacilityType == CampgroundType {
			records = append(records, rec)
		}
	}
	c.log.Info().Int("results", len(records)).Msg("Received results from RIDB, parsing campground info")

	facilities := make([]campground.Facility, 0, len(records))
	for _, rec := range records {
		if rec.FacilityID == nil || rec.FacilityName == nil {
			return nil, fmt.Errorf("%w: no FacilityID or FacilityName field in campground record", ErrMalformedResponse)
		}
		facilities = append(facilities, campground.Facility{
			Name: FormatName(*rec.FacilityName),
			ID:   string(*rec.FacilityID),
		})
	}
	c.log.Info().
		Int("facilities", len(facilities)).
		Int("results", len(records)).
		Msg("Parsed facilities from RIDB results")

	return facilities, nil
}

// FormatName capitalizes each word of an RIDB facility name and collapses
// whitespace, so "KIRK  CREEK" becomes "Kirk Creek".
func FormatName(name string) string {
	caser := cases.Title(language.English)
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}
