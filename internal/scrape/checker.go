package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/gurisko/campwatch/internal/campground"
	"github.com/rs/zerolog"
)

// Session loads a campground's availability page for a start date and
// returns the availability table's outer HTML. A session is owned by one
// caller and is not safe for concurrent use.
type Session interface {
	AvailabilityTable(ctx context.Context, url string, start time.Time) (string, error)
	Close() error
}

// ScrapeError is a failed availability check for a single campground.
type ScrapeError struct {
	FacilityID string
	URL        string
	Err        error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s (%s): %v", e.FacilityID, e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// Checker answers whether a campground is bookable for a date window. It
// keeps no state between calls.
type Checker struct {
	session Session
	log     zerolog.Logger
}

// NewChecker creates a checker backed by session
func NewChecker(session Session, log zerolog.Logger) *Checker {
	return &Checker{session: session, log: log}
}

// Check loads the campground's page and reports whether every night of the
// window has an open site. Failures are returned as *ScrapeError.
func (c *Checker) Check(ctx context.Context, cg *campground.Campground, start time.Time, numDays int) (bool, error) {
	url := cg.URL()
	wrap := func(err error) error {
		return &ScrapeError{FacilityID: cg.FacilityID, URL: url, Err: err}
	}

	c.log.Debug().Str("facility_id", cg.FacilityID).Str("url", url).Msg("Loading availability page")
	html, err := c.session.AvailabilityTable(ctx, url, start)
	if err != nil {
		return false, wrap(err)
	}

	table, err := ParseTable(html)
	if err != nil {
		return false, wrap(err)
	}

	ok, err := table.AllDatesAvailable(start, numDays)
	if err != nil {
		return false, wrap(err)
	}
	return ok, nil
}

// Close releases the underlying session
func (c *Checker) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}
