package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gurisko/campwatch/internal/campground"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	html   string
	err    error
	urls   []string
	closes int
}

func (f *fakeSession) AvailabilityTable(_ context.Context, url string, _ time.Time) (string, error) {
	f.urls = append(f.urls, url)
	return f.html, f.err
}

func (f *fakeSession) Close() error {
	f.closes++
	return nil
}

func TestCheckerCheck(t *testing.T) {
	session := &fakeSession{html: tableHTML}
	c := NewChecker(session, zerolog.Nop())
	cg := campground.New(campground.Facility{Name: "Kirk Creek", ID: "233116"})

	ok, err := c.Check(context.Background(), cg, friday, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Check(context.Background(), cg, friday, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{cg.URL(), cg.URL()}, session.urls)
}

func TestCheckerCheck_ScrapeErrors(t *testing.T) {
	sessionErr := errors.New("timeout waiting for date input")
	tests := []struct {
		name    string
		session *fakeSession
		numDays int
		wantIs  error
	}{
		{name: "session failure", session: &fakeSession{err: sessionErr}, numDays: 1, wantIs: sessionErr},
		{name: "bad layout", session: &fakeSession{html: "<div></div>"}, numDays: 1, wantIs: ErrTableLayout},
		{name: "missing column", session: &fakeSession{html: tableHTML}, numDays: 5, wantIs: ErrMissingDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(tt.session, zerolog.Nop())
			cg := campground.New(campground.Facility{Name: "X", ID: "42"})

			ok, err := c.Check(context.Background(), cg, friday, tt.numDays)
			assert.False(t, ok)

			var se *ScrapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "42", se.FacilityID)
			assert.Equal(t, cg.URL(), se.URL)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestCheckerClose(t *testing.T) {
	session := &fakeSession{}
	require.NoError(t, NewChecker(session, zerolog.Nop()).Close())
	assert.Equal(t, 1, session.closes)

	assert.NoError(t, NewChecker(nil, zerolog.Nop()).Close())
}
