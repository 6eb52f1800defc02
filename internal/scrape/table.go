package scrape

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Element identifiers on the recreation.gov availability page. These only
// change when the site layout changes.
const (
	DateInputID         = "single-date-picker-1"
	AvailabilityTableID = "availability-table"
	LoadingOverlayClass = "rec-table-overlay"
	LocationIconClass   = "camp-location-name--icon"
	RefreshButtonXPath  = `//*[@id="page-body"]/div/div[1]/div[1]/div[3]/div[1]/div[1]/div/div/button[1]`

	// AvailableMark is the cell text for an open site on a given night
	AvailableMark = "A"
)

var (
	// ErrTableLayout indicates the availability table did not have the expected shape
	ErrTableLayout = errors.New("unexpected availability table layout")
	// ErrMissingDate indicates a requested night is not a column of the table
	ErrMissingDate = errors.New("date column not found in availability table")
)

// Table is the parsed availability grid: one column per site attribute or
// night, one row per site.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ParseTable parses the outer HTML of the availability table.
func ParseTable(html string) (*Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse availability table: %w", err)
	}

	// The first header row only carries the month; night columns are in the second.
	headerRows := doc.Find("thead").First().Find("tr")
	if headerRows.Length() < 2 {
		return nil, fmt.Errorf("%w: expected 2 header rows, found %d", ErrTableLayout, headerRows.Length())
	}

	t := &Table{}
	headerRows.Eq(1).Find("th").Each(func(_ int, s *goquery.Selection) {
		t.Columns = append(t.Columns, strings.TrimSpace(s.Text()))
	})
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("%w: no column headers", ErrTableLayout)
	}

	doc.Find("tbody").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		row.Find("div." + LocationIconClass).Remove()
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		t.Rows = append(t.Rows, cells)
	})

	return t, nil
}

// ColumnName returns the header text the table uses for a night, e.g. "Fri17".
func ColumnName(day time.Time) string {
	return day.Format("Mon") + strconv.Itoa(day.Day())
}

// AllDatesAvailable reports whether every night from start through
// start+numDays-1 has at least one available site. The nights may be at
// different sites.
func (t *Table) AllDatesAvailable(start time.Time, numDays int) (bool, error) {
	if numDays <= 0 {
		return false, fmt.Errorf("numDays must be positive, got %d", numDays)
	}

	index := make(map[string]int, len(t.Columns))
	for i, name := range t.Columns {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	cols := make([]int, 0, numDays)
	for d := 0; d < numDays; d++ {
		name := ColumnName(start.AddDate(0, 0, d))
		col, ok := index[name]
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrMissingDate, name)
		}
		cols = append(cols, col)
	}

	for _, col := range cols {
		if !t.columnHasAvailability(col) {
			return false, nil
		}
	}
	return true, nil
}

func (t *Table) columnHasAvailability(col int) bool {
	for _, row := range t.Rows {
		if col < len(row) && row[col] == AvailableMark {
			return true
		}
	}
	return false
}
