package scrape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Friday, September 17 2021
var friday = time.Date(2021, time.September, 17, 0, 0, 0, 0, time.Local)

const tableHTML = `<table id="availability-table">
  <thead>
    <tr><th colspan="5">September</th></tr>
    <tr><th>Site</th><th>Loop</th><th>Fri17</th><th>Sat18</th><th>Sun19</th></tr>
  </thead>
  <tbody>
    <tr>
      <th><div class="camp-location-name--icon">A</div>001</th>
      <td>Main</td><td>A</td><td>R</td><td>R</td>
    </tr>
    <tr>
      <th>002</th>
      <td>Main</td><td>R</td><td> A </td><td>X</td>
    </tr>
  </tbody>
</table>`

func TestParseTable(t *testing.T) {
	table, err := ParseTable(tableHTML)
	require.NoError(t, err)

	assert.Equal(t, []string{"Site", "Loop", "Fri17", "Sat18", "Sun19"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"001", "Main", "A", "R", "R"}, table.Rows[0])
	assert.Equal(t, []string{"002", "Main", "R", "A", "X"}, table.Rows[1])
}

func TestParseTable_BadLayout(t *testing.T) {
	tests := map[string]string{
		"single header row": `<table><thead><tr><th>Site</th></tr></thead><tbody></tbody></table>`,
		"no thead":          `<table><tbody><tr><td>A</td></tr></tbody></table>`,
		"empty headers":     `<table><thead><tr><th>Sep</th></tr><tr></tr></thead></table>`,
	}
	for name, html := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable(html)
			assert.ErrorIs(t, err, ErrTableLayout)
		})
	}
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "Fri17", ColumnName(friday))
	assert.Equal(t, "Sat18", ColumnName(friday.AddDate(0, 0, 1)))
	assert.Equal(t, "Fri1", ColumnName(time.Date(2021, time.October, 1, 0, 0, 0, 0, time.UTC)))
}

func TestAllDatesAvailable(t *testing.T) {
	table, err := ParseTable(tableHTML)
	require.NoError(t, err)

	tests := []struct {
		name    string
		start   time.Time
		numDays int
		want    bool
	}{
		{name: "one night open", start: friday, numDays: 1, want: true},
		{name: "two nights across different sites", start: friday, numDays: 2, want: true},
		{name: "third night full", start: friday, numDays: 3, want: false},
		{name: "last night only", start: friday.AddDate(0, 0, 2), numDays: 1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.AllDatesAvailable(tt.start, tt.numDays)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllDatesAvailable_MissingColumn(t *testing.T) {
	table, err := ParseTable(tableHTML)
	require.NoError(t, err)

	_, err = table.AllDatesAvailable(friday, 4)
	assert.ErrorIs(t, err, ErrMissingDate)
}

func TestAllDatesAvailable_NonPositiveDays(t *testing.T) {
	table := &Table{Columns: []string{"Fri17"}}
	_, err := table.AllDatesAvailable(friday, 0)
	assert.Error(t, err)
}
